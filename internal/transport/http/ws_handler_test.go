package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"quizlive/internal/app"
	"quizlive/internal/domain"
	"quizlive/internal/infra/memory"
	"quizlive/internal/pubsub"
	"github.com/gorilla/websocket"
)

type testStack struct {
	rooms  *app.RoomService
	games  *app.GameService
	broker *pubsub.Broker
	server *httptest.Server
}

func newTestStack(t *testing.T) testStack {
	t.Helper()
	roomStore := memory.NewRoomStore()
	gameStore := memory.NewGameStore()
	ledger := memory.NewLedger()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": sampleQuiz(),
	}), time.Minute)
	broker := pubsub.NewBroker()

	games := app.NewGameService(gameStore, roomStore, ledger, quizzes, broker, app.GameConfig{FeedbackDelay: -1})
	rooms := app.NewRoomService(roomStore, quizzes, games, broker)
	t.Cleanup(games.Shutdown)

	server := httptest.NewServer(NewRouter(NewAPI(rooms, games), NewWSHandler(games, broker)))
	t.Cleanup(server.Close)
	return testStack{rooms: rooms, games: games, broker: broker, server: server}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Arithmetic",
		Questions: []domain.Question{
			{
				ID:           "q1",
				Prompt:       "What is 2 + 2?",
				Type:         domain.TypeSingleChoice,
				TimeLimitSec: 30,
				Answers: []domain.Answer{
					{ID: "a1", Text: "3"},
					{ID: "a2", Text: "4", IsCorrect: true},
					{ID: "a3", Text: "5"},
				},
			},
			{
				ID:           "q2",
				Prompt:       "What is 3 x 3?",
				Type:         domain.TypeSingleChoice,
				TimeLimitSec: 30,
				Answers: []domain.Answer{
					{ID: "b1", Text: "9", IsCorrect: true},
					{ID: "b2", Text: "6"},
				},
			},
		},
	}
}

func startGame(t *testing.T, ts testStack) domain.GameSession {
	t.Helper()
	ctx := context.Background()
	room, err := ts.rooms.CreateRoom(ctx, "u1", "Alice", "quiz-1", 4, false, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := ts.rooms.JoinRoom(ctx, room.Code, "u2", "Bob", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	session, err := ts.rooms.StartGame(ctx, room.Code, "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return session
}

func wsURL(server *httptest.Server, query string) string {
	return "ws" + server.URL[len("http"):] + "/ws?" + query
}

func TestWebSocketAnswerFlow(t *testing.T) {
	ts := newTestStack(t)
	session := startGame(t, ts)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.server, "user=u2&game="+session.Code), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	answer := map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionId":   "q1",
			"answer":       map[string]any{"answerIds": []string{"a2"}},
			"timeSpentSec": 5,
		},
	}
	if err := conn.WriteJSON(answer); err != nil {
		t.Fatalf("write answer: %v", err)
	}

	resultSeen := false
	answeredSeen := false
	for i := 0; i < 5 && !(resultSeen && answeredSeen); i++ {
		typ, payload := readNext(conn, t)
		switch typ {
		case "answer_result":
			resultSeen = true
			if points, _ := payload["points"].(float64); points != 117 {
				t.Fatalf("expected 117 points, got %v", payload["points"])
			}
		case pubsub.TypePlayerAnswered:
			answeredSeen = true
		}
	}
	if !resultSeen || !answeredSeen {
		t.Fatalf("expected answer_result and player_answered, got result=%v answered=%v", resultSeen, answeredSeen)
	}
}

func TestWebSocketRelaysFeedback(t *testing.T) {
	ts := newTestStack(t)
	session := startGame(t, ts)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.server, "user=u1&game="+session.Code), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	for _, user := range []string{"u1", "u2"} {
		if _, err := ts.games.SubmitAnswer(ctx, session.Code, user, "q1", domain.AnswerPayload{AnswerIDs: []string{"a2"}}, 5); err != nil {
			t.Fatalf("submit %s: %v", user, err)
		}
	}

	for i := 0; i < 5; i++ {
		typ, _ := readNext(conn, t)
		if typ == pubsub.TypeShowFeedback {
			return
		}
	}
	t.Fatalf("show_feedback never relayed")
}

func TestWebSocketRejectsActionsWithoutGame(t *testing.T) {
	ts := newTestStack(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.server, "user=u1&lobby=1"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]any{"type": "advance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	typ, _ := readNext(conn, t)
	if typ != "error" {
		t.Fatalf("expected error, got %s", typ)
	}
}

func TestWebSocketRequiresUser(t *testing.T) {
	ts := newTestStack(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts.server, "game=ABCDEF"), nil)
	if err == nil {
		t.Fatalf("expected handshake failure without user")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %+v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}
