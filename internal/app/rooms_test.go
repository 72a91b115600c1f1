package app_test

import (
	"context"
	"testing"
	"time"

	"quizlive/internal/app"
	"quizlive/internal/domain"
	"quizlive/internal/infra/memory"
	"quizlive/internal/pubsub"
)

type env struct {
	rooms  *app.RoomService
	games  *app.GameService
	broker *pubsub.Broker
}

func newEnv(t *testing.T, quiz domain.Quiz, cfg app.GameConfig) env {
	t.Helper()
	roomStore := memory.NewRoomStore()
	gameStore := memory.NewGameStore()
	ledger := memory.NewLedger()
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		quiz.ID: quiz,
	}), time.Minute)
	broker := pubsub.NewBroker()
	games := app.NewGameService(gameStore, roomStore, ledger, quizzes, broker, cfg)
	rooms := app.NewRoomService(roomStore, quizzes, games, broker)
	t.Cleanup(games.Shutdown)
	return env{rooms: rooms, games: games, broker: broker}
}

// manualAdvance disables the feedback auto-advance so tests drive every
// transition explicitly.
func manualAdvance() app.GameConfig {
	return app.GameConfig{FeedbackDelay: -1}
}

func twoQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "General knowledge",
		Questions: []domain.Question{
			{
				ID:           "q1",
				Prompt:       "What is 2 + 2?",
				Type:         domain.TypeSingleChoice,
				TimeLimitSec: 30,
				Answers: []domain.Answer{
					{ID: "a1", Text: "3"},
					{ID: "a2", Text: "4", IsCorrect: true},
				},
			},
			{
				ID:           "q2",
				Prompt:       "Select the vowels",
				Type:         domain.TypeMultipleChoice,
				TimeLimitSec: 30,
				Answers: []domain.Answer{
					{ID: "b1", Text: "a", IsCorrect: true},
					{ID: "b2", Text: "k"},
					{ID: "b3", Text: "e", IsCorrect: true},
				},
			},
		},
	}
}

func TestCreateRoomValidation(t *testing.T) {
	ctx := context.Background()
	te := newEnv(t, twoQuestionQuiz(), manualAdvance())

	if _, err := te.rooms.CreateRoom(ctx, "u1", "Alice", "quiz-1", 1, false, ""); err != domain.ErrInvalidMaxPlayers {
		t.Fatalf("expected ErrInvalidMaxPlayers, got %v", err)
	}
	if _, err := te.rooms.CreateRoom(ctx, "u1", "Alice", "quiz-1", 11, false, ""); err != domain.ErrInvalidMaxPlayers {
		t.Fatalf("expected ErrInvalidMaxPlayers, got %v", err)
	}
	if _, err := te.rooms.CreateRoom(ctx, "u1", "Alice", "nope", 4, false, ""); err != domain.ErrInvalidQuiz {
		t.Fatalf("expected ErrInvalidQuiz, got %v", err)
	}

	room, err := te.rooms.CreateRoom(ctx, "u1", "Alice", "quiz-1", 4, false, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if room.Status != domain.RoomWaiting || room.Name != "General knowledge" {
		t.Fatalf("unexpected room: %+v", room)
	}
	if len(room.Players) != 1 || !room.Players[0].Ready || !room.Players[0].IsCreator {
		t.Fatalf("creator should auto-join ready, got %+v", room.Players)
	}
}

func TestJoinRoomErrors(t *testing.T) {
	ctx := context.Background()
	te := newEnv(t, twoQuestionQuiz(), manualAdvance())

	if _, err := te.rooms.JoinRoom(ctx, "ZZZZZZ", "u2", "Bob", ""); err != domain.ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}

	room, err := te.rooms.CreateRoom(ctx, "u1", "Alice", "quiz-1", 2, false, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := te.rooms.JoinRoom(ctx, room.Code, "u1", "Alice", ""); err != domain.ErrAlreadyJoined {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
	if _, err := te.rooms.JoinRoom(ctx, room.Code, "u2", "Bob", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := te.rooms.JoinRoom(ctx, room.Code, "u3", "Cara", ""); err != domain.ErrRoomFull {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}

	if _, err := te.rooms.StartGame(ctx, room.Code, "u1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := te.rooms.JoinRoom(ctx, room.Code, "u4", "Dan", ""); err != domain.ErrGameAlreadyStarted {
		t.Fatalf("expected ErrGameAlreadyStarted, got %v", err)
	}
}

func TestTeamBalancing(t *testing.T) {
	ctx := context.Background()
	te := newEnv(t, twoQuestionQuiz(), manualAdvance())

	room, err := te.rooms.CreateRoom(ctx, "u1", "Alice", "quiz-1", 6, true, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if room.Players[0].Team != domain.Team1 {
		t.Fatalf("creator should land on team1, got %q", room.Players[0].Team)
	}

	// team1 has one member, so the next join balances to team2.
	room, err = te.rooms.JoinRoom(ctx, room.Code, "u2", "Bob", "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p, _ := room.FindPlayer("u2"); p.Team != domain.Team2 {
		t.Fatalf("expected team2, got %q", p.Team)
	}

	// Tie breaks toward team1.
	room, err = te.rooms.JoinRoom(ctx, room.Code, "u3", "Cara", "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p, _ := room.FindPlayer("u3"); p.Team != domain.Team1 {
		t.Fatalf("expected team1 on tie, got %q", p.Team)
	}

	// An explicit valid team is honored even if it unbalances.
	room, err = te.rooms.JoinRoom(ctx, room.Code, "u4", "Dan", domain.Team1)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p, _ := room.FindPlayer("u4"); p.Team != domain.Team1 {
		t.Fatalf("expected explicit team1, got %q", p.Team)
	}
}

func TestLeaveRoomPromotesAndDeletes(t *testing.T) {
	ctx := context.Background()
	te := newEnv(t, twoQuestionQuiz(), manualAdvance())

	room, err := te.rooms.CreateRoom(ctx, "u1", "Alice", "quiz-1", 4, false, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := te.rooms.JoinRoom(ctx, room.Code, "u2", "Bob", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := te.rooms.JoinRoom(ctx, room.Code, "u3", "Cara", ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	updates, cancel := te.broker.Subscribe(pubsub.TopicRoom(room.Code))
	defer cancel()

	room, deleted, err := te.rooms.LeaveRoom(ctx, room.Code, "u1")
	if err != nil || deleted {
		t.Fatalf("leave: deleted=%v err=%v", deleted, err)
	}
	if room.Status != domain.RoomWaiting {
		t.Fatalf("room should stay waiting, got %s", room.Status)
	}
	if room.CreatorID != "u2" {
		t.Fatalf("longest-standing member should be promoted, got %q", room.CreatorID)
	}
	if p, _ := room.FindPlayer("u2"); !p.IsCreator {
		t.Fatalf("promoted player should carry the creator flag")
	}

	if _, _, err := te.rooms.LeaveRoom(ctx, room.Code, "u2"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	_, deleted, err = te.rooms.LeaveRoom(ctx, room.Code, "u3")
	if err != nil || !deleted {
		t.Fatalf("last leave should delete the room, deleted=%v err=%v", deleted, err)
	}
	if _, err := te.rooms.GetRoom(ctx, room.Code); err != domain.ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound after delete, got %v", err)
	}

	if !sawMessageType(updates, pubsub.TypeRoomDeleted, time.Second) {
		t.Fatalf("expected a room_deleted event")
	}
}

func TestStartGameGuards(t *testing.T) {
	ctx := context.Background()
	te := newEnv(t, twoQuestionQuiz(), manualAdvance())

	room, err := te.rooms.CreateRoom(ctx, "u1", "Alice", "quiz-1", 4, false, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := te.rooms.StartGame(ctx, room.Code, "u1"); err != domain.ErrInsufficientPlayers {
		t.Fatalf("expected ErrInsufficientPlayers, got %v", err)
	}

	if _, err := te.rooms.JoinRoom(ctx, room.Code, "u2", "Bob", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := te.rooms.StartGame(ctx, room.Code, "u2"); err != domain.ErrNotCreator {
		t.Fatalf("expected ErrNotCreator, got %v", err)
	}

	session, err := te.rooms.StartGame(ctx, room.Code, "u1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if session.CurrentIndex != 0 || session.Status != domain.GamePlaying || session.Phase != domain.PhaseQuestion {
		t.Fatalf("unexpected session: %+v", session)
	}
	if len(session.Roster) != 2 {
		t.Fatalf("roster should snapshot both players, got %d", len(session.Roster))
	}

	room, err = te.rooms.GetRoom(ctx, room.Code)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room.Status != domain.RoomPlaying || room.GameCode != session.Code {
		t.Fatalf("room should link the session, got %+v", room)
	}

	if _, err := te.rooms.StartGame(ctx, room.Code, "u1"); err != domain.ErrGameAlreadyStarted {
		t.Fatalf("expected ErrGameAlreadyStarted on double start, got %v", err)
	}
}

func sawMessageType(ch <-chan pubsub.Message, msgType string, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			if msg.Type == msgType {
				return true
			}
		case <-deadline:
			return false
		}
	}
}
