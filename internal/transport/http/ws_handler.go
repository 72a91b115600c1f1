package http

import (
	"encoding/json"
	"log"
	"net/http"

	"quizlive/internal/app"
	"quizlive/internal/domain"
	"quizlive/internal/pubsub"
	"github.com/gorilla/websocket"
)

// WSHandler bridges pub/sub topics onto websocket connections and accepts
// in-game actions inline. Clients pick their topics through query params:
// user (required), plus any of room, game and lobby=1.
type WSHandler struct {
	games    *app.GameService
	sub      pubsub.Subscriber
	upgrader websocket.Upgrader
}

func NewWSHandler(games *app.GameService, sub pubsub.Subscriber) *WSHandler {
	return &WSHandler{
		games: games,
		sub:   sub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type wsAnswerPayload struct {
	QuestionID   string               `json:"questionId"`
	Answer       domain.AnswerPayload `json:"answer"`
	TimeSpentSec float64              `json:"timeSpentSec"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Topic   string `json:"topic,omitempty"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and relays events until either side closes.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	roomCode := r.URL.Query().Get("room")
	gameCode := r.URL.Query().Get("game")
	if userID == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}

	topics := []string{pubsub.TopicUserStarted(userID)}
	if roomCode != "" {
		topics = append(topics, pubsub.TopicRoom(roomCode))
	}
	if gameCode != "" {
		topics = append(topics, pubsub.TopicGame(gameCode), pubsub.TopicGameStarted(gameCode))
	}
	if r.URL.Query().Get("lobby") == "1" {
		topics = append(topics, pubsub.TopicRooms)
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.sub.Subscribe(topics...)
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: update.Type, Topic: update.Topic, Payload: update.Payload}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			if gameCode == "" {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "no game bound to this connection"}}
				continue
			}
			var payload wsAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			rec, err := h.games.SubmitAnswer(r.Context(), gameCode, userID, payload.QuestionID, payload.Answer, payload.TimeSpentSec)
			if err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage{Type: "answer_result", Payload: rec}
		case "advance":
			if gameCode == "" {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "no game bound to this connection"}}
				continue
			}
			if _, err := h.games.AdvanceQuestion(r.Context(), gameCode); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		case "end":
			if gameCode == "" {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "no game bound to this connection"}}
				continue
			}
			if _, err := h.games.EndGame(r.Context(), gameCode, userID); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
		default:
			send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
