package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quizlive/internal/app"
	"quizlive/internal/domain"
	"github.com/go-chi/chi/v5"
)

// API exposes the engine's contract over REST. It is a thin shim: decode,
// delegate, map the error taxonomy onto status codes, encode a snapshot.
type API struct {
	rooms *app.RoomService
	games *app.GameService
}

func NewAPI(rooms *app.RoomService, games *app.GameService) *API {
	return &API{rooms: rooms, games: games}
}

type createRoomRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	QuizID      string `json:"quizId"`
	MaxPlayers  int    `json:"maxPlayers"`
	TeamMode    bool   `json:"teamMode"`
	Name        string `json:"name"`
}

type joinRoomRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Team        string `json:"team"`
}

type userRequest struct {
	UserID string `json:"userId"`
}

type readyRequest struct {
	UserID string `json:"userId"`
	Ready  bool   `json:"ready"`
}

type submitAnswerRequest struct {
	PlayerID     string               `json:"playerId"`
	QuestionID   string               `json:"questionId"`
	Answer       domain.AnswerPayload `json:"answer"`
	TimeSpentSec float64              `json:"timeSpentSec"`
}

func (a *API) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" || req.QuizID == "" {
		writeMessage(w, http.StatusBadRequest, "userId and quizId are required")
		return
	}
	room, err := a.rooms.CreateRoom(r.Context(), req.UserID, req.DisplayName, req.QuizID, req.MaxPlayers, req.TeamMode, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (a *API) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := a.rooms.ListRooms(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (a *API) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := a.rooms.GetRoom(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (a *API) joinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeMessage(w, http.StatusBadRequest, "userId is required")
		return
	}
	room, err := a.rooms.JoinRoom(r.Context(), chi.URLParam(r, "code"), req.UserID, req.DisplayName, req.Team)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (a *API) leaveRoom(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decode(w, r, &req) {
		return
	}
	room, deleted, err := a.rooms.LeaveRoom(r.Context(), chi.URLParam(r, "code"), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if deleted {
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (a *API) setReady(w http.ResponseWriter, r *http.Request) {
	var req readyRequest
	if !decode(w, r, &req) {
		return
	}
	room, err := a.rooms.SetReady(r.Context(), chi.URLParam(r, "code"), req.UserID, req.Ready)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (a *API) startGame(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := a.rooms.StartGame(r.Context(), chi.URLParam(r, "code"), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (a *API) getGame(w http.ResponseWriter, r *http.Request) {
	view, err := a.games.Snapshot(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := a.games.Leaderboard(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if !decode(w, r, &req) {
		return
	}
	if req.PlayerID == "" || req.QuestionID == "" {
		writeMessage(w, http.StatusBadRequest, "playerId and questionId are required")
		return
	}
	rec, err := a.games.SubmitAnswer(r.Context(), chi.URLParam(r, "code"), req.PlayerID, req.QuestionID, req.Answer, req.TimeSpentSec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (a *API) advanceGame(w http.ResponseWriter, r *http.Request) {
	session, err := a.games.AdvanceQuestion(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) endGame(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := a.games.EndGame(r.Context(), chi.URLParam(r, "code"), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeError maps the engine's error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrGameNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrPlayerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotCreator):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrRoomFull),
		errors.Is(err, domain.ErrGameAlreadyStarted),
		errors.Is(err, domain.ErrAlreadyJoined),
		errors.Is(err, domain.ErrDuplicateAnswer),
		errors.Is(err, domain.ErrQuestionOutOfWindow),
		errors.Is(err, domain.ErrInsufficientPlayers),
		errors.Is(err, domain.ErrGameNotPlaying):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidQuiz),
		errors.Is(err, domain.ErrInvalidMaxPlayers):
		status = http.StatusBadRequest
	}
	writeMessage(w, status, err.Error())
}
