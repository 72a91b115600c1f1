package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the REST API and the websocket game channel.
func NewRouter(api *API, ws *WSHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", api.listRooms)
			r.Post("/", api.createRoom)
			r.Get("/{code}", api.getRoom)
			r.Post("/{code}/join", api.joinRoom)
			r.Post("/{code}/leave", api.leaveRoom)
			r.Post("/{code}/ready", api.setReady)
			r.Post("/{code}/start", api.startGame)
		})
		r.Route("/games", func(r chi.Router) {
			r.Get("/{code}", api.getGame)
			r.Get("/{code}/leaderboard", api.getLeaderboard)
			r.Post("/{code}/answers", api.submitAnswer)
			r.Post("/{code}/advance", api.advanceGame)
			r.Post("/{code}/end", api.endGame)
		})
	})

	r.Get("/ws", ws.ServeWS)
	return r
}
