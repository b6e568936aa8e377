package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"quiz-screening-service/internal/auth"
)

// NewRouter wires the public and authenticated routes.
func NewRouter(api *API, ws *WSHandler, tokens *auth.Manager) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(tokens.Middleware)
		r.Get("/ws", ws.ServeWS)
		r.Get("/quizzes", api.ListQuizzes)
		r.Get("/quizzes/{quizID}/attempt", api.GetAttempt)
		r.Post("/quizzes/{quizID}/submit", api.Submit)
		r.With(auth.RequireAdmin).Get("/admin/quizzes/{quizID}/attempts", api.ListAttempts)
	})
	return r
}
