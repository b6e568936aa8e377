package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"quiz-screening-service/internal/app"
	"quiz-screening-service/internal/auth"
	"quiz-screening-service/internal/domain"
)

// API serves the JSON endpoints around the session socket: catalog, results and review.
type API struct {
	runner   *app.QuizRunner
	recorder *app.AttemptRecorder
}

func NewAPI(runner *app.QuizRunner, recorder *app.AttemptRecorder) *API {
	return &API{runner: runner, recorder: recorder}
}

func (a *API) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := a.runner.Catalog(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": quizzes})
}

// GetAttempt returns the caller's own attempt on a quiz.
func (a *API) GetAttempt(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	attempt, err := a.runner.Result(r.Context(), identity.UserID, chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

// Submit seals the caller's live session, for clients that are not on the socket.
func (a *API) Submit(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())
	var body submitPayload
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
	}
	clientTS, _ := time.Parse(time.RFC3339, body.ClientTimestamp)
	result, err := a.runner.Submit(r.Context(), identity.UserID, chi.URLParam(r, "quizID"), clientTS)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListAttempts returns every attempt on a quiz, for admins reviewing results.
func (a *API) ListAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := a.recorder.ListAttempts(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch domain.Kind(err) {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindAlreadyAttempted:
		status = http.StatusConflict
	case domain.KindMalformed:
		status = http.StatusUnprocessableEntity
	case domain.KindPersistence:
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError || errors.Is(err, domain.ErrMalformed) {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, errorPayload{Code: domain.Kind(err), Message: err.Error()})
}
