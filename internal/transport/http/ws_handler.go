package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"quiz-screening-service/internal/app"
	"quiz-screening-service/internal/auth"
	"quiz-screening-service/internal/domain"
)

type WSHandler struct {
	runner   *app.QuizRunner
	upgrader websocket.Upgrader
}

func NewWSHandler(runner *app.QuizRunner) *WSHandler {
	return &WSHandler{
		runner: runner,
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

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Option     string `json:"option"`
}

type submitPayload struct {
	ClientTimestamp string `json:"clientTimestamp"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type startedPayload struct {
	Quiz             domain.QuizView  `json:"quiz"`
	Answers          domain.AnswerSet `json:"answers"`
	RemainingSeconds int              `json:"remainingSeconds"`
	Resumed          bool             `json:"resumed"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type unavailablePayload struct {
	QuizID string `json:"quizId"`
}

type answeredPayload struct {
	QuestionID string `json:"questionId"`
	Option     string `json:"option,omitempty"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: domain.Kind(err), Message: err.Error()}}
}

// ServeWS upgrades HTTP requests to websockets and drives one quiz session over them.
// The caller identity comes from the token checked by auth.Manager.Middleware.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	identity, ok := auth.FromContext(r.Context())
	if quizID == "" || !ok {
		http.Error(w, "missing quizId or identity", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	started, err := h.runner.Start(r.Context(), identity.UserID, quizID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	switch started.Status {
	case app.StartUnavailable:
		_ = conn.WriteJSON(outboundMessage[unavailablePayload]{Type: "unavailable", Payload: unavailablePayload{QuizID: quizID}})
		return
	case app.StartCompleted:
		_ = conn.WriteJSON(outboundMessage[app.SealResult]{Type: "result", Payload: app.SealResult{
			Attempt:          started.Attempt,
			Reason:           app.SealSubmitted,
			AlreadyAttempted: true,
		}})
		return
	}

	session := started.Session
	events, cancel, err := session.Subscribe()
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	// leaving abandons the session when this was its last subscriber
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

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
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				msg, ok := eventMessage(ev)
				if !ok {
					continue
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	snapshot := session.Snapshot()
	send <- outboundMessage[any]{Type: "started", Payload: startedPayload{
		Quiz:             snapshot.Quiz,
		Answers:          snapshot.Answers,
		RemainingSeconds: seconds(snapshot.Remaining),
		Resumed:          started.Resumed,
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: domain.KindInvalid, Message: "invalid answer payload"}}
				continue
			}
			if err := session.Answer(payload.QuestionID, payload.Option); err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "answered", Payload: answeredPayload(payload)}
		case "clear":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: domain.KindInvalid, Message: "invalid clear payload"}}
				continue
			}
			if err := session.Clear(payload.QuestionID); err != nil {
				send <- errorMessage(err)
				continue
			}
			send <- outboundMessage[any]{Type: "answered", Payload: answeredPayload{QuestionID: payload.QuestionID}}
		case "submit":
			clientTS, err := parseSubmit(inbound.Payload)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: domain.KindInvalid, Message: "invalid submit payload"}}
				continue
			}
			// the outcome reaches this and every other tab through the session events
			if _, err := session.Submit(r.Context(), clientTS); errors.Is(err, domain.ErrSessionNotFound) {
				send <- errorMessage(err)
			}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Code: domain.KindInvalid, Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func eventMessage(ev app.SessionEvent) (outboundMessage[any], bool) {
	switch ev.Type {
	case app.EventTick:
		return outboundMessage[any]{Type: "tick", Payload: tickPayload{RemainingSeconds: seconds(ev.Remaining)}}, true
	case app.EventSealed:
		return outboundMessage[any]{Type: "result", Payload: ev.Result}, true
	case app.EventSealFailed:
		return errorMessage(ev.Err), true
	default:
		return outboundMessage[any]{}, false
	}
}

// parseSubmit reads the optional client timestamp of a submit frame.
func parseSubmit(raw json.RawMessage) (time.Time, error) {
	var payload submitPayload
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return time.Time{}, err
	}
	if payload.ClientTimestamp == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, payload.ClientTimestamp)
}

func seconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
