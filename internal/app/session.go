package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"quiz-screening-service/internal/domain"
)

// SealReason says what sealed a session.
type SealReason string

const (
	SealSubmitted SealReason = "submitted"
	SealExpired   SealReason = "expired"
)

// SealResult is the outcome of sealing a session. AlreadyAttempted is set when a concurrent
// submission for the same pair won the race; Attempt is then the stored one.
type SealResult struct {
	Attempt          domain.Attempt `json:"attempt"`
	Reason           SealReason     `json:"reason"`
	AlreadyAttempted bool           `json:"alreadyAttempted"`
}

// Session event types.
const (
	EventTick       = "tick"
	EventSealed     = "sealed"
	EventSealFailed = "sealFailed"
)

// SessionEvent is pushed to session subscribers.
type SessionEvent struct {
	Type      string
	Remaining time.Duration
	Result    SealResult
	Err       error
}

// SessionSnapshot is a point-in-time view of a live session.
type SessionSnapshot struct {
	Quiz      domain.QuizView
	Answers   domain.AnswerSet
	Remaining time.Duration
	Sealed    bool
}

// Session is one user's live attempt at a quiz: the in-progress answer set bounded by a
// SessionClock. It is sealed exactly once, by manual submit or clock expiry.
type Session struct {
	userID        string
	quiz          domain.Quiz
	view          domain.QuizView
	recorder      *AttemptRecorder
	clock         *SessionClock
	submitTimeout time.Duration
	release       func(*Session)

	mu        sync.Mutex
	answers   domain.AnswerSet
	sealed    bool
	abandoned bool
	// timeUp freezes the answers once the clock has expired, even if the forced seal failed.
	timeUp      bool
	result      SealResult
	sealErr     error
	subscribers map[chan SessionEvent]struct{}
}

func newSession(userID string, quiz domain.Quiz, view domain.QuizView, recorder *AttemptRecorder, clock *SessionClock, submitTimeout time.Duration, release func(*Session)) *Session {
	return &Session{
		userID:        userID,
		quiz:          quiz,
		view:          view,
		recorder:      recorder,
		clock:         clock,
		submitTimeout: submitTimeout,
		release:       release,
		answers:       make(domain.AnswerSet),
		subscribers:   make(map[chan SessionEvent]struct{}),
	}
}

func (s *Session) UserID() string { return s.userID }

func (s *Session) QuizID() string { return s.quiz.ID }

func (s *Session) start() {
	s.clock.Start(s.onTick, s.onExpire)
}

// Answer records the selected option for a question. Last write wins.
func (s *Session) Answer(questionID, option string) error {
	question, ok := s.quiz.Question(questionID)
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if !question.HasOption(option) {
		return domain.ErrOptionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return err
	}
	s.answers[questionID] = option
	return nil
}

// Clear removes the answer for a question, making it unanswered again.
func (s *Session) Clear(questionID string) error {
	if _, ok := s.quiz.Question(questionID); !ok {
		return domain.ErrQuestionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usableLocked(); err != nil {
		return err
	}
	delete(s.answers, questionID)
	return nil
}

// Submit seals the session with the current answers. If the session was already sealed
// (for example by clock expiry) the earlier result is returned and nothing is written.
func (s *Session) Submit(ctx context.Context, clientTimestamp time.Time) (SealResult, error) {
	return s.seal(ctx, SealSubmitted, clientTimestamp)
}

// Snapshot returns the quiz view, a copy of the answers and the remaining time.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		Quiz:      s.view,
		Answers:   s.answers.Clone(),
		Remaining: s.clock.Remaining(),
		Sealed:    s.sealed,
	}
}

// ClockState exposes the state of the session countdown.
func (s *Session) ClockState() ClockState {
	return s.clock.State()
}

// Subscribe returns a channel of session events. The returned cancel func must be called
// when the subscriber goes away; when the last subscriber of an unsealed session leaves,
// the session is abandoned and its answers discarded.
func (s *Session) Subscribe() (<-chan SessionEvent, func(), error) {
	ch := make(chan SessionEvent, 8)

	s.mu.Lock()
	if s.abandoned {
		s.mu.Unlock()
		return nil, nil, domain.ErrSessionNotFound
	}
	s.subscribers[ch] = struct{}{}
	if s.sealed {
		ch <- s.sealedEventLocked()
	} else {
		ch <- SessionEvent{Type: EventTick, Remaining: s.clock.Remaining()}
	}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		abandon := len(s.subscribers) == 0 && !s.sealed && !s.abandoned
		if abandon {
			s.abandonLocked()
		}
		s.mu.Unlock()
		if abandon {
			log.Printf("session abandoned user=%s quiz=%s", s.userID, s.quiz.ID)
			s.release(s)
		}
	}
	return ch, cancel, nil
}

// Abandon stops the countdown and discards the answers without persisting anything.
func (s *Session) Abandon() {
	s.mu.Lock()
	if s.sealed || s.abandoned {
		s.mu.Unlock()
		return
	}
	s.abandonLocked()
	s.mu.Unlock()
	s.release(s)
}

func (s *Session) abandonLocked() {
	s.abandoned = true
	s.clock.Cancel()
	s.answers = nil
}

func (s *Session) usableLocked() error {
	if s.sealed {
		return domain.ErrSessionSealed
	}
	if s.abandoned {
		return domain.ErrSessionNotFound
	}
	if s.timeUp {
		return domain.ErrTimeUp
	}
	return nil
}

func (s *Session) seal(ctx context.Context, reason SealReason, clientTimestamp time.Time) (SealResult, error) {
	s.mu.Lock()
	if s.sealed {
		defer s.mu.Unlock()
		return s.result, s.sealErr
	}
	if s.abandoned {
		s.mu.Unlock()
		return SealResult{}, domain.ErrSessionNotFound
	}

	if s.timeUp {
		reason = SealExpired
	}
	attempt, err := s.recorder.Submit(ctx, s.userID, s.quiz.ID, s.answers.Clone(), clientTimestamp)
	result := SealResult{Attempt: attempt, Reason: reason}
	if errors.Is(err, domain.ErrAlreadyAttempted) {
		existing, found, getErr := s.recorder.GetAttempt(ctx, s.userID, s.quiz.ID)
		switch {
		case getErr != nil:
			err = getErr
		case found:
			result = SealResult{Attempt: existing, Reason: reason, AlreadyAttempted: true}
			err = nil
		}
	}
	if errors.Is(err, domain.ErrPersistence) {
		// left unsealed so the submission can be retried
		s.broadcastLocked(SessionEvent{Type: EventSealFailed, Err: err})
		s.mu.Unlock()
		return SealResult{}, err
	}

	s.sealed = true
	s.answers = nil
	s.clock.Cancel()
	if err != nil {
		s.sealErr = err
	} else {
		s.result = result
	}
	s.broadcastLocked(s.sealedEventLocked())
	s.mu.Unlock()

	s.release(s)
	return result, err
}

func (s *Session) sealedEventLocked() SessionEvent {
	if s.sealErr != nil {
		return SessionEvent{Type: EventSealFailed, Err: s.sealErr}
	}
	return SessionEvent{Type: EventSealed, Result: s.result}
}

func (s *Session) onTick(remaining time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed || s.abandoned {
		return
	}
	s.broadcastLocked(SessionEvent{Type: EventTick, Remaining: remaining})
}

func (s *Session) onExpire() {
	s.mu.Lock()
	if !s.sealed && !s.abandoned {
		s.timeUp = true
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.submitTimeout)
	defer cancel()
	result, err := s.seal(ctx, SealExpired, time.Time{})
	if err != nil {
		log.Printf("forced submit failed user=%s quiz=%s: %v", s.userID, s.quiz.ID, err)
		return
	}
	if result.Reason == SealExpired {
		log.Printf("session expired user=%s quiz=%s score=%.2f", s.userID, s.quiz.ID, result.Attempt.Score)
	}
}

func (s *Session) broadcastLocked(ev SessionEvent) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// drop the oldest queued event so slow subscribers never block the clock
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}
