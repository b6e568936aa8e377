package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"quiz-screening-service/internal/domain"
)

// SessionRepository abstracts where live sessions are tracked (in-memory, Redis, etc).
// Sessions are keyed by the (user, quiz) pair.
type SessionRepository interface {
	// GetOrCreate returns the live session for the pair, calling create when none exists.
	// created reports whether create was used.
	GetOrCreate(userID, quizID string, create func() *Session) (session *Session, created bool)
	Get(userID, quizID string) (*Session, bool)
	// Delete removes the pair's entry only if it still refers to session.
	Delete(userID, quizID string, session *Session)
}

// StartStatus is the outcome of QuizRunner.Start.
type StartStatus string

const (
	// StartUnavailable means the quiz does not resolve; send the user back to the catalog.
	StartUnavailable StartStatus = "unavailable"
	// StartCompleted means an attempt already exists; show its results.
	StartCompleted StartStatus = "completed"
	// StartStarted means a live session is running.
	StartStarted StartStatus = "started"
)

// StartResult carries whichever of Attempt or Session applies to Status.
type StartResult struct {
	Status  StartStatus
	QuizID  string
	Attempt domain.Attempt
	Session *Session
	Resumed bool
}

// QuizRunner sequences the catalog, the session clock and the attempt recorder into the
// end-to-end attempt flow.
type QuizRunner struct {
	catalog       QuizCatalog
	recorder      *AttemptRecorder
	sessions      SessionRepository
	newClock      func(limit time.Duration) *SessionClock
	shuffle       func(options []string)
	submitTimeout time.Duration
}

// RunnerOption customizes a QuizRunner.
type RunnerOption func(*QuizRunner)

// WithClockFactory overrides how session clocks are built.
func WithClockFactory(f func(limit time.Duration) *SessionClock) RunnerOption {
	return func(r *QuizRunner) { r.newClock = f }
}

// WithOptionShuffle overrides the per-session option shuffle.
func WithOptionShuffle(f func(options []string)) RunnerOption {
	return func(r *QuizRunner) { r.shuffle = f }
}

// WithSubmitTimeout bounds the forced submission triggered by clock expiry.
func WithSubmitTimeout(d time.Duration) RunnerOption {
	return func(r *QuizRunner) {
		if d > 0 {
			r.submitTimeout = d
		}
	}
}

func NewQuizRunner(catalog QuizCatalog, recorder *AttemptRecorder, sessions SessionRepository, opts ...RunnerOption) *QuizRunner {
	var rndMu sync.Mutex
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	r := &QuizRunner{
		catalog:  catalog,
		recorder: recorder,
		sessions: sessions,
		newClock: func(limit time.Duration) *SessionClock { return NewSessionClock(limit) },
		shuffle: func(options []string) {
			rndMu.Lock()
			defer rndMu.Unlock()
			rnd.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
		},
		submitTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start opens (or resumes) the user's session on a quiz. No clock is started when the
// quiz is unavailable or the user already has an attempt.
func (r *QuizRunner) Start(ctx context.Context, userID, quizID string) (StartResult, error) {
	quiz, err := r.catalog.GetQuiz(ctx, quizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		return StartResult{Status: StartUnavailable, QuizID: quizID}, nil
	}
	if err != nil {
		return StartResult{}, err
	}
	if len(quiz.Questions) == 0 {
		return StartResult{}, fmt.Errorf("%w: quiz %s has no questions", domain.ErrMalformed, quizID)
	}

	attempt, found, err := r.recorder.GetAttempt(ctx, userID, quizID)
	if err != nil {
		return StartResult{}, err
	}
	if found {
		return StartResult{Status: StartCompleted, QuizID: quizID, Attempt: attempt}, nil
	}

	session, created := r.sessions.GetOrCreate(userID, quizID, func() *Session {
		return newSession(userID, quiz, r.presentable(quiz), r.recorder, r.newClock(quiz.TimeLimit()), r.submitTimeout, r.release)
	})
	if created {
		session.start()
		log.Printf("session started user=%s quiz=%s limit=%s", userID, quizID, quiz.TimeLimit())
	}
	return StartResult{Status: StartStarted, QuizID: quizID, Session: session, Resumed: !created}, nil
}

// Session returns the live session for the pair.
func (r *QuizRunner) Session(userID, quizID string) (*Session, error) {
	session, ok := r.sessions.Get(userID, quizID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Submit seals the pair's live session. Without a live session it reports the stored
// attempt when there is one.
func (r *QuizRunner) Submit(ctx context.Context, userID, quizID string, clientTimestamp time.Time) (SealResult, error) {
	session, ok := r.sessions.Get(userID, quizID)
	if ok {
		return session.Submit(ctx, clientTimestamp)
	}
	attempt, found, err := r.recorder.GetAttempt(ctx, userID, quizID)
	if err != nil {
		return SealResult{}, err
	}
	if !found {
		return SealResult{}, domain.ErrSessionNotFound
	}
	return SealResult{Attempt: attempt, Reason: SealSubmitted, AlreadyAttempted: true}, nil
}

// Result returns the sealed attempt for the pair.
func (r *QuizRunner) Result(ctx context.Context, userID, quizID string) (domain.Attempt, error) {
	attempt, found, err := r.recorder.GetAttempt(ctx, userID, quizID)
	if err != nil {
		return domain.Attempt{}, err
	}
	if !found {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return attempt, nil
}

// Catalog lists every quiz summary.
func (r *QuizRunner) Catalog(ctx context.Context) ([]domain.QuizSummary, error) {
	quizzes, err := r.catalog.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, q.Summary())
	}
	return out, nil
}

func (r *QuizRunner) release(s *Session) {
	r.sessions.Delete(s.UserID(), s.QuizID(), s)
}

func (r *QuizRunner) presentable(quiz domain.Quiz) domain.QuizView {
	questions := make([]domain.QuestionView, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		options := append([]string(nil), q.Options...)
		r.shuffle(options)
		questions = append(questions, domain.QuestionView{ID: q.ID, Text: q.Text, Options: options})
	}
	return domain.QuizView{
		ID:               quiz.ID,
		Slug:             quiz.Slug,
		Title:            quiz.Title,
		Description:      quiz.Description,
		PassingScore:     quiz.PassingScore,
		TimeLimitSeconds: quiz.TimeLimitSeconds,
		Questions:        questions,
	}
}
