package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quiz-screening-service/internal/app"
	"quiz-screening-service/internal/domain"
	"quiz-screening-service/internal/infra/memory"
)

var baseTime = time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)

// manualTicker delivers ticks only when the test sends them.
type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time, 16), stopped: make(chan struct{})}
}

func (m *manualTicker) source(time.Duration) (<-chan time.Time, func()) {
	return m.ch, func() { m.once.Do(func() { close(m.stopped) }) }
}

func (m *manualTicker) tick(offset time.Duration) {
	m.ch <- baseTime.Add(offset)
}

// clockFactory hands out clocks driven by manual tickers and counts them.
type clockFactory struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (f *clockFactory) build(limit time.Duration) *app.SessionClock {
	t := newManualTicker()
	f.mu.Lock()
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	return app.NewSessionClock(limit, app.WithTickSource(t.source, func() time.Time { return baseTime }))
}

func (f *clockFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickers)
}

func (f *clockFactory) last() *manualTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickers[len(f.tickers)-1]
}

func threeQuestionQuiz() domain.Quiz {
	return domain.Quiz{
		ID:               "quiz-1",
		Slug:             "screening",
		Title:            "Screening",
		PassingScore:     60,
		TimeLimitSeconds: 60,
		Questions: []domain.Question{
			{ID: "q1", Text: "2 + 2?", Options: []string{"3", "4", "5"}, CorrectAnswer: "4"},
			{ID: "q2", Text: "Capital of France?", Options: []string{"Paris", "Lyon"}, CorrectAnswer: "Paris"},
			{ID: "q3", Text: "Go keyword for goroutines?", Options: []string{"go", "async"}, CorrectAnswer: "go"},
		},
	}
}

type fixture struct {
	quizzes  map[string]domain.Quiz
	attempts *memory.AttemptStore
	sessions *memory.SessionStore
	recorder *app.AttemptRecorder
	runner   *app.QuizRunner
	clocks   *clockFactory
}

func newFixture(t *testing.T, quizzes ...domain.Quiz) *fixture {
	t.Helper()
	byID := make(map[string]domain.Quiz, len(quizzes))
	for _, q := range quizzes {
		byID[q.ID] = q
	}
	f := &fixture{
		quizzes:  byID,
		attempts: memory.NewAttemptStore(),
		sessions: memory.NewSessionStore(),
		clocks:   &clockFactory{},
	}
	catalog := memory.NewQuizRepository(memory.NewStaticQuizLoader(byID), 0)
	f.recorder = app.NewAttemptRecorder(catalog, f.attempts, app.WithRecorderClock(func() time.Time { return baseTime }))
	f.runner = app.NewQuizRunner(catalog, f.recorder, f.sessions,
		app.WithClockFactory(f.clocks.build),
		app.WithOptionShuffle(func([]string) {}),
	)
	return f
}

func (f *fixture) attemptCount(t *testing.T, quizID string) int {
	t.Helper()
	list, err := f.attempts.ListByQuiz(context.Background(), quizID)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	return len(list)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
