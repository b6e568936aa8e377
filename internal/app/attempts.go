package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"quiz-screening-service/internal/domain"
)

// QuizCatalog resolves quiz definitions (from cache/backing store).
type QuizCatalog interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
}

// AttemptRepository persists sealed attempts.
//
// Create must be atomic with respect to the (UserID, QuizID) key: when an attempt already
// exists it returns domain.ErrAlreadyAttempted and writes nothing. Store failures are
// wrapped with domain.ErrPersistence.
type AttemptRepository interface {
	Create(ctx context.Context, attempt domain.Attempt) (domain.Attempt, error)
	Get(ctx context.Context, userID, quizID string) (domain.Attempt, error)
	ListByQuiz(ctx context.Context, quizID string) ([]domain.Attempt, error)
}

// AttemptRecorder scores answer sets and seals them into attempts, at most one per (user, quiz).
type AttemptRecorder struct {
	quizzes  QuizCatalog
	attempts AttemptRepository
	now      func() time.Time
	newID    func() string
}

// RecorderOption customizes an AttemptRecorder.
type RecorderOption func(*AttemptRecorder)

// WithRecorderClock overrides the server clock used for SubmittedAt.
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(r *AttemptRecorder) {
		if now != nil {
			r.now = now
		}
	}
}

func NewAttemptRecorder(quizzes QuizCatalog, attempts AttemptRepository, opts ...RecorderOption) *AttemptRecorder {
	r := &AttemptRecorder{
		quizzes:  quizzes,
		attempts: attempts,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit scores answers and persists the resulting attempt. The client timestamp is advisory
// and never used for scoring or SubmittedAt.
//
// The outcome is either the new attempt or an error matching one of domain.ErrQuizNotFound,
// domain.ErrAlreadyAttempted, domain.ErrMalformed or domain.ErrPersistence.
func (r *AttemptRecorder) Submit(ctx context.Context, userID, quizID string, answers domain.AnswerSet, clientTimestamp time.Time) (domain.Attempt, error) {
	quiz, err := r.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return domain.Attempt{}, err
		}
		return domain.Attempt{}, fmt.Errorf("%w: load quiz %s: %w", domain.ErrPersistence, quizID, err)
	}

	// Cheap rejection before scoring; the repository enforces the same rule atomically.
	if _, found, err := r.GetAttempt(ctx, userID, quizID); err != nil {
		return domain.Attempt{}, err
	} else if found {
		return domain.Attempt{}, domain.ErrAlreadyAttempted
	}

	card, err := ScoreAnswers(quiz, answers)
	if err != nil {
		return domain.Attempt{}, err
	}

	now := r.now().UTC()
	if !clientTimestamp.IsZero() {
		if skew := now.Sub(clientTimestamp); skew > time.Minute || skew < -time.Minute {
			log.Printf("attempt %s/%s: client clock skew %s", userID, quizID, skew.Round(time.Second))
		}
	}

	attempt, err := r.attempts.Create(ctx, domain.Attempt{
		ID:          r.newID(),
		UserID:      userID,
		QuizID:      quizID,
		Answers:     answers.Clone(),
		Score:       card.Score,
		Passed:      card.Passed,
		SubmittedAt: now,
	})
	if err != nil {
		return domain.Attempt{}, err
	}
	log.Printf("attempt sealed user=%s quiz=%s score=%.2f passed=%t", userID, quizID, attempt.Score, attempt.Passed)
	return attempt, nil
}

// GetAttempt returns the sealed attempt for the pair, if any.
func (r *AttemptRecorder) GetAttempt(ctx context.Context, userID, quizID string) (domain.Attempt, bool, error) {
	attempt, err := r.attempts.Get(ctx, userID, quizID)
	if errors.Is(err, domain.ErrAttemptNotFound) {
		return domain.Attempt{}, false, nil
	}
	if err != nil {
		return domain.Attempt{}, false, err
	}
	return attempt, true, nil
}

// ListAttempts returns every sealed attempt of a quiz, for result review.
func (r *AttemptRecorder) ListAttempts(ctx context.Context, quizID string) ([]domain.Attempt, error) {
	if _, err := r.quizzes.GetQuiz(ctx, quizID); err != nil {
		return nil, err
	}
	return r.attempts.ListByQuiz(ctx, quizID)
}
