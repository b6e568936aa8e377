package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-screening-service/internal/domain"
)

// AttemptStore keeps sealed attempts in memory. Create checks and inserts under one lock,
// so the (user, quiz) uniqueness holds for concurrent callers.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{attempts: make(map[string]domain.Attempt)}
}

func (s *AttemptStore) Create(_ context.Context, attempt domain.Attempt) (domain.Attempt, error) {
	k := key(attempt.UserID, attempt.QuizID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.attempts[k]; exists {
		return domain.Attempt{}, domain.ErrAlreadyAttempted
	}
	attempt.Answers = attempt.Answers.Clone()
	s.attempts[k] = attempt
	return cloneAttempt(attempt), nil
}

func (s *AttemptStore) Get(_ context.Context, userID, quizID string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[key(userID, quizID)]
	if !ok {
		return domain.Attempt{}, domain.ErrAttemptNotFound
	}
	return cloneAttempt(attempt), nil
}

// ListByQuiz returns the quiz's attempts, oldest first.
func (s *AttemptStore) ListByQuiz(_ context.Context, quizID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	out := make([]domain.Attempt, 0)
	for _, attempt := range s.attempts {
		if attempt.QuizID == quizID {
			out = append(out, cloneAttempt(attempt))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.Before(out[j].SubmittedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func cloneAttempt(a domain.Attempt) domain.Attempt {
	a.Answers = a.Answers.Clone()
	return a
}
