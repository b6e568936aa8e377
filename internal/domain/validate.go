package domain

import "fmt"

// MinTimeLimitSeconds is the shortest time budget an author may give a quiz.
const MinTimeLimitSeconds = 60

// ValidateQuiz checks the authoring-time invariants of a quiz definition.
// Scoring assumes these hold and does not re-check them.
func ValidateQuiz(q Quiz) error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidQuiz)
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return fmt.Errorf("%w: quiz %s: passing score %d outside 0..100", ErrInvalidQuiz, q.ID, q.PassingScore)
	}
	if q.TimeLimitSeconds < MinTimeLimitSeconds {
		return fmt.Errorf("%w: quiz %s: time limit %ds below %ds", ErrInvalidQuiz, q.ID, q.TimeLimitSeconds, MinTimeLimitSeconds)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz %s has no questions", ErrInvalidQuiz, q.ID)
	}

	seen := make(map[string]struct{}, len(q.Questions))
	for _, question := range q.Questions {
		if question.ID == "" {
			return fmt.Errorf("%w: quiz %s: question without id", ErrInvalidQuiz, q.ID)
		}
		if _, dup := seen[question.ID]; dup {
			return fmt.Errorf("%w: quiz %s: duplicate question %s", ErrInvalidQuiz, q.ID, question.ID)
		}
		seen[question.ID] = struct{}{}
		if len(question.Options) < 2 {
			return fmt.Errorf("%w: quiz %s: question %s needs at least 2 options", ErrInvalidQuiz, q.ID, question.ID)
		}
		if !question.HasOption(question.CorrectAnswer) {
			return fmt.Errorf("%w: quiz %s: question %s correct answer is not an option", ErrInvalidQuiz, q.ID, question.ID)
		}
	}
	return nil
}
