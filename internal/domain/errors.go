package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAlreadyAttempted is returned when the (user, quiz) pair already has a sealed attempt.
	// It is an expected outcome, not a fault.
	ErrAlreadyAttempted = errors.New("quiz already attempted")
	// ErrMalformed marks data-integrity faults: an empty quiz, or answers for questions outside the quiz.
	ErrMalformed = errors.New("malformed quiz data")
	// ErrPersistence wraps failures of the durable store. Callers may retry the whole submission.
	ErrPersistence = errors.New("persistence failure")

	// ErrAttemptNotFound is returned by attempt stores when no attempt exists for the pair.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrSessionNotFound is returned when no live session exists for the pair.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionSealed is returned when a session has already been sealed into an attempt.
	ErrSessionSealed = errors.New("quiz session already sealed")
	// ErrTimeUp is returned when answers change after the session clock has expired.
	ErrTimeUp = errors.New("quiz time is up")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option is not offered by the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrInvalidQuiz is returned by authoring-time validation.
	ErrInvalidQuiz = errors.New("invalid quiz definition")
)

// Outcome tags reported for failed submissions.
const (
	KindNotFound         = "not_found"
	KindAlreadyAttempted = "already_attempted"
	KindMalformed        = "malformed"
	KindPersistence      = "persistence"
	KindInvalid          = "invalid"
)

// Kind maps an error to its outcome tag. Errors outside the submission taxonomy
// are reported as KindInvalid.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyAttempted):
		return KindAlreadyAttempted
	case errors.Is(err, ErrQuizNotFound), errors.Is(err, ErrAttemptNotFound), errors.Is(err, ErrSessionNotFound):
		return KindNotFound
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindInvalid
	}
}
