package app

import (
	"fmt"
	"math"

	"quiz-screening-service/internal/domain"
)

// Scorecard is the deterministic outcome of scoring an answer set against a quiz.
type Scorecard struct {
	Correct int
	Total   int
	Score   float64
	Passed  bool
}

// ScoreAnswers compares every question's selected option to its correct answer by exact
// string equality. Unanswered questions count as wrong. Answers for questions outside the
// quiz, and quizzes without questions, are reported as domain.ErrMalformed.
func ScoreAnswers(quiz domain.Quiz, answers domain.AnswerSet) (Scorecard, error) {
	total := len(quiz.Questions)
	if total == 0 {
		return Scorecard{}, fmt.Errorf("%w: quiz %s has no questions", domain.ErrMalformed, quiz.ID)
	}

	for questionID := range answers {
		if _, ok := quiz.Question(questionID); !ok {
			return Scorecard{}, fmt.Errorf("%w: question %s is not part of quiz %s", domain.ErrMalformed, questionID, quiz.ID)
		}
	}

	correct := 0
	for _, question := range quiz.Questions {
		if selected, ok := answers[question.ID]; ok && selected == question.CorrectAnswer {
			correct++
		}
	}

	return Scorecard{
		Correct: correct,
		Total:   total,
		Score:   roundScore(100 * float64(correct) / float64(total)),
		// integer comparison keeps the boundary exact: 100*correct/total >= passingScore
		Passed: 100*correct >= quiz.PassingScore*total,
	}, nil
}

func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}
