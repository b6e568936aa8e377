package domain

import "time"

// Question models an MCQ question whose correct answer is one of its options.
// Answers are compared to CorrectAnswer by exact string equality.
type Question struct {
	ID            string   `json:"id" yaml:"id"`
	Text          string   `json:"text" yaml:"text"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer string   `json:"correctAnswer" yaml:"correctAnswer"`
}

// HasOption reports whether option is one of the question's options.
func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// Quiz is a timed collection of questions with a pass threshold.
type Quiz struct {
	ID               string     `json:"id" yaml:"id"`
	Slug             string     `json:"slug" yaml:"slug"`
	Title            string     `json:"title" yaml:"title"`
	Description      string     `json:"description" yaml:"description"`
	PassingScore     int        `json:"passingScore" yaml:"passingScore"`
	TimeLimitSeconds int        `json:"timeLimitSeconds" yaml:"timeLimitSeconds"`
	Questions        []Question `json:"questions" yaml:"questions"`
}

// TimeLimit returns the session time budget.
func (q Quiz) TimeLimit() time.Duration {
	return time.Duration(q.TimeLimitSeconds) * time.Second
}

// Question looks up a question by ID.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// Summary returns the catalog listing form of the quiz.
func (q Quiz) Summary() QuizSummary {
	return QuizSummary{
		ID:               q.ID,
		Slug:             q.Slug,
		Title:            q.Title,
		Description:      q.Description,
		PassingScore:     q.PassingScore,
		TimeLimitSeconds: q.TimeLimitSeconds,
		QuestionCount:    len(q.Questions),
	}
}

// QuizSummary is the catalog view of a quiz, without questions.
type QuizSummary struct {
	ID               string `json:"id"`
	Slug             string `json:"slug"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	PassingScore     int    `json:"passingScore"`
	TimeLimitSeconds int    `json:"timeLimitSeconds"`
	QuestionCount    int    `json:"questionCount"`
}

// QuestionView is a question as shown to a participant. It never carries the correct answer.
type QuestionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// QuizView is a quiz as shown to a participant during a session.
type QuizView struct {
	ID               string         `json:"id"`
	Slug             string         `json:"slug"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	PassingScore     int            `json:"passingScore"`
	TimeLimitSeconds int            `json:"timeLimitSeconds"`
	Questions        []QuestionView `json:"questions"`
}

// AnswerSet maps question ID to the selected option. A missing key means unanswered.
type AnswerSet map[string]string

// Clone returns an independent copy of the answer set.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Attempt is the sealed, immutable outcome of a (user, quiz) pair.
type Attempt struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	QuizID      string    `json:"quizId"`
	Answers     AnswerSet `json:"answers"`
	Score       float64   `json:"score"`
	Passed      bool      `json:"passed"`
	SubmittedAt time.Time `json:"submittedAt"`
}
