package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleSetter is an exam author and evaluator.
	UserRoleSetter UserRole = "setter"
	// UserRoleTaker is a student taking exams.
	UserRoleTaker UserRole = "taker"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	Email        string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// QuestionType represents the kind of answer a question expects.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionShortAnswer    QuestionType = "SHORT_ANSWER"
	QuestionEssay          QuestionType = "ESSAY"
)

// ValidQuestionType checks whether t names a known question type.
func ValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionMultipleChoice, QuestionShortAnswer, QuestionEssay:
		return true
	}
	return false
}

// Exam is an authored exam with its ordered question list.
type Exam struct {
	ID              int64      `json:"id"`
	SetterID        int64      `json:"setter_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Passcode        string     `json:"passcode,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	OpenAt          *time.Time `json:"open_at,omitempty"`
	AllowedEmails   []string   `json:"allowed_emails,omitempty"`
	Questions       []Question `json:"questions"`
	CreatedAt       time.Time  `json:"created_at"`
}

// MaxScore is the sum of point ceilings over all questions.
func (e Exam) MaxScore() int {
	total := 0
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// QuestionByID returns the question with the given id, or nil.
func (e Exam) QuestionByID(id int64) *Question {
	for i := range e.Questions {
		if e.Questions[i].ID == id {
			return &e.Questions[i]
		}
	}
	return nil
}

// Restricted reports whether an allow-list is configured for the exam.
func (e Exam) Restricted() bool {
	return len(e.AllowedEmails) > 0
}

// Sanitized returns a copy of the exam safe to show a taker: the passcode,
// answer keys, and allow-list are stripped.
func (e Exam) Sanitized() Exam {
	out := e
	out.Passcode = ""
	out.AllowedEmails = nil
	out.Questions = make([]Question, len(e.Questions))
	for i, q := range e.Questions {
		q.CorrectAnswer = nil
		out.Questions[i] = q
	}
	return out
}

// Question is a single exam question. CorrectAnswer holds an option id for
// multiple choice, free text for short answer, and is nil for essays.
type Question struct {
	ID            int64            `json:"id"`
	ExamID        int64            `json:"exam_id"`
	Position      int              `json:"position"`
	Text          string           `json:"text"`
	Type          QuestionType     `json:"type"`
	Options       []QuestionOption `json:"options,omitempty"`
	CorrectAnswer *string          `json:"correct_answer,omitempty"`
	Points        int              `json:"points"`
}

// OptionByID returns the option with the given id, or nil.
func (q Question) OptionByID(id int64) *QuestionOption {
	for i := range q.Options {
		if q.Options[i].ID == id {
			return &q.Options[i]
		}
	}
	return nil
}

// QuestionOption is one selectable answer of a multiple-choice question.
type QuestionOption struct {
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Position   int    `json:"position"`
	Text       string `json:"text"`
}

// Submission is a taker's immutable answer snapshot for one exam, plus the
// mutable evaluation fields attached to it.
type Submission struct {
	ID             int64        `json:"id"`
	ExamID         int64        `json:"exam_id"`
	TakerID        int64        `json:"taker_id"`
	SubmittedAt    time.Time    `json:"submitted_at"`
	IsEvaluated    bool         `json:"is_evaluated"`
	EvaluatedScore *float64     `json:"evaluated_score,omitempty"`
	Answers        []UserAnswer `json:"answers"`
}

// UserAnswer is the taker's answer to one question. For multiple choice the
// answer text holds the selected option id in decimal form.
type UserAnswer struct {
	ID           int64    `json:"id"`
	SubmissionID int64    `json:"submission_id"`
	QuestionID   int64    `json:"question_id"`
	Answer       string   `json:"answer"`
	AwardedMarks *float64 `json:"awarded_marks,omitempty"`
	Feedback     string   `json:"feedback,omitempty"`
}

// SubmissionSummary is a submission row for listings, without answers.
type SubmissionSummary struct {
	ID             int64     `json:"id"`
	ExamID         int64     `json:"exam_id"`
	TakerID        int64     `json:"taker_id"`
	TakerName      string    `json:"taker_name"`
	SubmittedAt    time.Time `json:"submitted_at"`
	IsEvaluated    bool      `json:"is_evaluated"`
	EvaluatedScore *float64  `json:"evaluated_score,omitempty"`
}

// ExamSummary is an exam row for listings, without questions.
type ExamSummary struct {
	ID              int64      `json:"id"`
	SetterID        int64      `json:"setter_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	OpenAt          *time.Time `json:"open_at,omitempty"`
	QuestionCount   int        `json:"question_count"`
	MaxScore        int        `json:"max_score"`
	CreatedAt       time.Time  `json:"created_at"`
}

// EvaluatedAnswer is the per-question output shape shared by the manual and
// automatic scoring paths. Totals are never carried here.
type EvaluatedAnswer struct {
	QuestionID   int64   `json:"question_id"`
	AwardedMarks float64 `json:"awarded_marks"`
	Feedback     string  `json:"feedback,omitempty"`
}

// AnswerInput is one answer in a submit request.
type AnswerInput struct {
	QuestionID int64  `json:"question_id"`
	Answer     string `json:"answer"`
}

// QuestionInput describes a question in an exam create/update request.
// CorrectOption is a zero-based index into Options for multiple choice;
// CorrectAnswer is the free-text key for short answers.
type QuestionInput struct {
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options,omitempty"`
	CorrectOption *int         `json:"correct_option,omitempty"`
	CorrectAnswer *string      `json:"correct_answer,omitempty"`
	Points        int          `json:"points"`
}

// ExamInput describes an exam create/update request.
type ExamInput struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Passcode        string          `json:"passcode"`
	DurationMinutes *int            `json:"duration_minutes,omitempty"`
	OpenAt          *time.Time      `json:"open_at,omitempty"`
	AllowedEmails   []string        `json:"allowed_emails,omitempty"`
	Questions       []QuestionInput `json:"questions"`
}

// ExamHistoryInfo is one entry of a taker's exam history.
type ExamHistoryInfo struct {
	ExamID         int64     `json:"exam_id"`
	ExamTitle      string    `json:"exam_title"`
	SubmittedAt    time.Time `json:"submitted_at"`
	IsEvaluated    bool      `json:"is_evaluated"`
	EvaluatedScore *float64  `json:"evaluated_score,omitempty"`
	MaxScore       int       `json:"max_score"`
}

// Stats is the aggregate performance derived from evaluated submissions.
type Stats struct {
	TotalExamsTaken    int              `json:"total_exams_taken"`
	AveragePercentage  float64          `json:"average_percentage"`
	HighestScoringExam *ExamHistoryInfo `json:"highest_scoring_exam,omitempty"`
}

// OracleItem is one question/answer/key tuple sent to the scoring oracle.
// Multiple-choice answers and keys are resolved to option text before the
// tuple is built.
type OracleItem struct {
	QuestionText string       `json:"question"`
	Type         QuestionType `json:"type"`
	Points       int          `json:"points"`
	AnswerText   string       `json:"answer"`
	KeyText      string       `json:"key,omitempty"`
}

// OracleGrade is the oracle's verdict for one item, in input order.
type OracleGrade struct {
	AwardedMarks float64 `json:"awarded_marks"`
	Feedback     string  `json:"feedback"`
}
