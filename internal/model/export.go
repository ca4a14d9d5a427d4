package model

import "time"

// ResultsExport is the top-level JSON structure for exam results export.
type ResultsExport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Exams       []ExamExport `json:"exams"`
}

// ExamExport holds one exam's submissions for export.
type ExamExport struct {
	ExamID      int64              `json:"exam_id"`
	Title       string             `json:"title"`
	MaxScore    int                `json:"max_score"`
	Submissions []SubmissionExport `json:"submissions"`
}

// SubmissionExport holds one taker's submission data for export.
type SubmissionExport struct {
	TakerName      string         `json:"taker_name"`
	TakerEmail     string         `json:"taker_email,omitempty"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	IsEvaluated    bool           `json:"is_evaluated"`
	EvaluatedScore *float64       `json:"evaluated_score,omitempty"`
	Answers        []AnswerExport `json:"answers"`
}

// AnswerExport holds per-question data for export.
type AnswerExport struct {
	QuestionText string       `json:"question"`
	Type         QuestionType `json:"type"`
	Points       int          `json:"points"`
	Answer       string       `json:"answer"`
	AwardedMarks *float64     `json:"awarded_marks,omitempty"`
	Feedback     string       `json:"feedback,omitempty"`
}
