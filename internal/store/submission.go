package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/examhall/examhall/internal/model"
)

// CreateSubmission inserts a submission with its full answer set in one
// transaction. The UNIQUE (exam_id, taker_id) constraint is the duplicate
// guard; a constraint violation maps to ErrDuplicateSubmission so two
// concurrent submits can never both persist.
func (s *Store) CreateSubmission(examID, takerID int64, answers []model.UserAnswer) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO submissions (exam_id, taker_id, submitted_at) VALUES (?, ?, ?)`,
		examID, takerID, time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("exam %d, taker %d: %w", examID, takerID, model.ErrDuplicateSubmission)
		}
		return 0, err
	}
	submissionID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, a := range answers {
		if _, err := tx.Exec(
			`INSERT INTO answers (submission_id, question_id, answer) VALUES (?, ?, ?)`,
			submissionID, a.QuestionID, a.Answer,
		); err != nil {
			return 0, err
		}
	}

	return submissionID, tx.Commit()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetSubmission returns a submission with its answers in question order.
func (s *Store) GetSubmission(id int64) (model.Submission, error) {
	var sub model.Submission
	err := s.db.QueryRow(
		`SELECT id, exam_id, taker_id, submitted_at, is_evaluated, evaluated_score
		 FROM submissions WHERE id = ?`, id,
	).Scan(&sub.ID, &sub.ExamID, &sub.TakerID, &sub.SubmittedAt, &sub.IsEvaluated, &sub.EvaluatedScore)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Submission{}, fmt.Errorf("submission %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Submission{}, err
	}

	rows, err := s.db.Query(
		`SELECT a.id, a.submission_id, a.question_id, a.answer, a.awarded_marks, a.feedback
		 FROM answers a
		 JOIN questions q ON q.id = a.question_id
		 WHERE a.submission_id = ?
		 ORDER BY q.position`, id,
	)
	if err != nil {
		return model.Submission{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var a model.UserAnswer
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.QuestionID, &a.Answer, &a.AwardedMarks, &a.Feedback); err != nil {
			return model.Submission{}, err
		}
		sub.Answers = append(sub.Answers, a)
	}
	return sub, rows.Err()
}

// ListSubmissionsForExam returns submission rows for an exam, newest first.
func (s *Store) ListSubmissionsForExam(examID int64) ([]model.SubmissionSummary, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.exam_id, s.taker_id, u.display_name, s.submitted_at, s.is_evaluated, s.evaluated_score
		 FROM submissions s
		 JOIN users u ON u.id = s.taker_id
		 WHERE s.exam_id = ?
		 ORDER BY s.id DESC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []model.SubmissionSummary
	for rows.Next() {
		var sum model.SubmissionSummary
		if err := rows.Scan(&sum.ID, &sum.ExamID, &sum.TakerID, &sum.TakerName, &sum.SubmittedAt,
			&sum.IsEvaluated, &sum.EvaluatedScore); err != nil {
			return nil, err
		}
		subs = append(subs, sum)
	}
	return subs, rows.Err()
}

// CountSubmissions returns how many submissions exist for the (exam, taker)
// pair. Used by tests to verify the uniqueness guard.
func (s *Store) CountSubmissions(examID, takerID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM submissions WHERE exam_id = ? AND taker_id = ?`, examID, takerID,
	).Scan(&count)
	return count, err
}

// SaveEvaluation writes the full evaluated-answer set, the recomputed total,
// and the evaluated flag in one transaction. Callers pass marks for every
// question of the exam; the last writer's complete set wins, never a merge.
func (s *Store) SaveEvaluation(submissionID int64, evaluated []model.EvaluatedAnswer, total float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ea := range evaluated {
		res, err := tx.Exec(
			`UPDATE answers SET awarded_marks = ?, feedback = ? WHERE submission_id = ? AND question_id = ?`,
			ea.AwardedMarks, ea.Feedback, submissionID, ea.QuestionID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("submission %d has no answer row for question %d: %w",
				submissionID, ea.QuestionID, model.ErrNotFound)
		}
	}

	res, err := tx.Exec(
		`UPDATE submissions SET is_evaluated = 1, evaluated_score = ? WHERE id = ?`,
		total, submissionID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("submission %d: %w", submissionID, model.ErrNotFound)
	}

	return tx.Commit()
}

// History returns a taker's submissions joined with exam title and max score,
// newest first.
func (s *Store) History(takerID int64) ([]model.ExamHistoryInfo, error) {
	rows, err := s.db.Query(
		`SELECT s.exam_id, e.title, s.submitted_at, s.is_evaluated, s.evaluated_score,
		        (SELECT COALESCE(SUM(q.points), 0) FROM questions q WHERE q.exam_id = e.id)
		 FROM submissions s
		 JOIN exams e ON e.id = s.exam_id
		 WHERE s.taker_id = ?
		 ORDER BY s.id DESC`, takerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var history []model.ExamHistoryInfo
	for rows.Next() {
		var h model.ExamHistoryInfo
		if err := rows.Scan(&h.ExamID, &h.ExamTitle, &h.SubmittedAt, &h.IsEvaluated,
			&h.EvaluatedScore, &h.MaxScore); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
