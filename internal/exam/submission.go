package exam

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/examhall/examhall/internal/model"
)

// Submit records a taker's answer set as an immutable snapshot. The snapshot
// always covers every question of the exam; unanswered questions are stored
// with an empty answer. Evaluation is never triggered here.
func (s *Service) Submit(ctx context.Context, caller *model.User, examID int64, passcode string, answers []model.AnswerInput) (model.Submission, error) {
	if err := requireRole(caller, model.UserRoleTaker); err != nil {
		return model.Submission{}, err
	}
	exam, err := s.store.GetExam(examID)
	if err != nil {
		return model.Submission{}, err
	}
	if err := checkExamAccess(exam, caller, passcode, time.Now()); err != nil {
		return model.Submission{}, err
	}

	byQuestion := make(map[int64]string, len(answers))
	for _, a := range answers {
		if exam.QuestionByID(a.QuestionID) == nil {
			return model.Submission{}, fmt.Errorf("question %d does not belong to exam %d: %w",
				a.QuestionID, examID, model.ErrInvalidInput)
		}
		if _, dup := byQuestion[a.QuestionID]; dup {
			return model.Submission{}, fmt.Errorf("duplicate answer for question %d: %w",
				a.QuestionID, model.ErrInvalidInput)
		}
		byQuestion[a.QuestionID] = a.Answer
	}

	full := make([]model.UserAnswer, 0, len(exam.Questions))
	for _, q := range exam.Questions {
		full = append(full, model.UserAnswer{QuestionID: q.ID, Answer: byQuestion[q.ID]})
	}

	id, err := s.store.CreateSubmission(examID, caller.ID, full)
	if err != nil {
		return model.Submission{}, err
	}
	slog.Info("submission recorded", "submission_id", id, "exam_id", examID, "taker_id", caller.ID)
	return s.store.GetSubmission(id)
}

// SaveEvaluation reconciles an evaluated-answer set onto a submission. Marks
// are validated against each question's point ceiling before any write; the
// total is recomputed server-side over all questions of the exam, never read
// from the input. Re-evaluation overwrites the previous full set.
func (s *Service) SaveEvaluation(ctx context.Context, caller *model.User, submissionID int64, evaluated []model.EvaluatedAnswer) (model.Submission, error) {
	if err := requireRole(caller, model.UserRoleSetter, model.UserRoleAdmin); err != nil {
		return model.Submission{}, err
	}
	sub, err := s.store.GetSubmission(submissionID)
	if err != nil {
		return model.Submission{}, err
	}
	exam, err := s.store.GetExam(sub.ExamID)
	if err != nil {
		return model.Submission{}, err
	}
	if exam.SetterID != caller.ID && caller.Role != model.UserRoleAdmin {
		return model.Submission{}, fmt.Errorf("submission %d: %w", submissionID, model.ErrAccessDenied)
	}

	full, total, err := reconcileMarks(exam, evaluated)
	if err != nil {
		return model.Submission{}, err
	}

	if err := s.store.SaveEvaluation(submissionID, full, total); err != nil {
		return model.Submission{}, err
	}
	slog.Info("evaluation saved", "submission_id", submissionID, "score", total, "max_score", exam.MaxScore())
	return s.store.GetSubmission(submissionID)
}

// reconcileMarks validates the evaluated answers against the exam and expands
// them to the full question set. Questions omitted from the input default to
// zero marks; the whole save fails on the first invalid entry.
func reconcileMarks(exam model.Exam, evaluated []model.EvaluatedAnswer) ([]model.EvaluatedAnswer, float64, error) {
	byQuestion := make(map[int64]model.EvaluatedAnswer, len(evaluated))
	for _, ea := range evaluated {
		q := exam.QuestionByID(ea.QuestionID)
		if q == nil {
			return nil, 0, fmt.Errorf("question %d does not belong to exam %d: %w",
				ea.QuestionID, exam.ID, model.ErrInvalidInput)
		}
		if _, dup := byQuestion[ea.QuestionID]; dup {
			return nil, 0, fmt.Errorf("duplicate marks for question %d: %w", ea.QuestionID, model.ErrInvalidInput)
		}
		if math.IsNaN(ea.AwardedMarks) || math.IsInf(ea.AwardedMarks, 0) {
			return nil, 0, fmt.Errorf("question %d: marks are not a number: %w", ea.QuestionID, model.ErrInvalidMarks)
		}
		if ea.AwardedMarks < 0 || ea.AwardedMarks > float64(q.Points) {
			return nil, 0, fmt.Errorf("question %d: marks %v outside [0, %d]: %w",
				ea.QuestionID, ea.AwardedMarks, q.Points, model.ErrInvalidMarks)
		}
		byQuestion[ea.QuestionID] = ea
	}

	full := make([]model.EvaluatedAnswer, 0, len(exam.Questions))
	total := 0.0
	for _, q := range exam.Questions {
		ea, ok := byQuestion[q.ID]
		if !ok {
			slog.Warn("question omitted from evaluation, defaulting to zero marks",
				"exam_id", exam.ID, "question_id", q.ID)
			ea = model.EvaluatedAnswer{QuestionID: q.ID}
		}
		total += ea.AwardedMarks
		full = append(full, ea)
	}
	return full, total, nil
}

// AutoEvaluate grades a submission through the scoring oracle and saves the
// result via the same reconciliation path as a manual evaluation. Oracle
// failure leaves the submission unevaluated.
func (s *Service) AutoEvaluate(ctx context.Context, caller *model.User, submissionID int64) (model.Submission, error) {
	if err := requireRole(caller, model.UserRoleSetter, model.UserRoleAdmin); err != nil {
		return model.Submission{}, err
	}
	sub, err := s.store.GetSubmission(submissionID)
	if err != nil {
		return model.Submission{}, err
	}
	exam, err := s.store.GetExam(sub.ExamID)
	if err != nil {
		return model.Submission{}, err
	}
	if exam.SetterID != caller.ID && caller.Role != model.UserRoleAdmin {
		return model.Submission{}, fmt.Errorf("submission %d: %w", submissionID, model.ErrAccessDenied)
	}
	if s.oracle == nil {
		return model.Submission{}, fmt.Errorf("no oracle configured: %w", model.ErrScoringUnavailable)
	}

	items, order, err := buildOracleItems(exam, sub)
	if err != nil {
		return model.Submission{}, err
	}

	grades, err := s.oracle.GradeSubmission(ctx, items)
	if err != nil {
		return model.Submission{}, fmt.Errorf("grade submission %d: %w: %w", submissionID, model.ErrScoringUnavailable, err)
	}
	if len(grades) != len(items) {
		return model.Submission{}, fmt.Errorf("oracle returned %d grades for %d items: %w",
			len(grades), len(items), model.ErrScoringUnavailable)
	}

	evaluated := make([]model.EvaluatedAnswer, len(grades))
	for i, g := range grades {
		evaluated[i] = model.EvaluatedAnswer{
			QuestionID:   order[i],
			AwardedMarks: g.AwardedMarks,
			Feedback:     g.Feedback,
		}
	}

	// Oracle output gets the same validation as manual input.
	return s.SaveEvaluation(ctx, caller, submissionID, evaluated)
}

// buildOracleItems maps the submission onto oracle tuples in question order,
// resolving multiple-choice answers and keys to option text.
func buildOracleItems(exam model.Exam, sub model.Submission) ([]model.OracleItem, []int64, error) {
	answerByQuestion := make(map[int64]string, len(sub.Answers))
	for _, a := range sub.Answers {
		answerByQuestion[a.QuestionID] = a.Answer
	}

	items := make([]model.OracleItem, 0, len(exam.Questions))
	order := make([]int64, 0, len(exam.Questions))
	for _, q := range exam.Questions {
		item := model.OracleItem{
			QuestionText: q.Text,
			Type:         q.Type,
			Points:       q.Points,
			AnswerText:   answerByQuestion[q.ID],
		}
		if q.Type == model.QuestionMultipleChoice {
			item.AnswerText = optionText(q, item.AnswerText)
			if q.CorrectAnswer != nil {
				item.KeyText = optionText(q, *q.CorrectAnswer)
			}
		} else if q.CorrectAnswer != nil {
			item.KeyText = *q.CorrectAnswer
		}
		items = append(items, item)
		order = append(order, q.ID)
	}
	return items, order, nil
}

// optionText resolves a stored option id to the option's text; values that
// do not name an option of the question pass through unchanged.
func optionText(q model.Question, raw string) string {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return raw
	}
	if opt := q.OptionByID(id); opt != nil {
		return opt.Text
	}
	return raw
}
