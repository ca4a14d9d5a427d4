// Package exam implements the core workflow: exam authoring, submission
// recording, evaluation reconciliation, and performance aggregation. Every
// operation authorizes against the caller supplied by the auth layer; none
// of them authenticates.
package exam

import (
	"context"
	"fmt"
	"time"

	"github.com/examhall/examhall/internal/model"
	"github.com/examhall/examhall/internal/store"
)

// Oracle grades a batch of question/answer/key tuples, returning one grade
// per item in input order. Implementations may fail wholesale.
type Oracle interface {
	GradeSubmission(ctx context.Context, items []model.OracleItem) ([]model.OracleGrade, error)
}

// Service wires the datastore and the scoring oracle into the exam workflow.
type Service struct {
	store  *store.Store
	oracle Oracle
}

// New creates a Service. The oracle may be nil; automatic evaluation then
// reports ErrScoringUnavailable while every other path keeps working.
func New(s *store.Store, o Oracle) *Service {
	return &Service{store: s, oracle: o}
}

// CreateExam validates and persists a new exam owned by the caller.
func (s *Service) CreateExam(ctx context.Context, caller *model.User, in model.ExamInput) (model.Exam, error) {
	if err := requireRole(caller, model.UserRoleSetter, model.UserRoleAdmin); err != nil {
		return model.Exam{}, err
	}
	if err := validateExamInput(in); err != nil {
		return model.Exam{}, err
	}
	id, err := s.store.CreateExam(caller.ID, in)
	if err != nil {
		return model.Exam{}, err
	}
	return s.store.GetExam(id)
}

// UpdateExam replaces an owned exam's attributes and question set.
func (s *Service) UpdateExam(ctx context.Context, caller *model.User, examID int64, in model.ExamInput) (model.Exam, error) {
	if _, err := s.ownedExam(caller, examID); err != nil {
		return model.Exam{}, err
	}
	if err := validateExamInput(in); err != nil {
		return model.Exam{}, err
	}
	if err := s.store.UpdateExam(examID, in); err != nil {
		return model.Exam{}, err
	}
	return s.store.GetExam(examID)
}

// DeleteExam removes an owned exam. Deletion is blocked while submissions
// reference it.
func (s *Service) DeleteExam(ctx context.Context, caller *model.User, examID int64) error {
	if _, err := s.ownedExam(caller, examID); err != nil {
		return err
	}
	return s.store.DeleteExam(examID)
}

// GetExam returns a full exam, including answer keys, to its owner.
func (s *Service) GetExam(ctx context.Context, caller *model.User, examID int64) (model.Exam, error) {
	return s.ownedExam(caller, examID)
}

// ListExams returns summaries of the caller's exams.
func (s *Service) ListExams(ctx context.Context, caller *model.User) ([]model.ExamSummary, error) {
	if err := requireRole(caller, model.UserRoleSetter, model.UserRoleAdmin); err != nil {
		return nil, err
	}
	return s.store.ListExamsBySetter(caller.ID)
}

// AvailableExams returns summaries of exams the taker may currently see.
func (s *Service) AvailableExams(ctx context.Context, caller *model.User) ([]model.ExamSummary, error) {
	if err := requireRole(caller, model.UserRoleTaker); err != nil {
		return nil, err
	}
	return s.store.ListAvailableExams(caller.Email, time.Now())
}

// AccessExam gates a taker's entry to an exam: open-at, allow-list, and
// passcode are all checked before the key-stripped exam is returned.
func (s *Service) AccessExam(ctx context.Context, caller *model.User, examID int64, passcode string) (model.Exam, error) {
	if err := requireRole(caller, model.UserRoleTaker); err != nil {
		return model.Exam{}, err
	}
	exam, err := s.store.GetExam(examID)
	if err != nil {
		return model.Exam{}, err
	}
	if err := checkExamAccess(exam, caller, passcode, time.Now()); err != nil {
		return model.Exam{}, err
	}
	return exam.Sanitized(), nil
}

// ListSubmissions returns submission rows for an owned exam.
func (s *Service) ListSubmissions(ctx context.Context, caller *model.User, examID int64) ([]model.SubmissionSummary, error) {
	if _, err := s.ownedExam(caller, examID); err != nil {
		return nil, err
	}
	return s.store.ListSubmissionsForExam(examID)
}

// GetSubmission returns a submission with answers. The exam owner and the
// submitting taker may read it; the taker sees it through history anyway.
func (s *Service) GetSubmission(ctx context.Context, caller *model.User, submissionID int64) (model.Submission, error) {
	if caller == nil {
		return model.Submission{}, model.ErrAccessDenied
	}
	sub, err := s.store.GetSubmission(submissionID)
	if err != nil {
		return model.Submission{}, err
	}
	if caller.ID == sub.TakerID || caller.Role == model.UserRoleAdmin {
		return sub, nil
	}
	exam, err := s.store.GetExam(sub.ExamID)
	if err != nil {
		return model.Submission{}, err
	}
	if exam.SetterID != caller.ID {
		return model.Submission{}, fmt.Errorf("submission %d: %w", submissionID, model.ErrAccessDenied)
	}
	return sub, nil
}

// ownedExam loads an exam and checks the caller owns it (admins pass).
func (s *Service) ownedExam(caller *model.User, examID int64) (model.Exam, error) {
	if err := requireRole(caller, model.UserRoleSetter, model.UserRoleAdmin); err != nil {
		return model.Exam{}, err
	}
	exam, err := s.store.GetExam(examID)
	if err != nil {
		return model.Exam{}, err
	}
	if exam.SetterID != caller.ID && caller.Role != model.UserRoleAdmin {
		return model.Exam{}, fmt.Errorf("exam %d: %w", examID, model.ErrAccessDenied)
	}
	return exam, nil
}

func requireRole(caller *model.User, allowed ...model.UserRole) error {
	if caller == nil {
		return model.ErrAccessDenied
	}
	for _, role := range allowed {
		if caller.Role == role {
			return nil
		}
	}
	return fmt.Errorf("role %s: %w", caller.Role, model.ErrAccessDenied)
}

// checkExamAccess enforces the taker-side gates in a fixed order: visibility
// first, then allow-list, then passcode.
func checkExamAccess(exam model.Exam, caller *model.User, passcode string, now time.Time) error {
	if exam.OpenAt != nil && now.Before(*exam.OpenAt) {
		return fmt.Errorf("exam %d opens at %s: %w", exam.ID, exam.OpenAt.Format(time.RFC3339), model.ErrExamNotYetOpen)
	}
	if exam.Restricted() {
		allowed := false
		for _, email := range exam.AllowedEmails {
			if email == caller.Email {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("taker %s not on exam allow-list: %w", caller.Username, model.ErrAccessDenied)
		}
	}
	// Exact match by design: the passcode is a convenience gate, not a credential.
	if exam.Passcode != passcode {
		return fmt.Errorf("wrong passcode for exam %d: %w", exam.ID, model.ErrAccessDenied)
	}
	return nil
}

func validateExamInput(in model.ExamInput) error {
	if in.Title == "" {
		return fmt.Errorf("exam title is required: %w", model.ErrInvalidInput)
	}
	if len(in.Questions) == 0 {
		return fmt.Errorf("exam must have at least one question: %w", model.ErrInvalidInput)
	}
	for i, q := range in.Questions {
		if q.Text == "" {
			return fmt.Errorf("question %d: text is required: %w", i+1, model.ErrInvalidInput)
		}
		if !model.ValidQuestionType(q.Type) {
			return fmt.Errorf("question %d: unknown type %q: %w", i+1, q.Type, model.ErrInvalidInput)
		}
		if q.Points < 0 {
			return fmt.Errorf("question %d: points must be non-negative: %w", i+1, model.ErrInvalidInput)
		}
		switch q.Type {
		case model.QuestionMultipleChoice:
			if len(q.Options) == 0 {
				return fmt.Errorf("question %d: multiple choice needs at least one option: %w", i+1, model.ErrInvalidInput)
			}
			if q.CorrectOption != nil && (*q.CorrectOption < 0 || *q.CorrectOption >= len(q.Options)) {
				return fmt.Errorf("question %d: correct option %d out of range: %w", i+1, *q.CorrectOption, model.ErrInvalidInput)
			}
			if q.CorrectAnswer != nil {
				return fmt.Errorf("question %d: multiple choice uses correct_option, not correct_answer: %w", i+1, model.ErrInvalidInput)
			}
		default:
			if len(q.Options) > 0 || q.CorrectOption != nil {
				return fmt.Errorf("question %d: options are only valid for multiple choice: %w", i+1, model.ErrInvalidInput)
			}
			if q.Type == model.QuestionEssay && q.CorrectAnswer != nil {
				return fmt.Errorf("question %d: essays have no answer key: %w", i+1, model.ErrInvalidInput)
			}
		}
	}
	return nil
}
