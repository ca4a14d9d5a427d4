package exam

import (
	"context"
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/examhall/examhall/internal/model"
	"github.com/examhall/examhall/internal/store"
)

// stubOracle returns canned grades or a canned error.
type stubOracle struct {
	grades []model.OracleGrade
	err    error
	items  []model.OracleItem
}

func (o *stubOracle) GradeSubmission(_ context.Context, items []model.OracleItem) ([]model.OracleGrade, error) {
	o.items = items
	if o.err != nil {
		return nil, o.err
	}
	return o.grades, nil
}

func newTestService(t *testing.T, oracle Oracle) (*Service, *store.Store) {
	t.Helper()
	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, oracle), st
}

func addUser(t *testing.T, st *store.Store, username string, role model.UserRole) *model.User {
	t.Helper()
	u := model.User{
		Username:     username,
		DisplayName:  username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
		Active:       true,
	}
	id, err := st.CreateUser(u)
	if err != nil {
		t.Fatalf("addUser(%s): %v", username, err)
	}
	u.ID = id
	return &u
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

// quizInput builds a two-question exam: a 10-point multiple choice with
// correct option "B" and a 15-point essay.
func quizInput() model.ExamInput {
	return model.ExamInput{
		Title:    "Biology Quiz",
		Passcode: "cells",
		Questions: []model.QuestionInput{
			{
				Text:          "Which organelle produces ATP?",
				Type:          model.QuestionMultipleChoice,
				Options:       []string{"A: Nucleus", "B: Mitochondrion", "C: Ribosome"},
				CorrectOption: intPtr(1),
				Points:        10,
			},
			{
				Text:   "Explain the role of the cell membrane.",
				Type:   model.QuestionEssay,
				Points: 15,
			},
		},
	}
}

func mustCreateExam(t *testing.T, svc *Service, setter *model.User, in model.ExamInput) model.Exam {
	t.Helper()
	exam, err := svc.CreateExam(context.Background(), setter, in)
	if err != nil {
		t.Fatalf("CreateExam: %v", err)
	}
	return exam
}

func optionID(t *testing.T, q model.Question, match string) string {
	t.Helper()
	for _, opt := range q.Options {
		if opt.Text == match {
			return strconv.FormatInt(opt.ID, 10)
		}
	}
	t.Fatalf("no option %q on question %d", match, q.ID)
	return ""
}

func TestCreateExamValidation(t *testing.T) {
	svc, st := newTestService(t, nil)
	setter := addUser(t, st, "teacher", model.UserRoleSetter)
	taker := addUser(t, st, "student", model.UserRoleTaker)
	ctx := context.Background()

	tests := []struct {
		name   string
		caller *model.User
		mutate func(*model.ExamInput)
	}{
		{"taker cannot author", taker, func(in *model.ExamInput) {}},
		{"empty title", setter, func(in *model.ExamInput) { in.Title = "" }},
		{"no questions", setter, func(in *model.ExamInput) { in.Questions = nil }},
		{"unknown type", setter, func(in *model.ExamInput) { in.Questions[1].Type = "TRUE_FALSE" }},
		{"negative points", setter, func(in *model.ExamInput) { in.Questions[1].Points = -1 }},
		{"mc without options", setter, func(in *model.ExamInput) { in.Questions[0].Options = nil }},
		{"correct option out of range", setter, func(in *model.ExamInput) { in.Questions[0].CorrectOption = intPtr(7) }},
		{"mc with text key", setter, func(in *model.ExamInput) {
			in.Questions[0].CorrectOption = nil
			in.Questions[0].CorrectAnswer = strPtr("B")
		}},
		{"essay with options", setter, func(in *model.ExamInput) { in.Questions[1].Options = []string{"yes"} }},
		{"essay with key", setter, func(in *model.ExamInput) { in.Questions[1].CorrectAnswer = strPtr("anything") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := quizInput()
			tt.mutate(&in)
			_, err := svc.CreateExam(ctx, tt.caller, in)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.caller == taker {
				if !errors.Is(err, model.ErrAccessDenied) {
					t.Errorf("expected ErrAccessDenied, got %v", err)
				}
			} else if !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestExamOwnership(t *testing.T) {
	svc, st := newTestService(t, nil)
	setter := addUser(t, st, "teacher", model.UserRoleSetter)
	rival := addUser(t, st, "rival", model.UserRoleSetter)
	admin := addUser(t, st, "root", model.UserRoleAdmin)
	ctx := context.Background()

	exam := mustCreateExam(t, svc, setter, quizInput())

	if _, err := svc.GetExam(ctx, rival, exam.ID); !errors.Is(err, model.ErrAccessDenied) {
		t.Errorf("rival GetExam: expected ErrAccessDenied, got %v", err)
	}
	if _, err := svc.UpdateExam(ctx, rival, exam.ID, quizInput()); !errors.Is(err, model.ErrAccessDenied) {
		t.Errorf("rival UpdateExam: expected ErrAccessDenied, got %v", err)
	}
	if err := svc.DeleteExam(ctx, rival, exam.ID); !errors.Is(err, model.ErrAccessDenied) {
		t.Errorf("rival DeleteExam: expected ErrAccessDenied, got %v", err)
	}

	// Admins pass the ownership check.
	if _, err := svc.GetExam(ctx, admin, exam.ID); err != nil {
		t.Errorf("admin GetExam: %v", err)
	}
	if err := svc.DeleteExam(ctx, admin, exam.ID); err != nil {
		t.Errorf("admin DeleteExam: %v", err)
	}
}

func TestAccessExamGates(t *testing.T) {
	svc, st := newTestService(t, nil)
	setter := addUser(t, st, "teacher", model.UserRoleSetter)
	taker := addUser(t, st, "student", model.UserRoleTaker)
	outsider := addUser(t, st, "outsider", model.UserRoleTaker)
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	in := quizInput()
	in.OpenAt = &future
	closed := mustCreateExam(t, svc, setter, in)

	_, err := svc.AccessExam(ctx, taker, closed.ID, "cells")
	if !errors.Is(err, model.ErrExamNotYetOpen) {
		t.Errorf("expected ErrExamNotYetOpen, got %v", err)
	}
	if !errors.Is(err, model.ErrAccessDenied) {
		t.Error("not-yet-open should match the AccessDenied kind")
	}

	in = quizInput()
	in.AllowedEmails = []string{"student@example.com"}
	restricted := mustCreateExam(t, svc, setter, in)

	if _, err := svc.AccessExam(ctx, outsider, restricted.ID, "cells"); !errors.Is(err, model.ErrAccessDenied) {
		t.Errorf("outsider: expected ErrAccessDenied, got %v", err)
	}
	if _, err := svc.AccessExam(ctx, taker, restricted.ID, "wrong"); !errors.Is(err, model.ErrAccessDenied) {
		t.Errorf("wrong passcode: expected ErrAccessDenied, got %v", err)
	}

	got, err := svc.AccessExam(ctx, taker, restricted.ID, "cells")
	if err != nil {
		t.Fatalf("AccessExam: %v", err)
	}
	// The taker view must carry no passcode, allow-list, or answer keys.
	if got.Passcode != "" || got.AllowedEmails != nil {
		t.Error("taker view leaked passcode or allow-list")
	}
	for _, q := range got.Questions {
		if q.CorrectAnswer != nil {
			t.Errorf("taker view leaked answer key on question %d", q.ID)
		}
	}

	if _, err := svc.AccessExam(ctx, setter, restricted.ID, "cells"); !errors.Is(err, model.ErrAccessDenied) {
		t.Errorf("setter taking own exam: expected ErrAccessDenied, got %v", err)
	}
}

func TestSubmitRejectsDuplicates(t *testing.T) {
	svc, st := newTestService(t, nil)
	setter := addUser(t, st, "teacher", model.UserRoleSetter)
	taker := addUser(t, st, "student", model.UserRoleTaker)
	ctx := context.Background()

	exam := mustCreateExam(t, svc, setter, quizInput())
	answers := []model.AnswerInput{
		{QuestionID: exam.Questions[1].ID, Answer: "It regulates transport."},
	}

	first, err := svc.Submit(ctx, taker, exam.ID, "cells", answers)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// The snapshot covers every question, answered or not.
	if len(first.Answers) != 2 {
		t.Fatalf("expected 2 answers in snapshot, got %d", len(first.Answers))
	}
	if first.Answers[0].Answer != "" {
		t.Errorf("unanswered question must be stored empty, got %q", first.Answers[0].Answer)
	}

	_, err = svc.Submit(ctx, taker, exam.ID, "cells", answers)
	if !errors.Is(err, model.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists on second attempt, got %v", err)
	}
	count, _ := st.CountSubmissions(exam.ID, taker.ID)
	if count != 1 {
		t.Errorf("expected 1 submission row after duplicate attempt, got %d", count)
	}
}

func TestSubmitValidatesAnswers(t *testing.T) {
	svc, st := newTestService(t, nil)
	setter := addUser(t, st, "teacher", model.UserRoleSetter)
	taker := addUser(t, st, "student", model.UserRoleTaker)
	ctx := context.Background()

	exam := mustCreateExam(t, svc, setter, quizInput())

	_, err := svc.Submit(ctx, taker, exam.ID, "cells", []model.AnswerInput{
		{QuestionID: 9999, Answer: "stray"},
	})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("foreign question: expected ErrInvalidInput, got %v", err)
	}

	qid := exam.Questions[1].ID
	_, err = svc.Submit(ctx, taker, exam.ID, "cells", []model.AnswerInput{
		{QuestionID: qid, Answer: "one"},
		{QuestionID: qid, Answer: "two"},
	})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("duplicate answer: expected ErrInvalidInput, got %v", err)
	}

	count, _ := st.CountSubmissions(exam.ID, taker.ID)
	if count != 0 {
		t.Errorf("rejected submits must leave no rows, got %d", count)
	}
}

func TestSubmitBlockedBeforeOpenAt(t *testing.T) {
	svc, st := newTestService(t, nil)
	setter := addUser(t, st, "teacher", model.UserRoleSetter)
	taker := addUser(t, st, "student", model.UserRoleTaker)
	ctx := context.Background()

	future := time.Now().Add(30 * time.Minute)
	in := quizInput()
	in.OpenAt = &future
	exam := mustCreateExam(t, svc, setter, in)

	_, err := svc.Submit(ctx, taker, exam.ID, "cells", nil)
	if !errors.Is(err, model.ErrExamNotYetOpen) {
		t.Fatalf("expected ErrExamNotYetOpen, got %v", err)
	}
	count, _ := st.CountSubmissions(exam.ID, taker.ID)
	if count != 0 {
		t.Errorf("blocked submit must leave no rows, got %d", count)
	}
}

func TestManualEvaluation(t *testing.T) {
	svc, st := newTestService(t, nil)
	setter := addUser(t, st, "teacher", model.UserRoleSetter)
	taker := addUser(t, st, "student", model.UserRoleTaker)
	ctx := context.Background()

	exam := mustCreateExam(t, svc, setter, quizInput())
	mcq, essay := exam.Questions[0], exam.Questions[1]

	sub, err := svc.Submit(ctx, taker, exam.ID, "cells", []model.AnswerInput{
		{QuestionID: mcq.ID, Answer: optionID(t, mcq, "B: Mitochondrion")},
		{QuestionID: essay.ID, Answer: "It keeps the inside in."},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got, err := svc.SaveEvaluation(ctx, setter, sub.ID, []model.EvaluatedAnswer{
		{QuestionID: mcq.ID, AwardedMarks: 10, Feedback: "correct"},
		{QuestionID: essay.ID, AwardedMarks: 12, Feedback: "solid but brief"},
	})
	if err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}
	if !got.IsEvaluated {
		t.Error("expected evaluated submission")
	}
	if got.EvaluatedScore == nil || *got.EvaluatedScore != 22 {
		t.Errorf("expected total 22 of %d, got %v", exam.MaxScore(), got.EvaluatedScore)
	}
	if got.Answers[1].Feedback != "solid but brief" {
		t.Errorf("expected essay feedback, got %q", got.Answers[1].Feedback)
	}

	// Re-evaluation replaces the previous verdict wholesale.
	got, err = svc.SaveEvaluation(ctx, setter, sub.ID, []model.EvaluatedAnswer{
		{QuestionID: mcq.ID, AwardedMarks: 10},
		{QuestionID: essay.ID, AwardedMarks: 15, Feedback: "on reflection, full marks"},
	})
	if err != nil {
		t.Fatalf("SaveEvaluation (again): %v", err)
	}
	if *got.EvaluatedScore != 25 {
		t.Errorf("expected total 25 after re-evaluation, got %v", *got.EvaluatedScore)
	}
}

func TestEvaluationOmittedQuestionDefaultsToZero(t *testing.T) {
	svc, st := newTestService(t, nil)
	setter := addUser(t, st, "teacher", model.UserRoleSetter)
	taker := addUser(t, st, "student", model.UserRoleTaker)
	ctx := context.Background()

	exam := mustCreateExam(t, svc, setter, quizInput())
	sub, _ := svc.Submit(ctx, taker, exam.ID, "cells", nil)

	got, err := svc.SaveEvaluation(ctx, setter, sub.ID, []model.EvaluatedAnswer{
		{QuestionID: exam.Questions[1].ID, AwardedMarks: 9},
	})
	if err != nil {
		t.Fatalf("SaveEvaluation: %v", err)
	}
	if got.EvaluatedScore == nil || *got.EvaluatedScore != 9 {
		t.Errorf("expected total 9, got %v", got.EvaluatedScore)
	}
	if got.Answers[0].AwardedMarks == nil || *got.Answers[0].AwardedMarks != 0 {
		t.Errorf("omitted question must get zero marks, got %v", got.Answers[0].AwardedMarks)
	}
}

func TestEvaluationRejectsInvalidMarks(t *testing.T) {
	svc, st := newTestService(t, nil)
	setter := addUser(t, st, "teacher", model.UserRoleSetter)
	rival := addUser(t, st, "rival", model.UserRoleSetter)
	taker := addUser(t, st, "student", model.UserRoleTaker)
	ctx := context.Background()

	exam := mustCreateExam(t, svc, setter, quizInput())
	mcq, essay := exam.Questions[0], exam.Questions[1]
	sub, _ := svc.Submit(ctx, taker, exam.ID, "cells", nil)

	tests := []struct {
		name      string
		evaluated []model.EvaluatedAnswer
	}{
		{"negative", []model.EvaluatedAnswer{{QuestionID: mcq.ID, AwardedMarks: -1}}},
		{"above ceiling", []model.EvaluatedAnswer{{QuestionID: mcq.ID, AwardedMarks: 10.5}}},
		{"nan", []model.EvaluatedAnswer{{QuestionID: essay.ID, AwardedMarks: math.NaN()}}},
		{"infinite", []model.EvaluatedAnswer{{QuestionID: essay.ID, AwardedMarks: math.Inf(1)}}},
		{"duplicate entry", []model.EvaluatedAnswer{
			{QuestionID: mcq.ID, AwardedMarks: 5},
			{QuestionID: mcq.ID, AwardedMarks: 6},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveEvaluation(ctx, setter, sub.ID, tt.evaluated)
			if !errors.Is(err, model.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	_, err := svc.SaveEvaluation(ctx, setter, sub.ID, []model.EvaluatedAnswer{
		{QuestionID: 9999, AwardedMarks: 1},
	})
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("foreign question: expected ErrInvalidInput, got %v", err)
	}

	// None of the rejected saves may have touched the submission.
	fresh, _ := st.GetSubmission(sub.ID)
	if fresh.IsEvaluated || fresh.EvaluatedScore != nil {
		t.Error("rejected evaluations must leave the submission untouched")
	}

	_, err = svc.SaveEvaluation(ctx, rival, sub.ID, []model.EvaluatedAnswer{
		{QuestionID: mcq.ID, AwardedMarks: 5},
	})
	if !errors.Is(err, model.ErrAccessDenied) {
		t.Errorf("rival evaluation: expected ErrAccessDenied, got %v", err)
	}
}

func TestAutoEvaluate(t *testing.T) {
	oracle := &stubOracle{grades: []model.OracleGrade{
		{AwardedMarks: 10, Feedback: "matches the key"},
		{AwardedMarks: 11, Feedback: "covers transport, misses signaling"},
	}}
	svc, st := newTestService(t, oracle)
	setter := addUser(t, st, "teacher", model.UserRoleSetter)
	taker := addUser(t, st, "student", model.UserRoleTaker)
	ctx := context.Background()

	exam := mustCreateExam(t, svc, setter, quizInput())
	mcq, essay := exam.Questions[0], exam.Questions[1]

	sub, err := svc.Submit(ctx, taker, exam.ID, "cells", []model.AnswerInput{
		{QuestionID: mcq.ID, Answer: optionID(t, mcq, "B: Mitochondrion")},
		{QuestionID: essay.ID, Answer: "Controls what enters and leaves."},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	got, err := svc.AutoEvaluate(ctx, setter, sub.ID)
	if err != nil {
		t.Fatalf("AutoEvaluate: %v", err)
	}
	if got.EvaluatedScore == nil || *got.EvaluatedScore != 21 {
		t.Errorf("expected total 21, got %v", got.EvaluatedScore)
	}
	if got.Answers[0].Feedback != "matches the key" {
		t.Errorf("expected oracle feedback on first answer, got %q", got.Answers[0].Feedback)
	}

	// The oracle must see option text, never stored option ids.
	if len(oracle.items) != 2 {
		t.Fatalf("expected 2 oracle items, got %d", len(oracle.items))
	}
	if oracle.items[0].AnswerText != "B: Mitochondrion" {
		t.Errorf("oracle answer = %q, want option text", oracle.items[0].AnswerText)
	}
	if oracle.items[0].KeyText != "B: Mitochondrion" {
		t.Errorf("oracle key = %q, want option text", oracle.items[0].KeyText)
	}
	if oracle.items[1].KeyText != "" {
		t.Errorf("essay must have no key, got %q", oracle.items[1].KeyText)
	}
}

func TestAutoEvaluateFailures(t *testing.T) {
	oracle := &stubOracle{}
	svc, st := newTestService(t, oracle)
	setter := addUser(t, st, "teacher", model.UserRoleSetter)
	taker := addUser(t, st, "student", model.UserRoleTaker)
	ctx := context.Background()

	exam := mustCreateExam(t, svc, setter, quizInput())
	sub, _ := svc.Submit(ctx, taker, exam.ID, "cells", nil)

	assertUnevaluated := func(t *testing.T) {
		t.Helper()
		fresh, _ := st.GetSubmission(sub.ID)
		if fresh.IsEvaluated || fresh.EvaluatedScore != nil {
			t.Error("failed auto-evaluation must leave the submission unevaluated")
		}
	}

	oracle.err = errors.New("connection refused")
	_, err := svc.AutoEvaluate(ctx, setter, sub.ID)
	if !errors.Is(err, model.ErrScoringUnavailable) {
		t.Errorf("oracle error: expected ErrScoringUnavailable, got %v", err)
	}
	assertUnevaluated(t)

	oracle.err = nil
	oracle.grades = []model.OracleGrade{{AwardedMarks: 5}}
	_, err = svc.AutoEvaluate(ctx, setter, sub.ID)
	if !errors.Is(err, model.ErrScoringUnavailable) {
		t.Errorf("grade count mismatch: expected ErrScoringUnavailable, got %v", err)
	}
	assertUnevaluated(t)

	// Out-of-range oracle marks hit the same validation as manual input.
	oracle.grades = []model.OracleGrade{{AwardedMarks: 99}, {AwardedMarks: 0}}
	_, err = svc.AutoEvaluate(ctx, setter, sub.ID)
	if !errors.Is(err, model.ErrInvalidMarks) {
		t.Errorf("out-of-range marks: expected ErrInvalidMarks, got %v", err)
	}
	assertUnevaluated(t)

	// No oracle configured at all.
	bare, st2 := newTestService(t, nil)
	setter2 := addUser(t, st2, "teacher", model.UserRoleSetter)
	taker2 := addUser(t, st2, "student", model.UserRoleTaker)
	exam2 := mustCreateExam(t, bare, setter2, quizInput())
	sub2, _ := bare.Submit(ctx, taker2, exam2.ID, "cells", nil)
	_, err = bare.AutoEvaluate(ctx, setter2, sub2.ID)
	if !errors.Is(err, model.ErrScoringUnavailable) {
		t.Errorf("nil oracle: expected ErrScoringUnavailable, got %v", err)
	}
}

func TestHistoryAndPerformance(t *testing.T) {
	svc, st := newTestService(t, nil)
	setter := addUser(t, st, "teacher", model.UserRoleSetter)
	taker := addUser(t, st, "student", model.UserRoleTaker)
	ctx := context.Background()

	// Empty history yields zeroed stats.
	stats, err := svc.Performance(ctx, taker)
	if err != nil {
		t.Fatalf("Performance (empty): %v", err)
	}
	if stats.TotalExamsTaken != 0 || stats.AveragePercentage != 0 || stats.HighestScoringExam != nil {
		t.Errorf("expected zeroed stats, got %+v", stats)
	}

	// Three exams: 8/10, 15/20, 5/10 evaluated, plus one unevaluated.
	scores := []struct {
		title  string
		points int
		marks  float64
	}{
		{"Quiz A", 10, 8},
		{"Quiz B", 20, 15},
		{"Quiz C", 10, 5},
	}
	for _, sc := range scores {
		exam := mustCreateExam(t, svc, setter, model.ExamInput{
			Title: sc.title,
			Questions: []model.QuestionInput{
				{Text: "Explain.", Type: model.QuestionEssay, Points: sc.points},
			},
		})
		sub, err := svc.Submit(ctx, taker, exam.ID, "", []model.AnswerInput{
			{QuestionID: exam.Questions[0].ID, Answer: "an answer"},
		})
		if err != nil {
			t.Fatalf("Submit(%s): %v", sc.title, err)
		}
		if _, err := svc.SaveEvaluation(ctx, setter, sub.ID, []model.EvaluatedAnswer{
			{QuestionID: exam.Questions[0].ID, AwardedMarks: sc.marks},
		}); err != nil {
			t.Fatalf("SaveEvaluation(%s): %v", sc.title, err)
		}
	}
	pending := mustCreateExam(t, svc, setter, model.ExamInput{
		Title: "Pending",
		Questions: []model.QuestionInput{
			{Text: "Explain.", Type: model.QuestionEssay, Points: 10},
		},
	})
	if _, err := svc.Submit(ctx, taker, pending.ID, "", nil); err != nil {
		t.Fatalf("Submit(pending): %v", err)
	}

	history, err := svc.History(ctx, taker)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(history))
	}

	stats, err = svc.Performance(ctx, taker)
	if err != nil {
		t.Fatalf("Performance: %v", err)
	}
	// Unevaluated submissions are excluded from every aggregate.
	if stats.TotalExamsTaken != 3 {
		t.Errorf("expected 3 evaluated exams, got %d", stats.TotalExamsTaken)
	}
	if math.Abs(stats.AveragePercentage-70.0) > 1e-9 {
		t.Errorf("expected average 70%%, got %v", stats.AveragePercentage)
	}
	if stats.HighestScoringExam == nil {
		t.Fatal("expected a highest-scoring exam")
	}
	if stats.HighestScoringExam.ExamTitle != "Quiz B" {
		t.Errorf("expected highest 'Quiz B', got %q", stats.HighestScoringExam.ExamTitle)
	}

	if _, err := svc.History(ctx, setter); !errors.Is(err, model.ErrAccessDenied) {
		t.Errorf("setter history: expected ErrAccessDenied, got %v", err)
	}
}

func TestComputeStatsTiebreak(t *testing.T) {
	score := func(v float64) *float64 { return &v }
	earlier := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	later := earlier.Add(48 * time.Hour)

	stats := computeStats([]model.ExamHistoryInfo{
		{ExamTitle: "Second", SubmittedAt: later, IsEvaluated: true, EvaluatedScore: score(12), MaxScore: 20},
		{ExamTitle: "First", SubmittedAt: earlier, IsEvaluated: true, EvaluatedScore: score(12), MaxScore: 15},
	})

	if stats.HighestScoringExam == nil {
		t.Fatal("expected a highest-scoring exam")
	}
	// Equal absolute scores resolve to the earliest submission.
	if stats.HighestScoringExam.ExamTitle != "First" {
		t.Errorf("expected earliest submission to win the tie, got %q", stats.HighestScoringExam.ExamTitle)
	}
}

func TestGetSubmissionAccess(t *testing.T) {
	svc, st := newTestService(t, nil)
	setter := addUser(t, st, "teacher", model.UserRoleSetter)
	rival := addUser(t, st, "rival", model.UserRoleSetter)
	taker := addUser(t, st, "student", model.UserRoleTaker)
	other := addUser(t, st, "other", model.UserRoleTaker)
	ctx := context.Background()

	exam := mustCreateExam(t, svc, setter, quizInput())
	sub, _ := svc.Submit(ctx, taker, exam.ID, "cells", nil)

	if _, err := svc.GetSubmission(ctx, taker, sub.ID); err != nil {
		t.Errorf("own submission: %v", err)
	}
	if _, err := svc.GetSubmission(ctx, setter, sub.ID); err != nil {
		t.Errorf("exam owner: %v", err)
	}
	if _, err := svc.GetSubmission(ctx, rival, sub.ID); !errors.Is(err, model.ErrAccessDenied) {
		t.Errorf("rival setter: expected ErrAccessDenied, got %v", err)
	}
	if _, err := svc.GetSubmission(ctx, other, sub.ID); !errors.Is(err, model.ErrAccessDenied) {
		t.Errorf("other taker: expected ErrAccessDenied, got %v", err)
	}
}
