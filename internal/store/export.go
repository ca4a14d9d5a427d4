package store

import (
	"fmt"
	"time"

	"github.com/examhall/examhall/internal/model"
)

// ExportAllResults builds export-ready results for every exam that has at
// least one submission.
func (s *Store) ExportAllResults() (model.ResultsExport, error) {
	out := model.ResultsExport{GeneratedAt: time.Now()}

	rows, err := s.db.Query(`SELECT DISTINCT exam_id FROM submissions ORDER BY exam_id`)
	if err != nil {
		return out, fmt.Errorf("list exams with submissions: %w", err)
	}
	var examIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return out, err
		}
		examIDs = append(examIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return out, err
	}
	rows.Close()

	for _, examID := range examIDs {
		exam, err := s.GetExam(examID)
		if err != nil {
			return out, fmt.Errorf("get exam %d: %w", examID, err)
		}

		ee := model.ExamExport{
			ExamID:   exam.ID,
			Title:    exam.Title,
			MaxScore: exam.MaxScore(),
		}

		summaries, err := s.ListSubmissionsForExam(examID)
		if err != nil {
			return out, fmt.Errorf("list submissions for exam %d: %w", examID, err)
		}
		for _, sum := range summaries {
			sub, err := s.GetSubmission(sum.ID)
			if err != nil {
				return out, fmt.Errorf("get submission %d: %w", sum.ID, err)
			}
			taker, err := s.GetUserByID(sub.TakerID)
			if err != nil {
				return out, fmt.Errorf("get taker %d: %w", sub.TakerID, err)
			}

			se := model.SubmissionExport{
				SubmittedAt:    sub.SubmittedAt,
				IsEvaluated:    sub.IsEvaluated,
				EvaluatedScore: sub.EvaluatedScore,
			}
			if taker != nil {
				se.TakerName = taker.DisplayName
				se.TakerEmail = taker.Email
			}
			for _, a := range sub.Answers {
				q := exam.QuestionByID(a.QuestionID)
				if q == nil {
					continue
				}
				answerText := a.Answer
				if q.Type == model.QuestionMultipleChoice {
					answerText = resolveOptionText(*q, a.Answer)
				}
				se.Answers = append(se.Answers, model.AnswerExport{
					QuestionText: q.Text,
					Type:         q.Type,
					Points:       q.Points,
					Answer:       answerText,
					AwardedMarks: a.AwardedMarks,
					Feedback:     a.Feedback,
				})
			}
			ee.Submissions = append(ee.Submissions, se)
		}

		out.Exams = append(out.Exams, ee)
	}

	return out, nil
}

// resolveOptionText maps a stored option id back to the option's text.
// Unresolvable values pass through unchanged.
func resolveOptionText(q model.Question, raw string) string {
	var optID int64
	if _, err := fmt.Sscanf(raw, "%d", &optID); err != nil {
		return raw
	}
	if opt := q.OptionByID(optID); opt != nil {
		return opt.Text
	}
	return raw
}
