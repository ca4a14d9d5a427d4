package exam

import (
	"context"

	"github.com/examhall/examhall/internal/model"
)

// History returns the caller's submission history, newest first.
func (s *Service) History(ctx context.Context, caller *model.User) ([]model.ExamHistoryInfo, error) {
	if err := requireRole(caller, model.UserRoleTaker); err != nil {
		return nil, err
	}
	return s.store.History(caller.ID)
}

// Performance derives aggregate stats from the caller's evaluated
// submissions. An empty history yields zeroed stats, not an error.
func (s *Service) Performance(ctx context.Context, caller *model.User) (model.Stats, error) {
	history, err := s.History(ctx, caller)
	if err != nil {
		return model.Stats{}, err
	}
	return computeStats(history), nil
}

// computeStats aggregates evaluated history entries: count, average
// percentage over summed scores and max scores, and the highest-scoring exam
// by absolute score with ties broken by earliest submission.
func computeStats(history []model.ExamHistoryInfo) model.Stats {
	var stats model.Stats
	var scoreSum float64
	var maxSum int

	for i := range history {
		h := history[i]
		if !h.IsEvaluated || h.EvaluatedScore == nil {
			continue
		}
		stats.TotalExamsTaken++
		scoreSum += *h.EvaluatedScore
		maxSum += h.MaxScore

		best := stats.HighestScoringExam
		switch {
		case best == nil,
			*h.EvaluatedScore > *best.EvaluatedScore,
			*h.EvaluatedScore == *best.EvaluatedScore && h.SubmittedAt.Before(best.SubmittedAt):
			entry := h
			stats.HighestScoringExam = &entry
		}
	}

	if maxSum > 0 {
		stats.AveragePercentage = 100 * scoreSum / float64(maxSum)
	}
	return stats
}
