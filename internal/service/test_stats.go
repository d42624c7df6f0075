package service

import "testhub_backend/internal/model"

// DefaultPassPercentage applies when a test has no passing marks.
const DefaultPassPercentage = 40.0

// ComputeStats projects the question bank and the full attempt ledger onto
// the test's derived fields. Only submitted and evaluated attempts count
// towards the averages; both stay nil until one exists.
func ComputeStats(questions []model.Question, attempts []model.Attempt, passingMarks *float64) model.TestStats {
	stats := model.TestStats{
		TotalQuestions: len(questions),
		TotalAttempts:  len(attempts),
	}
	for _, q := range questions {
		stats.TotalMarks += q.Marks
	}
	stats.TotalMarks = round2(stats.TotalMarks)

	var scored, passed int
	var sum float64
	for i := range attempts {
		a := &attempts[i]
		if !a.Status.Scored() {
			continue
		}
		scored++
		sum += a.Score()
		if Passed(a, passingMarks) {
			passed++
		}
	}
	if scored == 0 {
		return stats
	}
	stats.AvgScore = float64Ptr(round2(sum / float64(scored)))
	stats.PassRate = float64Ptr(round2(float64(passed) / float64(scored) * 100))
	return stats
}

// Passed applies the pass rule to a scored attempt.
func Passed(a *model.Attempt, passingMarks *float64) bool {
	if passingMarks != nil {
		return a.Score() >= *passingMarks
	}
	return a.PercentageValue() >= DefaultPassPercentage
}
