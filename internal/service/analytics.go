package service

import (
	"time"

	"testhub_backend/internal/model"
)

// AttemptRecord is one row of the teacher's attempt table.
type AttemptRecord struct {
	AttemptID     string              `json:"attemptId"`
	StudentID     uint                `json:"studentId"`
	StudentName   string              `json:"studentName"`
	StudentEmail  string              `json:"studentEmail"`
	AttemptNumber int                 `json:"attemptNumber"`
	Status        model.AttemptStatus `json:"status"`
	StartedAt     time.Time           `json:"startedAt"`
	SubmittedAt   *time.Time          `json:"submittedAt,omitempty"`
	TimeSpent     int                 `json:"timeSpent"`
	TotalScore    *float64            `json:"totalScore,omitempty"`
	Percentage    *float64            `json:"percentage,omitempty"`
	Passed        *bool               `json:"passed,omitempty"`
}

// TestAnalytics is the read-only projection of a test's ledger.
type TestAnalytics struct {
	TestID         string          `json:"testId"`
	Title          string          `json:"title"`
	TotalQuestions int             `json:"totalQuestions"`
	TotalMarks     float64         `json:"totalMarks"`
	TotalAttempts  int             `json:"totalAttempts"`
	AvgScore       *float64        `json:"avgScore"`
	PassRate       *float64        `json:"passRate"`
	Attempts       []AttemptRecord `json:"attempts"`
	GeneratedAt    time.Time       `json:"generatedAt"`
	// Version is the test version the snapshot was built from.
	Version int `json:"version"`
}

// BuildAnalytics derives the projection from the ledger rather than from the
// cached columns, so it is correct even if the columns lag.
func BuildAnalytics(test *model.Test, attempts []model.Attempt, now time.Time) *TestAnalytics {
	stats := ComputeStats(test.Questions, attempts, test.PassingMarks)
	out := &TestAnalytics{
		TestID:         test.ID,
		Title:          test.Title,
		TotalQuestions: stats.TotalQuestions,
		TotalMarks:     stats.TotalMarks,
		TotalAttempts:  stats.TotalAttempts,
		AvgScore:       stats.AvgScore,
		PassRate:       stats.PassRate,
		Attempts:       make([]AttemptRecord, 0, len(attempts)),
		GeneratedAt:    now,
		Version:        test.Version,
	}
	for i := range attempts {
		a := &attempts[i]
		rec := AttemptRecord{
			AttemptID:     a.ID,
			StudentID:     a.StudentID,
			StudentName:   a.StudentName,
			StudentEmail:  a.StudentEmail,
			AttemptNumber: a.AttemptNumber,
			Status:        a.Status,
			StartedAt:     a.StartedAt,
			SubmittedAt:   a.SubmittedAt,
			TimeSpent:     a.TimeSpent,
		}
		if a.Status.Scored() {
			rec.TotalScore = float64Ptr(a.Score())
			rec.Percentage = float64Ptr(a.PercentageValue())
			rec.Passed = boolPtr(Passed(a, test.PassingMarks))
		}
		out.Attempts = append(out.Attempts, rec)
	}
	return out
}
