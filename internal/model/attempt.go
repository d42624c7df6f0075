package model

import (
	"strconv"
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in-progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptEvaluated  AttemptStatus = "evaluated"
	AttemptIncomplete AttemptStatus = "incomplete"
)

// Scored reports whether the attempt carries a final or self-evaluated score.
func (s AttemptStatus) Scored() bool {
	return s == AttemptSubmitted || s == AttemptEvaluated
}

// Attempt is one entry of a test's attempt ledger.
//
// Storage enforces the ledger invariants: (test, student, attemptNumber) is
// unique, and ActiveSlot is non-NULL only while in progress and unique, so a
// second in-progress attempt for the same student cannot be inserted.
// swagger:model Attempt
type Attempt struct {
	UUIDBase
	TestID        string        `gorm:"type:varchar(36);not null;uniqueIndex:idx_attempt_number,priority:1" json:"testId"`
	StudentID     uint          `gorm:"not null;uniqueIndex:idx_attempt_number,priority:2;index" json:"studentId"`
	AttemptNumber int           `gorm:"not null;uniqueIndex:idx_attempt_number,priority:3" json:"attemptNumber"`
	StudentName   string        `gorm:"size:100" json:"studentName"`
	StudentEmail  string        `gorm:"size:100" json:"studentEmail"`
	Status        AttemptStatus `gorm:"size:20;not null;index" json:"status"`
	ActiveSlot    *string       `gorm:"size:64;uniqueIndex:idx_attempt_active_slot" json:"-"`

	StartedAt   time.Time  `gorm:"not null" json:"startedAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	TimeSpent   int        `gorm:"not null;default:0" json:"timeSpent"` // Seconds, client reported

	Answers    datatypes.JSONSlice[AttemptAnswer] `json:"answers"`
	TotalScore *float64                           `json:"totalScore,omitempty"`
	Percentage *float64                           `json:"percentage,omitempty"`

	GradedAt *time.Time `json:"gradedAt,omitempty"`
	GradedBy *uint      `json:"gradedBy,omitempty"`
	Feedback string     `gorm:"type:text" json:"feedback,omitempty"`
}

func (Attempt) TableName() string {
	return "test_attempts"
}

// ActiveSlotKey is the value an in-progress attempt holds in active_slot.
func ActiveSlotKey(testID string, studentID uint) string {
	return testID + ":" + strconv.FormatUint(uint64(studentID), 10)
}

// Score returns the recorded score, zero when none was recorded.
func (a *Attempt) Score() float64 {
	if a.TotalScore == nil {
		return 0
	}
	return *a.TotalScore
}

func (a *Attempt) PercentageValue() float64 {
	if a.Percentage == nil {
		return 0
	}
	return *a.Percentage
}
