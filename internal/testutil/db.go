// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"
	"time"

	"testhub_backend/internal/config"
	"testhub_backend/internal/model"
	"testhub_backend/pkg/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewSQLiteDB returns a migrated private in-memory database.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000",
		LogLevel:   "silent",
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func Ptr[T any](v T) *T {
	return &v
}

// MCQTest builds an active, open-ended mcq test for course 1 with three
// one-mark questions whose keys are A, B and C.
func MCQTest() *model.Test {
	return &model.Test{
		Title:                  "Unit quiz",
		CourseID:               1,
		TeacherID:              100,
		Type:                   model.TestTypeMCQ,
		Status:                 model.TestStatusActive,
		IsActive:               true,
		Duration:               30,
		AllowMultipleAttempts:  true,
		ShowResultsImmediately: true,
		ShowCorrectAnswers:     true,
		TargetAudience:         model.AudienceAll,
		TotalQuestions:         3,
		TotalMarks:             3,
		Questions: []model.Question{
			{QuestionNumber: 1, QuestionText: "Q1", QuestionType: model.QuestionMCQ, Options: []string{"a1", "b1", "c1", "d1"}, CorrectAnswer: "A", Marks: 1},
			{QuestionNumber: 2, QuestionText: "Q2", QuestionType: model.QuestionMCQ, Options: []string{"a2", "b2", "c2", "d2"}, CorrectAnswer: "B", Marks: 1},
			{QuestionNumber: 3, QuestionText: "Q3", QuestionType: model.QuestionMCQ, Options: []string{"a3", "b3", "c3", "d3"}, CorrectAnswer: "C", Marks: 1},
		},
	}
}

// Clock is a settable time source.
type Clock struct {
	T time.Time
}

func NewClock() *Clock {
	return &Clock{T: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	return c.T
}

func (c *Clock) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}
