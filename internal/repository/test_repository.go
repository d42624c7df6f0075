package repository

import (
	"context"
	"errors"

	"testhub_backend/internal/model"
	"testhub_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

// WithTx returns a repository bound to tx.
func (r *TestRepository) WithTx(tx *gorm.DB) *TestRepository {
	return &TestRepository{DB: tx}
}

// CreateTest inserts the test together with its questions.
func (r *TestRepository) CreateTest(ctx context.Context, test *model.Test) error {
	return r.DB.WithContext(ctx).Create(test).Error
}

func (r *TestRepository) FindTestByID(ctx context.Context, id string) (*model.Test, error) {
	return r.findTest(r.DB.WithContext(ctx), id)
}

// LockTestByID loads the test with a row lock held until the surrounding
// transaction ends. SQLite has no row locks and serializes writers instead.
func (r *TestRepository) LockTestByID(ctx context.Context, id string) (*model.Test, error) {
	q := r.DB.WithContext(ctx)
	if r.DB.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.findTest(q, id)
}

func (r *TestRepository) findTest(q *gorm.DB, id string) (*model.Test, error) {
	var test model.Test
	err := q.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("question_number ASC")
	}).First(&test, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrTestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &test, nil
}

// UpdateStats writes the projection and bumps the version, provided nobody
// else bumped it first.
func (r *TestRepository) UpdateStats(ctx context.Context, test *model.Test, stats model.TestStats) error {
	res := r.DB.WithContext(ctx).Model(&model.Test{}).
		Where("id = ? AND version = ?", test.ID, test.Version).
		Updates(map[string]interface{}{
			"total_questions": stats.TotalQuestions,
			"total_marks":     stats.TotalMarks,
			"total_attempts":  stats.TotalAttempts,
			"avg_score":       stats.AvgScore,
			"pass_rate":       stats.PassRate,
			"version":         test.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return util.ErrLedgerConflict
	}
	stats.Apply(test)
	test.Version++
	return nil
}

// FindTestsByIDs loads tests without their questions.
func (r *TestRepository) FindTestsByIDs(ctx context.Context, ids []string) ([]model.Test, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tests []model.Test
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&tests).Error
	return tests, err
}
