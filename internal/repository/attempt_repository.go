package repository

import (
	"context"
	"errors"

	"testhub_backend/internal/model"
	"testhub_backend/internal/util"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) WithTx(tx *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: tx}
}

// Create appends an attempt to the ledger. Losing a race on the attempt
// number or the active slot yields util.ErrLedgerConflict.
func (r *AttemptRepository) Create(ctx context.Context, attempt *model.Attempt) error {
	return ledgerErr(r.DB.WithContext(ctx).Create(attempt).Error)
}

// ListByTest returns the whole ledger of a test.
func (r *AttemptRepository) ListByTest(ctx context.Context, testID string) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("student_id ASC, attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListByTestAndStudent(ctx context.Context, testID string, studentID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.WithContext(ctx).
		Where("test_id = ? AND student_id = ?", testID, studentID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) FindByID(ctx context.Context, id string) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.DB.WithContext(ctx).First(&attempt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// UpdateSubmitted persists a scored attempt. The write only applies while the
// stored row is still in progress.
func (r *AttemptRepository) UpdateSubmitted(ctx context.Context, attempt *model.Attempt) error {
	res := r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("id = ? AND status = ?", attempt.ID, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":       attempt.Status,
			"active_slot":  nil,
			"answers":      attempt.Answers,
			"total_score":  attempt.TotalScore,
			"percentage":   attempt.Percentage,
			"submitted_at": attempt.SubmittedAt,
			"time_spent":   attempt.TimeSpent,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return util.ErrLedgerConflict
	}
	attempt.ActiveSlot = nil
	return nil
}

// MarkIncomplete closes every in-progress attempt of a test.
func (r *AttemptRepository) MarkIncomplete(ctx context.Context, testID string) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("test_id = ? AND status = ?", testID, model.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":      model.AttemptIncomplete,
			"active_slot": nil,
		})
	return res.RowsAffected, res.Error
}

// TestIDsWithOpenAttempts lists tests that have at least one attempt in progress.
func (r *AttemptRepository) TestIDsWithOpenAttempts(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.Attempt{}).
		Where("status = ?", model.AttemptInProgress).
		Distinct("test_id").
		Pluck("test_id", &ids).Error
	return ids, err
}
