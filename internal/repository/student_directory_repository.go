package repository

import (
	"context"
	"errors"

	"testhub_backend/internal/model"
	"testhub_backend/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StudentDirectoryRepository answers enrollment, batch membership and
// identity questions from the local users/enrollment tables.
type StudentDirectoryRepository struct {
	DB *gorm.DB
}

func NewStudentDirectoryRepository(db *gorm.DB) *StudentDirectoryRepository {
	return &StudentDirectoryRepository{DB: db}
}

func (r *StudentDirectoryRepository) IsEnrolled(ctx context.Context, courseID, studentID uint) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.CourseEnrollment{}).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *StudentDirectoryRepository) BatchIDs(ctx context.Context, studentID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.BatchMember{}).
		Where("student_id = ?", studentID).
		Order("batch_id ASC").
		Pluck("batch_id", &ids).Error
	return ids, err
}

func (r *StudentDirectoryRepository) GetStudentIdentity(ctx context.Context, studentID uint) (model.StudentIdentity, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Select("id", "name", "email").First(&user, studentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.StudentIdentity{}, util.ErrUserNotFound
	}
	if err != nil {
		return model.StudentIdentity{}, err
	}
	return model.StudentIdentity{Name: user.Name, Email: user.Email}, nil
}

// Enroll is idempotent.
func (r *StudentDirectoryRepository) Enroll(ctx context.Context, courseID, studentID uint) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.CourseEnrollment{CourseID: courseID, StudentID: studentID}).Error
}

// AddToBatch is idempotent.
func (r *StudentDirectoryRepository) AddToBatch(ctx context.Context, batchID, studentID uint) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.BatchMember{BatchID: batchID, StudentID: studentID}).Error
}

func (r *StudentDirectoryRepository) CreateUser(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}
