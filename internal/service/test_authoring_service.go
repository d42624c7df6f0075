package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"testhub_backend/internal/model"
	"testhub_backend/internal/repository"
	"testhub_backend/internal/util"
	"testhub_backend/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type QuestionReq struct {
	QuestionNumber  int                `json:"questionNumber" validate:"omitempty,min=1"`
	QuestionText    string             `json:"questionText" validate:"required"`
	QuestionType    model.QuestionType `json:"questionType" validate:"required,oneof=mcq true-false short-answer essay"`
	Options         []string           `json:"options" validate:"omitempty,dive,required"`
	CorrectAnswer   string             `json:"correctAnswer"`
	CorrectAnswers  []string           `json:"correctAnswers" validate:"omitempty,dive,required"`
	Marks           float64            `json:"marks" validate:"min=0"`
	NegativeMarking float64            `json:"negativeMarking" validate:"min=0"`
	Difficulty      string             `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Explanation     string             `json:"explanation"`
}

type CreateTestReq struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	CourseID    uint   `json:"courseId" validate:"required"`
	SubjectID   uint   `json:"subjectId"`
	ModuleID    uint   `json:"moduleId"`

	Type     model.TestType   `json:"type" validate:"required,oneof=mcq mixed pdf subjective"`
	Status   model.TestStatus `json:"status" validate:"omitempty,oneof=draft active closed archived"`
	IsActive *bool            `json:"isActive"`

	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Duration  int        `json:"duration" validate:"min=0"`

	AllowMultipleAttempts  bool     `json:"allowMultipleAttempts"`
	MaxAttempts            *int     `json:"maxAttempts" validate:"omitempty,min=1"`
	ShowResultsImmediately bool     `json:"showResultsImmediately"`
	ShowCorrectAnswers     bool     `json:"showCorrectAnswers"`
	ShuffleQuestions       bool     `json:"shuffleQuestions"`
	ShuffleOptions         bool     `json:"shuffleOptions"`
	PassingMarks           *float64 `json:"passingMarks" validate:"omitempty,min=0"`

	TargetAudience model.TargetAudience `json:"targetAudience" validate:"omitempty,oneof=all batch specific"`
	BatchIDs       []uint               `json:"batchIds"`
	StudentIDs     []uint               `json:"studentIds"`

	Questions []QuestionReq `json:"questions" validate:"required,min=1,dive"`
}

type TestAuthoringService struct {
	Tests    *repository.TestRepository
	validate *validator.Validate
}

func NewTestAuthoringService(tests *repository.TestRepository) *TestAuthoringService {
	return &TestAuthoringService{Tests: tests, validate: validator.New()}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", util.ErrInvalidTest, fmt.Sprintf(format, args...))
}

// CreateTest validates req and stores the test with its question bank.
func (s *TestAuthoringService) CreateTest(ctx context.Context, teacherID uint, req CreateTestReq) (*model.Test, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return nil, invalid("invalid fields %s", strings.Join(fields, ", "))
		}
		return nil, invalid("%v", err)
	}

	test := &model.Test{
		Title:                  req.Title,
		Description:            req.Description,
		CourseID:               req.CourseID,
		SubjectID:              req.SubjectID,
		ModuleID:               req.ModuleID,
		TeacherID:              teacherID,
		Type:                   req.Type,
		Status:                 req.Status,
		IsActive:               true,
		StartTime:              req.StartTime,
		EndTime:                req.EndTime,
		Duration:               req.Duration,
		AllowMultipleAttempts:  req.AllowMultipleAttempts,
		MaxAttempts:            req.MaxAttempts,
		ShowResultsImmediately: req.ShowResultsImmediately,
		ShowCorrectAnswers:     req.ShowCorrectAnswers,
		ShuffleQuestions:       req.ShuffleQuestions,
		ShuffleOptions:         req.ShuffleOptions,
		PassingMarks:           req.PassingMarks,
		TargetAudience:         req.TargetAudience,
		BatchIDs:               req.BatchIDs,
		StudentIDs:             req.StudentIDs,
	}
	if req.IsActive != nil {
		test.IsActive = *req.IsActive
	}
	if test.Status == "" {
		test.Status = model.TestStatusDraft
	}
	if test.TargetAudience == "" {
		test.TargetAudience = model.AudienceAll
	}

	questions, err := buildQuestions(req.Type, req.Questions)
	if err != nil {
		return nil, err
	}
	test.Questions = questions

	if err := checkPolicy(test); err != nil {
		return nil, err
	}

	// 题目数与总分由统计投影得出
	ComputeStats(test.Questions, nil, test.PassingMarks).Apply(test)
	if test.PassingMarks != nil && *test.PassingMarks > test.TotalMarks {
		return nil, invalid("passingMarks %.2f exceeds totalMarks %.2f", *test.PassingMarks, test.TotalMarks)
	}

	if err := s.Tests.CreateTest(ctx, test); err != nil {
		return nil, err
	}
	logger.Log.Info("Test created",
		zap.String("testId", test.ID),
		zap.Uint("teacherId", teacherID),
		zap.Int("questions", test.TotalQuestions))
	return test, nil
}

func checkPolicy(test *model.Test) error {
	if test.StartTime != nil && test.EndTime != nil && !test.EndTime.After(*test.StartTime) {
		return invalid("endTime must be after startTime")
	}
	if !test.AllowMultipleAttempts && test.MaxAttempts != nil && *test.MaxAttempts > 1 {
		return invalid("maxAttempts > 1 requires allowMultipleAttempts")
	}
	switch test.TargetAudience {
	case model.AudienceBatch:
		if len(test.BatchIDs) == 0 {
			return invalid("batch audience requires batchIds")
		}
	case model.AudienceSpecific:
		if len(test.StudentIDs) == 0 && len(test.BatchIDs) == 0 {
			return invalid("specific audience requires studentIds or batchIds")
		}
	}
	return nil
}

func buildQuestions(testType model.TestType, reqs []QuestionReq) ([]model.Question, error) {
	used := make(map[int]bool, len(reqs))
	out := make([]model.Question, 0, len(reqs))
	for i, r := range reqs {
		number := r.QuestionNumber
		if number == 0 {
			number = i + 1
		}
		if used[number] {
			return nil, invalid("duplicate questionNumber %d", number)
		}
		used[number] = true

		q := model.Question{
			QuestionNumber:  number,
			QuestionText:    r.QuestionText,
			QuestionType:    r.QuestionType,
			Options:         r.Options,
			CorrectAnswer:   strings.TrimSpace(r.CorrectAnswer),
			CorrectAnswers:  r.CorrectAnswers,
			Marks:           r.Marks,
			NegativeMarking: r.NegativeMarking,
			Difficulty:      r.Difficulty,
			Explanation:     r.Explanation,
		}
		if err := checkQuestion(testType, &q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func checkQuestion(testType model.TestType, q *model.Question) error {
	if testType == model.TestTypeMCQ && !q.QuestionType.Choice() {
		return invalid("question %d: mcq tests only allow mcq and true-false questions", q.QuestionNumber)
	}

	switch q.QuestionType {
	case model.QuestionMCQ:
		if len(q.Options) < 2 {
			return invalid("question %d: at least two options required", q.QuestionNumber)
		}
	case model.QuestionEssay:
		return nil
	}

	if !testType.AutoScored() {
		return nil
	}
	if q.CorrectAnswer == "" && len(q.CorrectAnswers) == 0 {
		return invalid("question %d: answer key required", q.QuestionNumber)
	}
	if !q.QuestionType.Choice() {
		return nil
	}
	keys := q.CorrectAnswers
	if len(keys) == 0 {
		keys = []string{q.CorrectAnswer}
	}
	for _, k := range keys {
		if _, ok := optionIndex(k, q.OptionList()); !ok {
			return invalid("question %d: answer %q matches no option", q.QuestionNumber, k)
		}
	}
	return nil
}
