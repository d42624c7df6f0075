package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"testhub_backend/internal/config"
	"testhub_backend/internal/model"
	"testhub_backend/internal/repository"
	"testhub_backend/internal/util"
	"testhub_backend/pkg/logger"
	"testhub_backend/pkg/monitoring"
	"testhub_backend/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StudentDirectory is the platform's view of students: enrollment, batch
// membership and identity.
type StudentDirectory interface {
	IsEnrolled(ctx context.Context, courseID, studentID uint) (bool, error)
	BatchIDs(ctx context.Context, studentID uint) ([]uint, error)
	GetStudentIdentity(ctx context.Context, studentID uint) (model.StudentIdentity, error)
}

// AnalyticsCache stores per-test analytics snapshots.
type AnalyticsCache interface {
	Get(ctx context.Context, testID string, dest interface{}) (bool, error)
	Set(ctx context.Context, testID string, value interface{}) error
	Invalidate(ctx context.Context, testID string) error
}

// Requester identifies the caller of a teacher-side read.
type Requester struct {
	UserID uint
	Role   model.UserRole
}

type StartResult struct {
	Attempt *model.Attempt `json:"attempt"`
	Resumed bool           `json:"resumed"`
}

type SubmitInput struct {
	Answers   []model.AttemptAnswer
	TimeSpent int
}

type TestAttemptService struct {
	DB        *gorm.DB
	Tests     *repository.TestRepository
	Attempts  *repository.AttemptRepository
	Directory StudentDirectory
	// Cache is optional.
	Cache AnalyticsCache

	mu     sync.RWMutex
	engine config.EngineConfig
	now    func() time.Time
}

func NewTestAttemptService(
	db *gorm.DB,
	tests *repository.TestRepository,
	attempts *repository.AttemptRepository,
	directory StudentDirectory,
	cache AnalyticsCache,
	engine config.EngineConfig,
) *TestAttemptService {
	return &TestAttemptService{
		DB:        db,
		Tests:     tests,
		Attempts:  attempts,
		Directory: directory,
		Cache:     cache,
		engine:    engine,
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (s *TestAttemptService) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// UpdateEngineConfig applies retry settings on config reload.
func (s *TestAttemptService) UpdateEngineConfig(cfg config.EngineConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = cfg
	logger.Log.Info("Engine config updated",
		zap.Int("maxWriteRetries", cfg.MaxWriteRetries),
		zap.Int("retryBackoffMs", cfg.RetryBackoffMS))
}

func (s *TestAttemptService) clock() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

func (s *TestAttemptService) engineConfig() config.EngineConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// studentContext resolves the caller against the directory. It must run
// outside ledger transactions.
func (s *TestAttemptService) studentContext(ctx context.Context, courseID, studentID uint) (StudentContext, error) {
	student := StudentContext{StudentID: studentID}

	enrolled, err := s.Directory.IsEnrolled(ctx, courseID, studentID)
	if err != nil {
		return student, fmt.Errorf("check enrollment: %w", err)
	}
	student.Enrolled = enrolled

	batches, err := s.Directory.BatchIDs(ctx, studentID)
	if err != nil {
		return student, fmt.Errorf("load batches: %w", err)
	}
	student.BatchIDs = batches
	return student, nil
}

func (s *TestAttemptService) loadTest(ctx context.Context, testID string) (*model.Test, error) {
	test, err := s.Tests.FindTestByID(ctx, testID)
	if errors.Is(err, util.ErrTestNotFound) {
		return nil, deny(DenyTestNotFound)
	}
	return test, err
}

// withLedgerRetry runs fn in a transaction, retrying lost ledger races with
// a linear backoff. Once retries are exhausted the caller gets util.ErrTransient.
func (s *TestAttemptService) withLedgerRetry(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	cfg := s.engineConfig()
	retries := cfg.MaxWriteRetries
	if retries < 0 {
		retries = 0
	}
	backoff := cfg.RetryBackoff()

	for try := 0; ; try++ {
		err := s.DB.WithContext(ctx).Transaction(fn)
		if !errors.Is(err, util.ErrLedgerConflict) {
			return err
		}
		if try >= retries {
			monitoring.LedgerConflicts.WithLabelValues(op, "exhausted").Inc()
			logger.Log.Warn("Ledger write retries exhausted", zap.String("op", op), zap.Int("tries", try+1))
			return util.ErrTransient
		}
		monitoring.LedgerConflicts.WithLabelValues(op, "retried").Inc()
		logger.Log.Debug("Ledger conflict, retrying", zap.String("op", op), zap.Int("try", try+1))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(try+1)):
		}
	}
}

func (s *TestAttemptService) invalidateAnalytics(ctx context.Context, testID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, testID); err != nil {
		logger.Log.Warn("Failed to invalidate analytics cache", zap.String("testId", testID), zap.Error(err))
	}
}

func recordDenial(err error) {
	if reason, ok := DenyReasonOf(err); ok {
		monitoring.EligibilityDenied.WithLabelValues(reasonLabel(reason)).Inc()
	}
}

// recomputeStats projects the full ledger onto the locked test and writes it
// with a version check.
func recomputeStats(ctx context.Context, tests *repository.TestRepository, attempts *repository.AttemptRepository, test *model.Test) error {
	ledger, err := attempts.ListByTest(ctx, test.ID)
	if err != nil {
		return err
	}
	stats := ComputeStats(test.Questions, ledger, test.PassingMarks)
	return tests.UpdateStats(ctx, test, stats)
}

// StartOrResume returns the student's in-progress attempt, or opens a new one
// when the eligibility gate allows it.
func (s *TestAttemptService) StartOrResume(ctx context.Context, testID string, studentID uint) (result *StartResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "attempt.start_or_resume", testID)
	defer func() { tracing.EndSpan(span, err) }()

	// 1. 读取试卷，确定课程后查询学生信息（事务外）
	test, err := s.loadTest(ctx, testID)
	if err != nil {
		recordDenial(err)
		return nil, err
	}
	student, err := s.studentContext(ctx, test.CourseID, studentID)
	if err != nil {
		return nil, err
	}
	if err := CanAccess(test, student, s.clock()); err != nil {
		recordDenial(err)
		return nil, err
	}
	identity, err := s.Directory.GetStudentIdentity(ctx, studentID)
	if err != nil && !errors.Is(err, util.ErrUserNotFound) {
		return nil, fmt.Errorf("load student identity: %w", err)
	}

	// 2. 在事务中重新校验并写入答题记录
	err = s.withLedgerRetry(ctx, "start", func(tx *gorm.DB) error {
		tests := s.Tests.WithTx(tx)
		attempts := s.Attempts.WithTx(tx)
		now := s.clock()

		locked, err := tests.LockTestByID(ctx, testID)
		if err != nil {
			if errors.Is(err, util.ErrTestNotFound) {
				return deny(DenyTestNotFound)
			}
			return err
		}
		existing, err := attempts.ListByTestAndStudent(ctx, testID, studentID)
		if err != nil {
			return err
		}
		if err := CanStart(locked, student, now, existing); err != nil {
			return err
		}

		if active := activeAttempt(existing); active != nil {
			result = &StartResult{Attempt: active, Resumed: true}
			return nil
		}

		slot := model.ActiveSlotKey(testID, studentID)
		attempt := &model.Attempt{
			TestID:        testID,
			StudentID:     studentID,
			AttemptNumber: len(existing) + 1,
			StudentName:   identity.Name,
			StudentEmail:  identity.Email,
			Status:        model.AttemptInProgress,
			ActiveSlot:    &slot,
			StartedAt:     now,
			Answers:       []model.AttemptAnswer{},
		}
		if err := attempts.Create(ctx, attempt); err != nil {
			return err
		}
		if err := recomputeStats(ctx, tests, attempts, locked); err != nil {
			return err
		}
		result = &StartResult{Attempt: attempt}
		return nil
	})
	if err != nil {
		recordDenial(err)
		return nil, err
	}

	if result.Resumed {
		monitoring.AttemptEvents.WithLabelValues("resumed").Inc()
		logger.Log.Info("Attempt resumed",
			zap.String("testId", testID),
			zap.Uint("studentId", studentID),
			zap.Int("attemptNumber", result.Attempt.AttemptNumber))
		return result, nil
	}

	s.invalidateAnalytics(ctx, testID)
	monitoring.AttemptEvents.WithLabelValues("started").Inc()
	logger.Log.Info("Attempt started",
		zap.String("testId", testID),
		zap.Uint("studentId", studentID),
		zap.String("attemptId", result.Attempt.ID),
		zap.Int("attemptNumber", result.Attempt.AttemptNumber))
	return result, nil
}

// Submit closes the student's in-progress attempt with the given answers.
// It is not gated by eligibility: an attempt opened in time may be submitted
// after the window closes.
func (s *TestAttemptService) Submit(ctx context.Context, testID string, studentID uint, in SubmitInput) (submitted *model.Attempt, err error) {
	ctx, span := tracing.StartSpan(ctx, "attempt.submit", testID)
	defer func() { tracing.EndSpan(span, err) }()

	timeSpent := in.TimeSpent
	if timeSpent < 0 {
		timeSpent = 0
	}

	err = s.withLedgerRetry(ctx, "submit", func(tx *gorm.DB) error {
		tests := s.Tests.WithTx(tx)
		attempts := s.Attempts.WithTx(tx)
		now := s.clock()

		// 1. 锁定试卷并查找进行中的答题
		test, err := tests.LockTestByID(ctx, testID)
		if err != nil {
			return err
		}
		existing, err := attempts.ListByTestAndStudent(ctx, testID, studentID)
		if err != nil {
			return err
		}
		active := activeAttempt(existing)
		if active == nil {
			return util.ErrNoActiveAttempt
		}

		// 2. 评分
		attempt := *active
		attempt.Status = model.AttemptSubmitted
		attempt.SubmittedAt = &now
		attempt.TimeSpent = timeSpent
		if test.Type.AutoScored() {
			score := ScoreAnswers(test.Questions, in.Answers)
			attempt.Answers = score.Answers
			attempt.TotalScore = float64Ptr(score.TotalScore)
			attempt.Percentage = float64Ptr(score.Percentage)
		} else {
			// 主观题等待人工批改
			attempt.Answers = stripGrading(in.Answers)
			attempt.TotalScore = float64Ptr(0)
			attempt.Percentage = float64Ptr(0)
		}

		// 3. 条件更新答题记录并重新计算统计
		if err := attempts.UpdateSubmitted(ctx, &attempt); err != nil {
			return err
		}
		if err := recomputeStats(ctx, tests, attempts, test); err != nil {
			return err
		}
		submitted = &attempt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAnalytics(ctx, testID)
	monitoring.AttemptEvents.WithLabelValues("submitted").Inc()
	logger.Log.Info("Attempt submitted",
		zap.String("testId", testID),
		zap.Uint("studentId", studentID),
		zap.String("attemptId", submitted.ID),
		zap.Float64("totalScore", submitted.Score()),
		zap.Float64("percentage", submitted.PercentageValue()))
	return submitted, nil
}

func stripGrading(answers []model.AttemptAnswer) []model.AttemptAnswer {
	out := make([]model.AttemptAnswer, 0, len(answers))
	for _, a := range answers {
		out = append(out, model.AttemptAnswer{QuestionNumber: a.QuestionNumber, Answer: a.Answer})
	}
	return out
}

// Summarize shapes one of the student's attempts, hiding scores until the
// test's visibility policy allows them.
func (s *TestAttemptService) Summarize(ctx context.Context, attempt *model.Attempt) (*AttemptSummary, error) {
	test, err := s.loadTest(ctx, attempt.TestID)
	if err != nil {
		return nil, err
	}
	out := summarize(test, attempt)
	return &out, nil
}

// GetTestForStudent renders the test for display, without answer keys.
func (s *TestAttemptService) GetTestForStudent(ctx context.Context, testID string, studentID uint) (*StudentTestView, error) {
	test, err := s.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	student, err := s.studentContext(ctx, test.CourseID, studentID)
	if err != nil {
		return nil, err
	}
	if err := CanAccess(test, student, s.clock()); err != nil {
		recordDenial(err)
		return nil, err
	}
	attempts, err := s.Attempts.ListByTestAndStudent(ctx, testID, studentID)
	if err != nil {
		return nil, err
	}
	return BuildStudentView(test, attempts), nil
}

// ListStudentAttempts returns the student's own history for a test.
func (s *TestAttemptService) ListStudentAttempts(ctx context.Context, testID string, studentID uint) ([]AttemptSummary, error) {
	test, err := s.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.Attempts.ListByTestAndStudent(ctx, testID, studentID)
	if err != nil {
		return nil, err
	}
	out := make([]AttemptSummary, 0, len(attempts))
	for i := range attempts {
		out = append(out, summarize(test, &attempts[i]))
	}
	return out, nil
}

// GetResult returns the result view of one of the student's attempts.
func (s *TestAttemptService) GetResult(ctx context.Context, testID, attemptID string, studentID uint) (*ResultView, error) {
	test, err := s.loadTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	attempt, err := s.Attempts.FindByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.TestID != testID {
		return nil, util.ErrAttemptNotFound
	}
	if attempt.StudentID != studentID {
		return nil, util.ErrPermissionDenied
	}
	if !CanViewResults(test, attempt) {
		return nil, util.ErrResultsNotAvailable
	}
	return BuildResultView(test, attempt), nil
}

// GetTestAnalytics returns the ledger projection to the owning teacher or an admin.
func (s *TestAttemptService) GetTestAnalytics(ctx context.Context, testID string, who Requester) (*TestAnalytics, error) {
	test, err := s.Tests.FindTestByID(ctx, testID)
	if err != nil {
		return nil, err
	}
	if who.Role != model.Admin && test.TeacherID != who.UserID {
		return nil, util.ErrPermissionDenied
	}

	if s.Cache != nil {
		var cached TestAnalytics
		found, err := s.Cache.Get(ctx, testID, &cached)
		if err != nil {
			logger.Log.Warn("Analytics cache read failed", zap.String("testId", testID), zap.Error(err))
		} else if found && cached.Version == test.Version {
			return &cached, nil
		}
	}

	attempts, err := s.Attempts.ListByTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	out := BuildAnalytics(test, attempts, s.clock())

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, testID, out); err != nil {
			logger.Log.Warn("Analytics cache write failed", zap.String("testId", testID), zap.Error(err))
		}
	}
	return out, nil
}

// SweepIncomplete closes in-progress attempts of tests whose end time has
// passed. It returns the number of attempts closed.
func (s *TestAttemptService) SweepIncomplete(ctx context.Context) (closed int64, err error) {
	ctx, span := tracing.StartSpan(ctx, "attempt.sweep_incomplete", "")
	defer func() { tracing.EndSpan(span, err) }()

	ids, err := s.Attempts.TestIDsWithOpenAttempts(ctx)
	if err != nil {
		return 0, err
	}
	tests, err := s.Tests.FindTestsByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	now := s.clock()
	for _, t := range tests {
		if t.EndTime == nil || !now.After(*t.EndTime) {
			continue
		}
		testID := t.ID
		var n int64
		err := s.withLedgerRetry(ctx, "sweep", func(tx *gorm.DB) error {
			tests := s.Tests.WithTx(tx)
			attempts := s.Attempts.WithTx(tx)

			locked, err := tests.LockTestByID(ctx, testID)
			if err != nil {
				return err
			}
			n, err = attempts.MarkIncomplete(ctx, testID)
			if err != nil || n == 0 {
				return err
			}
			return recomputeStats(ctx, tests, attempts, locked)
		})
		if err != nil {
			logger.Log.Error("Failed to sweep test", zap.String("testId", testID), zap.Error(err))
			continue
		}
		if n > 0 {
			closed += n
			s.invalidateAnalytics(ctx, testID)
			monitoring.AttemptEvents.WithLabelValues("incomplete").Add(float64(n))
			logger.Log.Info("Closed expired attempts", zap.String("testId", testID), zap.Int64("count", n))
		}
	}
	return closed, nil
}
