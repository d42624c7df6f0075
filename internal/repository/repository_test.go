package repository

import (
	"context"
	"testing"
	"time"

	"testhub_backend/internal/model"
	"testhub_backend/internal/testutil"
	"testhub_backend/internal/util"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTest(t *testing.T, repo *TestRepository) *model.Test {
	t.Helper()
	test := testutil.MCQTest()
	// 打乱插入顺序，读取时应按题号排序
	test.Questions[0], test.Questions[2] = test.Questions[2], test.Questions[0]
	require.NoError(t, repo.CreateTest(context.Background(), test))
	return test
}

func inProgress(testID string, studentID uint, n int) *model.Attempt {
	slot := model.ActiveSlotKey(testID, studentID)
	return &model.Attempt{
		TestID:        testID,
		StudentID:     studentID,
		AttemptNumber: n,
		Status:        model.AttemptInProgress,
		ActiveSlot:    &slot,
		StartedAt:     time.Now(),
	}
}

func TestFindTestByIDOrdersQuestions(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewTestRepository(db)
	test := seedTest(t, repo)

	got, err := repo.FindTestByID(context.Background(), test.ID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 3)
	for i, q := range got.Questions {
		assert.Equal(t, i+1, q.QuestionNumber)
	}
	assert.Equal(t, []string{"a1", "b1", "c1", "d1"}, []string(got.Questions[0].Options))

	_, err = repo.FindTestByID(context.Background(), "missing")
	assert.ErrorIs(t, err, util.ErrTestNotFound)

	locked, err := repo.LockTestByID(context.Background(), test.ID)
	require.NoError(t, err)
	assert.Equal(t, test.ID, locked.ID)
}

func TestUpdateStatsChecksVersion(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewTestRepository(db)
	test := seedTest(t, repo)

	stale := *test
	stats := model.TestStats{TotalQuestions: 3, TotalMarks: 3, TotalAttempts: 1, AvgScore: testutil.Ptr(2.0)}
	require.NoError(t, repo.UpdateStats(ctx, test, stats))
	assert.Equal(t, 1, test.Version)
	assert.Equal(t, 1, test.TotalAttempts)

	assert.ErrorIs(t, repo.UpdateStats(ctx, &stale, stats), util.ErrLedgerConflict)

	got, err := repo.FindTestByID(ctx, test.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	require.NotNil(t, got.AvgScore)
	assert.Equal(t, 2.0, *got.AvgScore)
	assert.Nil(t, got.PassRate)
}

func TestAttemptLedgerConstraints(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	test := seedTest(t, NewTestRepository(db))
	attempts := NewAttemptRepository(db)

	first := inProgress(test.ID, 7, 1)
	require.NoError(t, attempts.Create(ctx, first))

	// 同一学生第二个进行中的答题
	assert.ErrorIs(t, attempts.Create(ctx, inProgress(test.ID, 7, 2)), util.ErrLedgerConflict)

	// 另一个学生不受影响
	require.NoError(t, attempts.Create(ctx, inProgress(test.ID, 8, 1)))

	now := time.Now()
	first.Status = model.AttemptSubmitted
	first.SubmittedAt = &now
	first.TotalScore = testutil.Ptr(2.0)
	first.Percentage = testutil.Ptr(66.67)
	first.Answers = []model.AttemptAnswer{{QuestionNumber: 1, Answer: model.SingleAnswer("A")}}
	require.NoError(t, attempts.UpdateSubmitted(ctx, first))
	assert.Nil(t, first.ActiveSlot)

	// 再次提交不会覆盖
	assert.ErrorIs(t, attempts.UpdateSubmitted(ctx, first), util.ErrLedgerConflict)

	// 重复的答题序号
	dup := inProgress(test.ID, 7, 1)
	assert.ErrorIs(t, attempts.Create(ctx, dup), util.ErrLedgerConflict)

	require.NoError(t, attempts.Create(ctx, inProgress(test.ID, 7, 2)))

	mine, err := attempts.ListByTestAndStudent(ctx, test.ID, 7)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, 1, mine[0].AttemptNumber)
	assert.Equal(t, model.AttemptSubmitted, mine[0].Status)
	require.Len(t, mine[0].Answers, 1)
	assert.Equal(t, []string{"A"}, mine[0].Answers[0].Answer.Values())

	all, err := attempts.ListByTest(ctx, test.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMarkIncompleteFreesSlots(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	test := seedTest(t, NewTestRepository(db))
	attempts := NewAttemptRepository(db)

	require.NoError(t, attempts.Create(ctx, inProgress(test.ID, 1, 1)))
	require.NoError(t, attempts.Create(ctx, inProgress(test.ID, 2, 1)))

	ids, err := attempts.TestIDsWithOpenAttempts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{test.ID}, ids)

	n, err := attempts.MarkIncomplete(ctx, test.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ids, err = attempts.TestIDsWithOpenAttempts(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, attempts.Create(ctx, inProgress(test.ID, 1, 2)))

	_, err = attempts.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
}

func TestStudentDirectory(t *testing.T) {
	ctx := context.Background()
	dir := NewStudentDirectoryRepository(testutil.NewSQLiteDB(t))

	user := &model.User{Name: "Lin", Email: "lin@example.com", Role: model.Student}
	require.NoError(t, dir.CreateUser(ctx, user))
	require.NoError(t, dir.Enroll(ctx, 1, user.ID))
	require.NoError(t, dir.Enroll(ctx, 1, user.ID))
	require.NoError(t, dir.AddToBatch(ctx, 20, user.ID))
	require.NoError(t, dir.AddToBatch(ctx, 10, user.ID))

	ok, err := dir.IsEnrolled(ctx, 1, user.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = dir.IsEnrolled(ctx, 2, user.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	batches, err := dir.BatchIDs(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{10, 20}, batches)

	id, err := dir.GetStudentIdentity(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StudentIdentity{Name: "Lin", Email: "lin@example.com"}, id)

	_, err = dir.GetStudentIdentity(ctx, 999)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestAnalyticsCacheSurfacesRedisErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	cache := NewAnalyticsCache(rdb, time.Minute)

	var dest map[string]interface{}
	found, err := cache.Get(context.Background(), "t-1", &dest)
	assert.Error(t, err)
	assert.False(t, found)
	assert.Error(t, cache.Set(context.Background(), "t-1", map[string]int{"a": 1}))
	assert.Error(t, cache.Invalidate(context.Background(), "t-1"))
}
