package service

import (
	"testing"

	"testhub_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(status model.AttemptStatus, score, pct float64) model.Attempt {
	return model.Attempt{Status: status, TotalScore: &score, Percentage: &pct}
}

func TestComputeStats(t *testing.T) {
	questions := []model.Question{mcq(1, "A", 4), mcq(2, "B", 6)}
	attempts := []model.Attempt{
		scored(model.AttemptSubmitted, 8, 80),
		scored(model.AttemptEvaluated, 3, 30),
		scored(model.AttemptSubmitted, 5, 50),
		{Status: model.AttemptInProgress},
		{Status: model.AttemptIncomplete},
	}

	stats := ComputeStats(questions, attempts, nil)
	assert.Equal(t, 2, stats.TotalQuestions)
	assert.Equal(t, 10.0, stats.TotalMarks)
	assert.Equal(t, 5, stats.TotalAttempts)
	require.NotNil(t, stats.AvgScore)
	assert.Equal(t, 5.33, *stats.AvgScore)
	require.NotNil(t, stats.PassRate)
	assert.Equal(t, 66.67, *stats.PassRate)

	passing := 6.0
	stats = ComputeStats(questions, attempts, &passing)
	assert.Equal(t, 33.33, *stats.PassRate)
}

func TestComputeStatsWithoutScoredAttempts(t *testing.T) {
	stats := ComputeStats(nil, []model.Attempt{{Status: model.AttemptInProgress}}, nil)
	assert.Equal(t, 1, stats.TotalAttempts)
	assert.Nil(t, stats.AvgScore)
	assert.Nil(t, stats.PassRate)

	test := &model.Test{TotalAttempts: 9}
	stats.Apply(test)
	assert.Equal(t, 1, test.TotalAttempts)
	assert.Nil(t, test.AvgScore)
}
