package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"testhub_backend/internal/config"
	"testhub_backend/internal/model"
	"testhub_backend/internal/repository"
	"testhub_backend/internal/util"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "app-test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", Mode: "test"},
		Database: config.DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared&_busy_timeout=5000",
			LogLevel:   "silent",
		},
		JWT:    config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour},
		Log:    config.LogConfig{Path: filepath.Join(t.TempDir(), "app.log"), MaxSizeMB: 1},
		Engine: config.EngineConfig{MaxWriteRetries: 3, RetryBackoffMS: 1},
	}
	a, err := NewApp(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return a
}

func seedUser(t *testing.T, a *App, name string, role model.UserRole) (*model.User, string) {
	t.Helper()
	dir := repository.NewStudentDirectoryRepository(a.DB)
	u := &model.User{Name: name, Email: name + "@example.com", Role: role}
	require.NoError(t, dir.CreateUser(context.Background(), u))
	tok, err := util.GenerateJWT(u, testSecret, time.Hour)
	require.NoError(t, err)
	return u, tok
}

func call(t *testing.T, a *App, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestAttemptFlowOverHTTP(t *testing.T) {
	a := newTestApp(t)
	teacher, teacherTok := seedUser(t, a, "teacher", model.Teacher)
	student, studentTok := seedUser(t, a, "alice", model.Student)
	_, outsiderTok := seedUser(t, a, "bob", model.Student)

	dir := repository.NewStudentDirectoryRepository(a.DB)
	require.NoError(t, dir.Enroll(context.Background(), 7, student.ID))

	// 教师创建测试
	code, env := call(t, a, http.MethodPost, "/api/teacher/tests", teacherTok, map[string]interface{}{
		"title":                  "Quiz 1",
		"courseId":               7,
		"type":                   "mcq",
		"status":                 "active",
		"showResultsImmediately": true,
		"showCorrectAnswers":     true,
		"questions": []map[string]interface{}{
			{"questionNumber": 1, "questionText": "1+1", "questionType": "mcq", "options": []string{"1", "2", "3"}, "correctAnswer": "B", "marks": 2},
			{"questionNumber": 2, "questionText": "sky", "questionType": "true-false", "correctAnswer": "True", "marks": 1},
		},
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var created model.Test
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, teacher.ID, created.TeacherID)
	assert.Equal(t, 3.0, created.TotalMarks)

	base := "/api/student/tests/" + created.ID

	// 学生不能创建测试
	code, _ = call(t, a, http.MethodPost, "/api/teacher/tests", studentTok, map[string]interface{}{})
	assert.Equal(t, http.StatusForbidden, code)

	// 教师账号不能作为学生答题
	code, _ = call(t, a, http.MethodPost, base+"/start", teacherTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	// 未选课学生被拒绝
	code, env = call(t, a, http.MethodPost, base+"/start", outsiderTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Not enrolled in this course", env.Message)

	// 提交前没有进行中的答题
	code, _ = call(t, a, http.MethodPost, base+"/submit", studentTok, map[string]interface{}{"answers": []interface{}{}})
	assert.Equal(t, http.StatusConflict, code)

	// 开始与继续
	code, env = call(t, a, http.MethodPost, base+"/start", studentTok, nil)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var first struct {
		Attempt model.Attempt `json:"attempt"`
		Resumed bool          `json:"resumed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.False(t, first.Resumed)
	assert.Equal(t, 1, first.Attempt.AttemptNumber)

	code, env = call(t, a, http.MethodPost, base+"/start", studentTok, nil)
	require.Equal(t, http.StatusOK, code)
	var again struct {
		Attempt model.Attempt `json:"attempt"`
		Resumed bool          `json:"resumed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &again))
	assert.True(t, again.Resumed)
	assert.Equal(t, first.Attempt.ID, again.Attempt.ID)

	code, env = call(t, a, http.MethodGet, base, studentTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), "correctAnswer")

	// 字母与文本两种写法都能判对
	code, env = call(t, a, http.MethodPost, base+"/submit", studentTok, map[string]interface{}{
		"answers": []map[string]interface{}{
			{"questionNumber": 2, "answer": "true"},
			{"questionNumber": 1, "answer": "b"},
		},
		"timeSpent": 42,
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var summary struct {
		Status     model.AttemptStatus `json:"status"`
		TotalScore *float64            `json:"totalScore"`
		Percentage *float64            `json:"percentage"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, model.AttemptSubmitted, summary.Status)
	require.NotNil(t, summary.TotalScore)
	assert.Equal(t, 3.0, *summary.TotalScore)
	assert.Equal(t, 100.0, *summary.Percentage)

	code, env = call(t, a, http.MethodGet, base+"/attempts/"+first.Attempt.ID+"/result", studentTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"answers"`)

	code, _ = call(t, a, http.MethodGet, base+"/attempts/"+first.Attempt.ID+"/result", outsiderTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	// 不允许多次作答
	code, env = call(t, a, http.MethodPost, base+"/start", studentTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Multiple attempts not allowed", env.Message)

	code, env = call(t, a, http.MethodGet, base+"/attempts", studentTok, nil)
	require.Equal(t, http.StatusOK, code)
	var history struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Equal(t, 1, history.Total)

	code, env = call(t, a, http.MethodGet, "/api/teacher/tests/"+created.ID+"/analytics", teacherTok, nil)
	require.Equal(t, http.StatusOK, code)
	var analytics struct {
		TotalAttempts int      `json:"totalAttempts"`
		AvgScore      *float64 `json:"avgScore"`
		PassRate      *float64 `json:"passRate"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &analytics))
	assert.Equal(t, 1, analytics.TotalAttempts)
	require.NotNil(t, analytics.AvgScore)
	assert.Equal(t, 3.0, *analytics.AvgScore)
	require.NotNil(t, analytics.PassRate)
	assert.Equal(t, 100.0, *analytics.PassRate)

	code, _ = call(t, a, http.MethodGet, "/api/student/tests/"+uuid.NewString(), studentTok, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestHealthAndAuth(t *testing.T) {
	a := newTestApp(t)

	code, env := call(t, a, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"database":"up"`)

	code, _ = call(t, a, http.MethodGet, "/api/student/tests/x", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestConfigCallbackUpdatesEngine(t *testing.T) {
	a := newTestApp(t)
	called := false
	a.RegisterConfigCallback(func(cfg *config.Config) {
		called = cfg.Engine.MaxWriteRetries == 5
	})
	a.applyConfig(&config.Config{Engine: config.EngineConfig{MaxWriteRetries: 5}})
	assert.True(t, called)
}
