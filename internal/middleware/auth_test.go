package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"testhub_backend/internal/config"
	"testhub_backend/internal/model"
	"testhub_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func token(t *testing.T, secret string, id uint, role model.UserRole) string {
	t.Helper()
	u := &model.User{Role: role}
	u.ID = id
	tok, err := util.GenerateJWT(u, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestAuthAndRoleMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "s3cret"}}

	r := gin.New()
	grp := r.Group("/", AuthMiddleware(cfg))
	grp.GET("/me", func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).UserID)
	})
	grp.GET("/teach", RoleMiddleware(model.Teacher), func(c *gin.Context) { c.Status(http.StatusOK) })
	grp.GET("/learn", ExactRoleMiddleware(model.Student), func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(path, auth string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if auth != "" {
			req.Header.Set("Authorization", "Bearer "+auth)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do("/me", ""))
	assert.Equal(t, http.StatusUnauthorized, do("/me", token(t, "wrong", 1, model.Student)))
	assert.Equal(t, http.StatusOK, do("/me", token(t, "s3cret", 1, model.Student)))

	assert.Equal(t, http.StatusForbidden, do("/teach", token(t, "s3cret", 1, model.Student)))
	assert.Equal(t, http.StatusOK, do("/teach", token(t, "s3cret", 2, model.Teacher)))
	assert.Equal(t, http.StatusOK, do("/teach", token(t, "s3cret", 3, model.Admin)))

	assert.Equal(t, http.StatusOK, do("/learn", token(t, "s3cret", 1, model.Student)))
	assert.Equal(t, http.StatusForbidden, do("/learn", token(t, "s3cret", 2, model.Teacher)))
	assert.Equal(t, http.StatusForbidden, do("/learn", token(t, "s3cret", 3, model.Admin)))
}
