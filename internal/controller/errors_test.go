package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"testhub_backend/internal/service"
	"testhub_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", util.ErrTestNotFound, http.StatusNotFound, "Test not found"},
		{"not active", &service.EligibilityError{Reason: service.DenyTestNotActive}, http.StatusNotFound, service.DenyTestNotActive.Message()},
		{"eligibility", &service.EligibilityError{Reason: service.DenyEnded}, http.StatusForbidden, service.DenyEnded.Message()},
		{"no active attempt", util.ErrNoActiveAttempt, http.StatusConflict, ""},
		{"attempt not found", util.ErrAttemptNotFound, http.StatusNotFound, "Attempt not found"},
		{"not owner", util.ErrPermissionDenied, http.StatusForbidden, "Forbidden"},
		{"results hidden", util.ErrResultsNotAvailable, http.StatusForbidden, ""},
		{"invalid", fmt.Errorf("%w: title required", util.ErrInvalidTest), http.StatusBadRequest, ""},
		{"transient", util.ErrTransient, http.StatusServiceUnavailable, "Please try again"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ctx, _ := gin.CreateTestContext(w)
			ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(ctx, tc.err)

			assert.Equal(t, tc.status, w.Code)
			var body util.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.status, body.Code)
			if tc.message != "" {
				assert.Equal(t, tc.message, body.Message)
			}
			assert.NotContains(t, body.Message, "disk on fire")
		})
	}
}
