package controller

import (
	"errors"

	"testhub_backend/internal/service"
	"testhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError maps engine errors to HTTP responses. Unknown errors are
// logged and hidden behind a generic 500.
func respondError(ctx *gin.Context, err error) {
	reason, denied := service.DenyReasonOf(err)

	switch {
	case errors.Is(err, util.ErrTestNotFound):
		msg := "Test not found"
		if denied {
			msg = reason.Message()
		}
		util.NotFound(ctx, msg)
	case denied:
		util.Forbidden(ctx, reason.Message())
	case errors.Is(err, util.ErrAttemptNotFound):
		util.NotFound(ctx, "Attempt not found")
	case errors.Is(err, util.ErrNoActiveAttempt):
		util.Conflict(ctx, "No active attempt found, start the test first")
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx, "")
	case errors.Is(err, util.ErrResultsNotAvailable):
		util.Forbidden(ctx, "Results are not available yet")
	case errors.Is(err, util.ErrInvalidTest):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrTransient):
		util.ServiceUnavailable(ctx, "Please try again")
	default:
		util.LogInternalError(ctx, err)
	}
}
