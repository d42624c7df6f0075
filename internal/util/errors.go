package util

import "errors"

var (
	ErrUserNotFound        = errors.New("用户不存在")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrTestNotFound        = errors.New("test not found")
	ErrInvalidTest         = errors.New("invalid test definition")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrNoActiveAttempt     = errors.New("no active attempt found")
	ErrResultsNotAvailable = errors.New("results are not available yet")

	// ErrLedgerConflict marks a lost race on the attempt ledger: a unique
	// constraint fired or a conditional update matched no row. It is retried
	// internally and never returned to callers.
	ErrLedgerConflict = errors.New("attempt ledger conflict")
	// ErrTransient is returned once ledger retries are exhausted.
	ErrTransient = errors.New("temporarily unable to record attempt, please retry")
)
