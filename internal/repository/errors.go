package repository

import (
	"errors"
	"strings"

	"testhub_backend/internal/util"

	"gorm.io/gorm"
)

// isDuplicateKey covers drivers that do not translate constraint errors.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

// ledgerErr maps unique-constraint violations to util.ErrLedgerConflict.
func ledgerErr(err error) error {
	if isDuplicateKey(err) {
		return util.ErrLedgerConflict
	}
	return err
}
