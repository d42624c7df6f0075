package service

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"testhub_backend/internal/model"
	"testhub_backend/internal/util"
)

// DenyReason is why the eligibility gate refused a student.
type DenyReason string

const (
	DenyTestNotFound       DenyReason = "test not found"
	DenyTestNotActive      DenyReason = "test is not active"
	DenyNotStarted         DenyReason = "test has not started yet"
	DenyEnded              DenyReason = "test has ended"
	DenyNotEnrolled        DenyReason = "not enrolled in this course"
	DenyNotTargeted        DenyReason = "not eligible for this test"
	DenyMultipleAttempts   DenyReason = "multiple attempts not allowed"
	DenyMaxAttemptsReached DenyReason = "maximum attempts reached"
)

// Message is the sentence shown to the student, e.g. "Test has ended".
func (r DenyReason) Message() string {
	s := string(r)
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// NotFound reports whether the reason should be presented as a missing test.
func (r DenyReason) NotFound() bool {
	return r == DenyTestNotFound || r == DenyTestNotActive
}

type EligibilityError struct {
	Reason DenyReason
}

func (e *EligibilityError) Error() string {
	return string(e.Reason)
}

// Is lets callers treat not-found and not-active denials as util.ErrTestNotFound.
func (e *EligibilityError) Is(target error) bool {
	return target == util.ErrTestNotFound && e.Reason.NotFound()
}

func deny(reason DenyReason) error {
	return &EligibilityError{Reason: reason}
}

// DenyReasonOf extracts the gate's reason from err, if any.
func DenyReasonOf(err error) (DenyReason, bool) {
	var ee *EligibilityError
	if errors.As(err, &ee) {
		return ee.Reason, true
	}
	return "", false
}

// StudentContext is what the gate needs to know about the caller. It is
// resolved from the student directory before any ledger transaction starts.
type StudentContext struct {
	StudentID uint
	Enrolled  bool
	BatchIDs  []uint
	Identity  model.StudentIdentity
}

func (s StudentContext) inAnyBatch(batchIDs []uint) bool {
	for _, want := range batchIDs {
		for _, have := range s.BatchIDs {
			if want == have {
				return true
			}
		}
	}
	return false
}

// CanAccess runs the access checks shared by start and display: the test is
// open, inside its time window, the student is enrolled and targeted.
func CanAccess(test *model.Test, student StudentContext, now time.Time) error {
	if test == nil {
		return deny(DenyTestNotFound)
	}
	if !test.Open() {
		return deny(DenyTestNotActive)
	}
	if test.StartTime != nil && now.Before(*test.StartTime) {
		return deny(DenyNotStarted)
	}
	if test.EndTime != nil && now.After(*test.EndTime) {
		return deny(DenyEnded)
	}
	if !student.Enrolled {
		return deny(DenyNotEnrolled)
	}

	switch test.TargetAudience {
	case model.AudienceSpecific:
		listed := false
		for _, id := range test.StudentIDs {
			if id == student.StudentID {
				listed = true
				break
			}
		}
		if !listed && !student.inAnyBatch(test.BatchIDs) {
			return deny(DenyNotTargeted)
		}
	case model.AudienceBatch:
		if !student.inAnyBatch(test.BatchIDs) {
			return deny(DenyNotTargeted)
		}
	}
	return nil
}

// CanStart decides whether StartOrResume may proceed given the student's
// existing attempts. An in-progress attempt always resumes, so the attempt
// count policy only applies when a new attempt would be created.
func CanStart(test *model.Test, student StudentContext, now time.Time, attempts []model.Attempt) error {
	if err := CanAccess(test, student, now); err != nil {
		return err
	}
	if activeAttempt(attempts) != nil {
		return nil
	}
	if len(attempts) > 0 && !test.AllowMultipleAttempts {
		return deny(DenyMultipleAttempts)
	}
	if test.MaxAttempts != nil && *test.MaxAttempts > 0 && len(attempts) >= *test.MaxAttempts {
		return deny(DenyMaxAttemptsReached)
	}
	return nil
}

// CanViewResults reports whether a finished attempt's result may be shown.
func CanViewResults(test *model.Test, attempt *model.Attempt) bool {
	if attempt.Status == model.AttemptInProgress {
		return false
	}
	return test.ShowResultsImmediately || attempt.Status == model.AttemptEvaluated
}

func activeAttempt(attempts []model.Attempt) *model.Attempt {
	for i := range attempts {
		if attempts[i].Status == model.AttemptInProgress {
			return &attempts[i]
		}
	}
	return nil
}

// reasonLabel is the metric label for a reason.
func reasonLabel(r DenyReason) string {
	return strings.ReplaceAll(string(r), " ", "_")
}
