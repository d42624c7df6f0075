package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

// Context keys set by the auth middleware
const (
	ContextUserKey = "user"
	ContextUserID  = "userID"
)
