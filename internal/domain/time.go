package domain

import (
	"time"
)

// ParseTime converts a client-reported unix timestamp to time.Time.
// Zero means "not supplied".
func ParseTime(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

// Truncate bounds a free-text field to the storage column width.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
