package domain

import (
	"time"
)

// Session groups events from one hashed visitor identity within a rolling
// window. A session is active while session_end is null and session_start is
// within the window; starting a new session closes whatever was still open
// for the identity.
type Session struct {
	ID           string     `json:"id" db:"id"`
	HashedIP     string     `json:"hashed_ip" db:"hashed_ip"`
	SessionToken *string    `json:"session_token,omitempty" db:"session_token"`
	SessionStart time.Time  `json:"session_start" db:"session_start"`
	SessionEnd   *time.Time `json:"session_end,omitempty" db:"session_end"`
	PageCount    int64      `json:"page_count" db:"page_count"`
}

// Active reports whether the session is open and started within the window.
func (s *Session) Active(window time.Duration, now time.Time) bool {
	return s.SessionEnd == nil && s.SessionStart.After(now.Add(-window))
}
