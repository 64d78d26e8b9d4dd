package engine

import (
	"fmt"
	"time"

	"github.com/sitepulse/pulse-go/internal/storage/sqlite"
	"go.uber.org/zap"
)

// SessionTracker maintains the rolling per-visitor session window. It runs
// off the request path: failures here are bookkeeping losses, never request
// failures.
type SessionTracker struct {
	sessions *sqlite.SessionDB
	window   time.Duration
	logger   *zap.Logger
}

// NewSessionTracker creates a new SessionTracker instance
func NewSessionTracker(sessions *sqlite.SessionDB, window time.Duration, logger *zap.Logger) *SessionTracker {
	return &SessionTracker{
		sessions: sessions,
		window:   window,
		logger:   logger,
	}
}

// Track applies one event to the visitor's session: continue the active
// session if one matches the token (or the identity when no token was
// supplied), otherwise close whatever is still open and start fresh.
func (t *SessionTracker) Track(hashedIP, token string) error {
	created, err := t.sessions.Track(hashedIP, token, t.window, time.Now())
	if err != nil {
		return fmt.Errorf("track session: %w", err)
	}

	t.logger.Debug("session tracked",
		zap.String("hashed_ip", shortHash(hashedIP)),
		zap.Bool("created", created),
	)
	return nil
}

// CloseStale closes open sessions that expired by time but were never
// superseded by a new event.
func (t *SessionTracker) CloseStale() (int64, error) {
	now := time.Now()
	closed, err := t.sessions.CloseStale(now.Add(-t.window), now)
	if err != nil {
		return 0, err
	}
	if closed > 0 {
		t.logger.Debug("closed stale sessions", zap.Int64("count", closed))
	}
	return closed, nil
}

// shortHash trims a hashed identity for log lines.
func shortHash(hashed string) string {
	if len(hashed) > 8 {
		return hashed[:8]
	}
	return hashed
}
