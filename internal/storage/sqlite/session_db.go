package sqlite

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sitepulse/pulse-go/internal/domain"
)

// SessionDB stores visitor sessions. The find-or-create transition runs as
// one transaction per event; the benign race where two concurrent events for
// the same identity each insert a session is accepted rather than locked
// away.
type SessionDB struct {
	*DB
}

// NewSessionDB creates a new SessionDB instance backed by a sibling database
// file (suffix "_sessions").
func NewSessionDB(dbURL string) (*SessionDB, error) {
	db, err := NewDB(withDBSuffix(dbURL, "_sessions"))
	if err != nil {
		return nil, err
	}

	sessionDB := &SessionDB{DB: db}

	if err := sessionDB.createTables(); err != nil {
		return nil, err
	}

	return sessionDB, nil
}

func (db *SessionDB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			hashed_ip TEXT NOT NULL,
			session_token TEXT,
			session_start DATETIME NOT NULL,
			session_end DATETIME,
			page_count INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_hashed_ip ON sessions(hashed_ip)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_session_start ON sessions(session_start)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_session_token ON sessions(session_token)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// Track applies one event to the session state machine: continue the active
// session when one matches, otherwise close whatever is still open for the
// identity and start a fresh session. Returns true when a new session row
// was created.
func (db *SessionDB) Track(hashedIP, token string, window time.Duration, now time.Time) (bool, error) {
	created := false

	err := db.Transaction(func(tx *sql.Tx) error {
		cutoff := now.Add(-window)

		var (
			row *sql.Row
		)
		if token != "" {
			row = tx.QueryRow(`
				SELECT id FROM sessions
				WHERE session_token = ? AND session_end IS NULL AND session_start > ?
				ORDER BY session_start DESC
				LIMIT 1
			`, token, cutoff)
		} else {
			row = tx.QueryRow(`
				SELECT id FROM sessions
				WHERE hashed_ip = ? AND session_end IS NULL AND session_start > ?
				ORDER BY session_start DESC
				LIMIT 1
			`, hashedIP, cutoff)
		}

		var sessionID string
		err := row.Scan(&sessionID)
		if err == nil {
			// Active session: extend it, nothing else changes.
			_, err = tx.Exec(`UPDATE sessions SET page_count = page_count + 1 WHERE id = ?`, sessionID)
			return err
		}
		if err != sql.ErrNoRows {
			return err
		}

		// No active session. Close sessions the window expired but nothing
		// ever closed, then start over.
		if _, err := tx.Exec(`
			UPDATE sessions SET session_end = ? WHERE hashed_ip = ? AND session_end IS NULL
		`, now, hashedIP); err != nil {
			return err
		}

		var tokenValue interface{}
		if token != "" {
			tokenValue = token
		}
		if _, err := tx.Exec(`
			INSERT INTO sessions (id, hashed_ip, session_token, session_start, session_end, page_count)
			VALUES (?, ?, ?, ?, NULL, 1)
		`, uuid.New().String(), hashedIP, tokenValue, now); err != nil {
			return err
		}

		created = true
		return nil
	})

	return created, err
}

// CloseStale closes open sessions that started at or before the cutoff and
// returns how many were closed.
func (db *SessionDB) CloseStale(cutoff, now time.Time) (int64, error) {
	res, err := db.Exec(`
		UPDATE sessions SET session_end = ? WHERE session_end IS NULL AND session_start <= ?
	`, now, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SessionsFor returns all sessions for a hashed identity, most recent first.
func (db *SessionDB) SessionsFor(hashedIP string) ([]*domain.Session, error) {
	rows, err := db.Query(`
		SELECT id, hashed_ip, session_token, session_start, session_end, page_count
		FROM sessions
		WHERE hashed_ip = ?
		ORDER BY session_start DESC
	`, hashedIP)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []*domain.Session{}
	for rows.Next() {
		s := &domain.Session{}
		var token sql.NullString
		var end sql.NullTime

		if err := rows.Scan(&s.ID, &s.HashedIP, &token, &s.SessionStart, &end, &s.PageCount); err != nil {
			return nil, err
		}
		if token.Valid {
			s.SessionToken = &token.String
		}
		if end.Valid {
			s.SessionEnd = &end.Time
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// Ping verifies the store answers queries.
func (db *SessionDB) Ping() error {
	var one int
	return db.QueryRow(`SELECT 1`).Scan(&one)
}
