package sqlite

import (
	"database/sql"
	"time"

	"github.com/sitepulse/pulse-go/internal/domain"
)

// EventDB stores the immutable event rows and serves the aggregate queries.
// Rows are insert-only; retention is an external concern.
type EventDB struct {
	*DB
}

// NewEventDB creates a new EventDB instance
func NewEventDB(dbURL string) (*EventDB, error) {
	db, err := NewDB(dbURL)
	if err != nil {
		return nil, err
	}

	eventDB := &EventDB{DB: db}

	if err := eventDB.createTables(); err != nil {
		return nil, err
	}

	return eventDB, nil
}

func (db *EventDB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			hashed_ip TEXT NOT NULL,
			country TEXT,
			asn INTEGER,
			device TEXT,
			browser TEXT,
			os TEXT,
			page_id TEXT NOT NULL,
			url TEXT NOT NULL,
			action TEXT NOT NULL,
			referrer TEXT,
			session_token TEXT,
			screen_width INTEGER,
			screen_height INTEGER,
			time_on_page INTEGER,
			occurred_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_hashed_ip ON events(hashed_ip)`,
		`CREATE INDEX IF NOT EXISTS idx_events_page_id ON events(page_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_session_token ON events(session_token)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}

	return nil
}

// InsertEvent writes one event row.
func (db *EventDB) InsertEvent(event *domain.Event) error {
	_, err := db.Exec(`
		INSERT INTO events (
			id, hashed_ip, country, asn, device, browser, os,
			page_id, url, action, referrer, session_token,
			screen_width, screen_height, time_on_page, occurred_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, event.ID, event.HashedIP, event.Country, event.ASN, event.Device, event.Browser, event.OS,
		event.PageID, event.URL, event.Action, event.Referrer, event.SessionToken,
		event.ScreenWidth, event.ScreenHeight, event.TimeOnPage, event.OccurredAt, event.CreatedAt)

	return err
}

// GetEvent retrieves one event row by ID, nil when absent.
func (db *EventDB) GetEvent(id string) (*domain.Event, error) {
	row := db.QueryRow(`
		SELECT id, hashed_ip, country, asn, device, browser, os,
			page_id, url, action, referrer, session_token,
			screen_width, screen_height, time_on_page, occurred_at, created_at
		FROM events WHERE id = ?
	`, id)

	event := &domain.Event{}
	var country, device, browser, os, referrer, sessionToken sql.NullString
	var asn, screenWidth, screenHeight, timeOnPage sql.NullInt64
	var occurredAt sql.NullTime

	err := row.Scan(
		&event.ID, &event.HashedIP, &country, &asn, &device, &browser, &os,
		&event.PageID, &event.URL, &event.Action, &referrer, &sessionToken,
		&screenWidth, &screenHeight, &timeOnPage, &occurredAt, &event.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if country.Valid {
		event.Country = &country.String
	}
	if asn.Valid {
		event.ASN = &asn.Int64
	}
	if device.Valid {
		event.Device = &device.String
	}
	if browser.Valid {
		event.Browser = &browser.String
	}
	if os.Valid {
		event.OS = &os.String
	}
	if referrer.Valid {
		event.Referrer = &referrer.String
	}
	if sessionToken.Valid {
		event.SessionToken = &sessionToken.String
	}
	if screenWidth.Valid {
		event.ScreenWidth = &screenWidth.Int64
	}
	if screenHeight.Valid {
		event.ScreenHeight = &screenHeight.Int64
	}
	if timeOnPage.Valid {
		event.TimeOnPage = &timeOnPage.Int64
	}
	if occurredAt.Valid {
		event.OccurredAt = &occurredAt.Time
	}

	return event, nil
}

// CountEvents returns the total number of stored events.
func (db *EventDB) CountEvents() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count)
	return count, err
}

// CountEventsSince returns the number of events created at or after the cutoff.
func (db *EventDB) CountEventsSince(cutoff time.Time) (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM events WHERE created_at >= ?`, cutoff).Scan(&count)
	return count, err
}

// CountDistinctVisitors returns the number of distinct hashed identities seen.
func (db *EventDB) CountDistinctVisitors() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(DISTINCT hashed_ip) FROM events`).Scan(&count)
	return count, err
}

// TopPages returns the most viewed page identifiers.
func (db *EventDB) TopPages(limit int) ([]domain.PageViews, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.Query(`
		SELECT page_id, COUNT(*) AS views
		FROM events
		WHERE action = 'view'
		GROUP BY page_id
		ORDER BY views DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pages := []domain.PageViews{}
	for rows.Next() {
		var p domain.PageViews
		if err := rows.Scan(&p.PageID, &p.Views); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// Stats bundles the aggregate queries behind the stats endpoint. "Today"
// starts at local midnight.
func (db *EventDB) Stats(now time.Time) (*domain.Stats, error) {
	total, err := db.CountEvents()
	if err != nil {
		return nil, err
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := db.CountEventsSince(midnight)
	if err != nil {
		return nil, err
	}

	visitors, err := db.CountDistinctVisitors()
	if err != nil {
		return nil, err
	}

	topPages, err := db.TopPages(10)
	if err != nil {
		return nil, err
	}

	return &domain.Stats{
		TotalEvents:    total,
		TodayEvents:    today,
		UniqueVisitors: visitors,
		TopPages:       topPages,
	}, nil
}

// Ping verifies the store answers queries.
func (db *EventDB) Ping() error {
	var one int
	return db.QueryRow(`SELECT 1`).Scan(&one)
}
