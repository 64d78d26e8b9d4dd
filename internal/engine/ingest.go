package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sitepulse/pulse-go/internal/dispatch"
	"github.com/sitepulse/pulse-go/internal/domain"
	"github.com/sitepulse/pulse-go/internal/storage/sqlite"
	"go.uber.org/zap"
)

// Ingestor is the top-level ingestion use case: validate the payload, enrich
// it, persist the event row, and hand session tracking to the background
// queue. Only the row insert can fail ingestion; enrichment and session
// bookkeeping degrade silently.
type Ingestor struct {
	events   *sqlite.EventDB
	enricher *Enricher
	tracker  *SessionTracker
	queue    *dispatch.Queue
	logger   *zap.Logger
}

// NewIngestor creates a new Ingestor instance
func NewIngestor(
	events *sqlite.EventDB,
	enricher *Enricher,
	tracker *SessionTracker,
	queue *dispatch.Queue,
	logger *zap.Logger,
) *Ingestor {
	return &Ingestor{
		events:   events,
		enricher: enricher,
		tracker:  tracker,
		queue:    queue,
		logger:   logger,
	}
}

// Ingest records one client event. clientIP is the already-extracted remote
// address; it is hashed immediately and never stored raw.
func (ing *Ingestor) Ingest(ctx context.Context, payload domain.EventPayload, clientIP string) (*domain.Event, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	enrichment := ing.enricher.Enrich(ctx, clientIP)

	var uaInfo domain.UserAgentInfo
	if payload.UserAgent != "" {
		uaInfo = ClassifyUserAgent(payload.UserAgent)
	}

	event := &domain.Event{
		ID:           uuid.New().String(),
		HashedIP:     enrichment.HashedIP,
		Country:      truncatePtr(enrichment.Meta.Country, domain.MaxCountryLen),
		ASN:          enrichment.Meta.ASN,
		Device:       uaInfo.Device,
		Browser:      uaInfo.Browser,
		OS:           uaInfo.OS,
		PageID:       payload.PageID,
		URL:          payload.URL,
		Action:       payload.Action,
		Referrer:     optional(payload.Referrer),
		SessionToken: optional(payload.SessionToken),
		ScreenWidth:  payload.ScreenWidth,
		ScreenHeight: payload.ScreenHeight,
		TimeOnPage:   payload.TimeOnPage,
		CreatedAt:    time.Now(),
	}
	if payload.Timestamp != nil {
		occurred := domain.ParseTime(*payload.Timestamp)
		if !occurred.IsZero() {
			event.OccurredAt = &occurred
		}
	}

	if err := ing.events.InsertEvent(event); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	ing.logger.Info("event recorded",
		zap.String("event_id", event.ID),
		zap.String("hashed_ip", shortHash(event.HashedIP)),
		zap.String("page_id", event.PageID),
	)

	// Session tracking runs after the response; dropping it under load is
	// preferable to delaying the caller.
	hashedIP := enrichment.HashedIP
	token := payload.SessionToken
	if !ing.queue.Enqueue(func(ctx context.Context) error {
		return ing.tracker.Track(hashedIP, token)
	}) {
		ing.logger.Warn("session update dropped, queue full",
			zap.String("hashed_ip", shortHash(hashedIP)))
	}

	return event, nil
}

// optional maps "" to absent.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncatePtr(s *string, max int) *string {
	if s == nil {
		return nil
	}
	t := domain.Truncate(*s, max)
	return &t
}
