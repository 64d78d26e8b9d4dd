package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sitepulse/pulse-go/internal/domain"
	"github.com/sitepulse/pulse-go/internal/storage/cache"
	"go.uber.org/zap"
)

const metadataKeyPrefix = "ipmeta:"

// Enricher is the single enrichment entry point used by ingestion: hash the
// address, consult the cache, fall back to the resolver, fill the cache.
type Enricher struct {
	cache    cache.Cache
	resolver Resolver
	ttl      time.Duration
	logger   *zap.Logger
}

// NewEnricher creates a new Enricher instance
func NewEnricher(metaCache cache.Cache, resolver Resolver, ttl time.Duration, logger *zap.Logger) *Enricher {
	return &Enricher{
		cache:    metaCache,
		resolver: resolver,
		ttl:      ttl,
		logger:   logger,
	}
}

// Enrich resolves metadata for a raw address, keyed in the cache by its
// hash so the raw IP never reaches storage. A cache miss costs exactly one
// resolver call; all-absent results are never written back, so a failed
// lookup is retried on the next request.
func (e *Enricher) Enrich(ctx context.Context, ip string) domain.Enrichment {
	hashed := HashIP(ip)
	key := metadataKeyPrefix + hashed

	if raw, ok := e.cache.Get(ctx, key); ok {
		var meta domain.IPMetadata
		if err := json.Unmarshal(raw, &meta); err == nil {
			return domain.Enrichment{HashedIP: hashed, Meta: meta}
		}
		// Corrupt entry: treat as a miss and let the refresh overwrite it.
		e.logger.Warn("discarding corrupt cached metadata", zap.String("key", key))
	}

	meta := e.resolver.Resolve(ctx, ip)

	if meta.HasData() {
		if raw, err := json.Marshal(meta); err == nil {
			e.cache.Set(ctx, key, raw, e.ttl)
		}
	}

	return domain.Enrichment{HashedIP: hashed, Meta: meta}
}
