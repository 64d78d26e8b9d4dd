package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Cache is the TTL key-value store used for hashed-IP metadata. Both
// implementations degrade to a miss / no-op on failure instead of surfacing
// transport errors to the enrichment path.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Ping(ctx context.Context) error
	Close() error
}

// New creates the configured cache backend: Redis when an address is set,
// in-memory otherwise.
func New(redisAddr, redisPassword string, logger *zap.Logger) (Cache, error) {
	if redisAddr == "" {
		return NewMemoryCache(), nil
	}
	return NewRedisCache(redisAddr, redisPassword, logger)
}
