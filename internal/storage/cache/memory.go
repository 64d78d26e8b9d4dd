package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process TTL key-value store. It backs deployments
// without Redis and the test suites. Expired entries are evicted lazily on
// read and in bulk by Sweep.
type MemoryCache struct {
	entries sync.Map // map[string]*memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryCache creates a new MemoryCache instance
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

// Get returns the value for key, treating expired entries as misses.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	entry := v.(*memoryEntry)
	if entry.expired(time.Now()) {
		c.entries.Delete(key)
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key, overwriting any previous entry. A non-positive
// ttl stores the entry without expiry.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	entry := &memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.entries.Store(key, entry)
}

// Ping always succeeds; the cache lives in-process.
func (c *MemoryCache) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (c *MemoryCache) Close() error {
	return nil
}

// Sweep removes all expired entries and returns how many were evicted.
func (c *MemoryCache) Sweep() int {
	now := time.Now()
	count := 0
	c.entries.Range(func(key, value interface{}) bool {
		if value.(*memoryEntry).expired(now) {
			c.entries.Delete(key)
			count++
		}
		return true
	})
	return count
}
