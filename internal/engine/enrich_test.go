package engine

import (
	"context"
	"testing"
	"time"

	"github.com/sitepulse/pulse-go/internal/domain"
	"github.com/sitepulse/pulse-go/internal/storage/cache"
	"go.uber.org/zap"
)

type countingResolver struct {
	meta  domain.IPMetadata
	calls int
}

func (r *countingResolver) Resolve(_ context.Context, ip string) domain.IPMetadata {
	if IsLocalIP(ip) {
		return localMetadata()
	}
	r.calls++
	return r.meta
}

func (r *countingResolver) Close() error { return nil }

func metaWith(country string, asn int64) domain.IPMetadata {
	return domain.IPMetadata{Country: &country, ASN: &asn}
}

func TestHashIPDeterministicAndDistinct(t *testing.T) {
	a := HashIP("8.8.8.8")
	b := HashIP("8.8.8.8")
	c := HashIP("8.8.4.4")

	if a != b {
		t.Fatalf("hashing the same address twice diverged: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("distinct addresses collided: %s", a)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64-char hex hash, got %d chars", len(a))
	}
	if a == "8.8.8.8" {
		t.Fatalf("hash must never equal the raw address")
	}
}

func TestIsLocalIP(t *testing.T) {
	local := []string{
		"127.0.0.1", "::1",
		"10.0.0.1", "10.255.255.254",
		"172.16.0.1", "172.31.255.1",
		"192.168.0.1", "192.168.255.254",
		"169.254.10.20",
	}
	for _, ip := range local {
		if !IsLocalIP(ip) {
			t.Fatalf("expected %s to classify as local", ip)
		}
	}

	public := []string{
		"8.8.8.8", "1.1.1.1",
		"172.15.0.1", "172.32.0.1",
		"192.169.0.1", "11.0.0.1",
		"2001:4860:4860::8888",
		"not-an-ip", "",
	}
	for _, ip := range public {
		if IsLocalIP(ip) {
			t.Fatalf("expected %s not to classify as local", ip)
		}
	}
}

func TestEnrichCacheMissThenHit(t *testing.T) {
	metaCache := cache.NewMemoryCache()
	resolver := &countingResolver{meta: metaWith("US", 12345)}
	enricher := NewEnricher(metaCache, resolver, time.Hour, zap.NewNop())
	ctx := context.Background()

	first := enricher.Enrich(ctx, "8.8.8.8")
	if resolver.calls != 1 {
		t.Fatalf("expected one resolver call on miss, got %d", resolver.calls)
	}
	if first.Meta.Country == nil || *first.Meta.Country != "US" {
		t.Fatalf("unexpected country: %v", first.Meta.Country)
	}
	if first.Meta.ASN == nil || *first.Meta.ASN != 12345 {
		t.Fatalf("unexpected asn: %v", first.Meta.ASN)
	}

	second := enricher.Enrich(ctx, "8.8.8.8")
	if resolver.calls != 1 {
		t.Fatalf("expected cache hit to skip the resolver, calls=%d", resolver.calls)
	}
	if second.HashedIP != first.HashedIP {
		t.Fatalf("hashed identity changed between requests")
	}
	if second.Meta.Country == nil || *second.Meta.Country != "US" || second.Meta.ASN == nil || *second.Meta.ASN != 12345 {
		t.Fatalf("cache round-trip lost fields: %+v", second.Meta)
	}
}

func TestEnrichNeverCachesEmptyResults(t *testing.T) {
	metaCache := cache.NewMemoryCache()
	resolver := &countingResolver{} // resolves to all-absent
	enricher := NewEnricher(metaCache, resolver, time.Hour, zap.NewNop())
	ctx := context.Background()

	enricher.Enrich(ctx, "8.8.8.8")
	enricher.Enrich(ctx, "8.8.8.8")

	// A failed resolution must be retried, not remembered.
	if resolver.calls != 2 {
		t.Fatalf("expected both requests to hit the resolver, calls=%d", resolver.calls)
	}
	if _, ok := metaCache.Get(ctx, metadataKeyPrefix+HashIP("8.8.8.8")); ok {
		t.Fatalf("all-absent metadata must not be cached")
	}
}

func TestEnrichLocalAddressShortCircuits(t *testing.T) {
	metaCache := cache.NewMemoryCache()
	resolver := &countingResolver{meta: metaWith("US", 1)}
	enricher := NewEnricher(metaCache, resolver, time.Hour, zap.NewNop())
	ctx := context.Background()

	for _, ip := range []string{"127.0.0.1", "::1", "10.1.2.3", "192.168.1.50"} {
		enrichment := enricher.Enrich(ctx, ip)
		if enrichment.Meta.Country == nil || *enrichment.Meta.Country != CountryLocal {
			t.Fatalf("expected Local sentinel for %s, got %+v", ip, enrichment.Meta)
		}
		if enrichment.Meta.ASN != nil {
			t.Fatalf("expected absent asn for local address %s", ip)
		}
	}
	if resolver.calls != 0 {
		t.Fatalf("local addresses must never reach the resolver, calls=%d", resolver.calls)
	}
}

func TestEnrichCorruptCacheEntryTreatedAsMiss(t *testing.T) {
	metaCache := cache.NewMemoryCache()
	resolver := &countingResolver{meta: metaWith("DE", 3320)}
	enricher := NewEnricher(metaCache, resolver, time.Hour, zap.NewNop())
	ctx := context.Background()

	key := metadataKeyPrefix + HashIP("9.9.9.9")
	metaCache.Set(ctx, key, []byte("{not json"), time.Hour)

	enrichment := enricher.Enrich(ctx, "9.9.9.9")
	if resolver.calls != 1 {
		t.Fatalf("expected corrupt entry to fall through to the resolver")
	}
	if enrichment.Meta.Country == nil || *enrichment.Meta.Country != "DE" {
		t.Fatalf("unexpected metadata after refresh: %+v", enrichment.Meta)
	}

	// The refresh overwrote the corrupt entry.
	raw, ok := metaCache.Get(ctx, key)
	if !ok || string(raw) == "{not json" {
		t.Fatalf("expected refreshed cache entry, got %q ok=%v", raw, ok)
	}
}
