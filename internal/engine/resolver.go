package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/sitepulse/pulse-go/internal/domain"
	"go.uber.org/zap"
)

// CountryLocal is the sentinel country for non-routable addresses.
const CountryLocal = "Local"

// Resolver turns a raw IP address into geolocation metadata. Lookups are
// best-effort: every failure degrades to all-absent metadata, never to an
// error on the ingestion path.
type Resolver interface {
	Resolve(ctx context.Context, ip string) domain.IPMetadata
	Close() error
}

// ResolverConfig selects and parameterizes a resolver backend.
type ResolverConfig struct {
	Kind          string // ipinfo | maxmind | none
	IPInfoBaseURL string
	IPInfoToken   string
	MaxMindDBPath string
	Timeout       time.Duration
}

// NewResolver creates the configured resolver backend.
func NewResolver(cfg ResolverConfig, logger *zap.Logger) (Resolver, error) {
	switch cfg.Kind {
	case "", "ipinfo":
		return NewIPInfoResolver(cfg.IPInfoBaseURL, cfg.IPInfoToken, cfg.Timeout, logger), nil
	case "maxmind":
		return NewMaxMindResolver(cfg.MaxMindDBPath)
	case "none":
		return &disabledResolver{}, nil
	default:
		return nil, fmt.Errorf("unknown resolver kind: %s", cfg.Kind)
	}
}

var asnPattern = regexp.MustCompile(`AS(\d+)`)

// parseASN extracts the AS number from an organization free-text field like
// "AS15169 Google LLC". No match means absent, never zero.
func parseASN(org string) *int64 {
	match := asnPattern.FindStringSubmatch(org)
	if match == nil {
		return nil
	}
	asn, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return nil
	}
	return &asn
}

// localMetadata is what every resolver returns for non-routable addresses.
func localMetadata() domain.IPMetadata {
	country := CountryLocal
	return domain.IPMetadata{Country: &country}
}

// IPInfoResolver queries the IPinfo HTTP API, one GET per lookup, bounded by
// the client timeout and the request context.
type IPInfoResolver struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewIPInfoResolver creates a new IPInfoResolver instance
func NewIPInfoResolver(baseURL, token string, timeout time.Duration, logger *zap.Logger) *IPInfoResolver {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &IPInfoResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type ipinfoResponse struct {
	Country string `json:"country"`
	Org     string `json:"org"`
}

// Resolve looks up country and ASN for a routable address. Local addresses
// short-circuit to the "Local" sentinel without touching the network.
func (r *IPInfoResolver) Resolve(ctx context.Context, ip string) domain.IPMetadata {
	if IsLocalIP(ip) {
		return localMetadata()
	}

	lookupURL := fmt.Sprintf("%s/%s/json", r.baseURL, ip)
	if r.token != "" {
		lookupURL += "?token=" + url.QueryEscape(r.token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		r.logger.Error("building ip lookup request failed", zap.Error(err))
		return domain.IPMetadata{}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Error("ip metadata lookup failed", zap.Error(err))
		return domain.IPMetadata{}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body ipinfoResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			r.logger.Error("malformed ip metadata response", zap.Error(err))
			return domain.IPMetadata{}
		}

		meta := domain.IPMetadata{}
		if body.Country != "" {
			country := body.Country
			meta.Country = &country
		}
		meta.ASN = parseASN(body.Org)
		return meta

	case http.StatusTooManyRequests, http.StatusForbidden:
		r.logger.Warn("ip metadata provider rate limit or access error",
			zap.Int("status", resp.StatusCode))
		return domain.IPMetadata{}

	default:
		r.logger.Error("ip metadata provider returned unexpected status",
			zap.Int("status", resp.StatusCode))
		return domain.IPMetadata{}
	}
}

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (r *IPInfoResolver) Close() error {
	return nil
}

// MaxMindResolver answers lookups from a local MaxMind City database: no
// network, no quota. ASN stays absent without a separate ASN database.
type MaxMindResolver struct {
	db *geoip2.Reader
}

// NewMaxMindResolver creates a new MaxMindResolver instance
func NewMaxMindResolver(dbPath string) (*MaxMindResolver, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("maxmind db path not configured")
	}

	db, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open maxmind db: %w", err)
	}

	return &MaxMindResolver{db: db}, nil
}

// Resolve extracts the country ISO code and immediately discards the IP.
func (r *MaxMindResolver) Resolve(_ context.Context, ip string) domain.IPMetadata {
	if IsLocalIP(ip) {
		return localMetadata()
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return domain.IPMetadata{}
	}

	city, err := r.db.City(parsed)
	if err != nil {
		return domain.IPMetadata{}
	}

	meta := domain.IPMetadata{}
	if iso := city.Country.IsoCode; iso != "" {
		country := iso
		meta.Country = &country
	}
	return meta
}

// Close closes the MaxMind database.
func (r *MaxMindResolver) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// disabledResolver never resolves anything beyond the local sentinel.
type disabledResolver struct{}

func (disabledResolver) Resolve(_ context.Context, ip string) domain.IPMetadata {
	if IsLocalIP(ip) {
		return localMetadata()
	}
	return domain.IPMetadata{}
}

func (disabledResolver) Close() error {
	return nil
}
