package domain

import (
	"time"
)

// Device classes derived from the user agent.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// Field length bounds enforced at ingestion
const (
	MaxPageIDLen   = 100
	MaxActionLen   = 50
	MaxFamilyLen   = 50 // browser / OS family names
	MaxCountryLen  = 10
)

// Event represents one immutable client action. The hashed IP is the only
// visitor identity the system ever stores; the raw address never leaves the
// ingestion path.
type Event struct {
	ID           string     `json:"id" db:"id"`
	HashedIP     string     `json:"hashed_ip" db:"hashed_ip"`
	Country      *string    `json:"country,omitempty" db:"country"`
	ASN          *int64     `json:"asn,omitempty" db:"asn"`
	Device       *string    `json:"device,omitempty" db:"device"`
	Browser      *string    `json:"browser,omitempty" db:"browser"`
	OS           *string    `json:"os,omitempty" db:"os"`
	PageID       string     `json:"page_id" db:"page_id"`
	URL          string     `json:"url" db:"url"`
	Action       string     `json:"action" db:"action"`
	Referrer     *string    `json:"referrer,omitempty" db:"referrer"`
	SessionToken *string    `json:"session_token,omitempty" db:"session_token"`
	ScreenWidth  *int64     `json:"screen_width,omitempty" db:"screen_width"`
	ScreenHeight *int64     `json:"screen_height,omitempty" db:"screen_height"`
	TimeOnPage   *int64     `json:"time_on_page,omitempty" db:"time_on_page"`
	OccurredAt   *time.Time `json:"occurred_at,omitempty" db:"occurred_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// IPMetadata is the geolocation/ASN snapshot cached per hashed IP. Pointer
// fields keep the absent / empty / zero distinction through serialization.
type IPMetadata struct {
	Country *string `json:"country,omitempty"`
	ASN     *int64  `json:"asn,omitempty"`
	Device  *string `json:"device,omitempty"`
	Browser *string `json:"browser,omitempty"`
	OS      *string `json:"os,omitempty"`
}

// HasData reports whether the metadata carries anything worth caching.
// All-absent results must not be cached so a failed lookup is retried.
func (m IPMetadata) HasData() bool {
	return m.Country != nil || m.ASN != nil
}

// UserAgentInfo is the device/browser/OS classification of a user agent.
type UserAgentInfo struct {
	Device  *string `json:"device,omitempty"`
	Browser *string `json:"browser,omitempty"`
	OS      *string `json:"os,omitempty"`
}

// Enrichment is what the pipeline attaches to an incoming event.
type Enrichment struct {
	HashedIP string
	Meta     IPMetadata
}
