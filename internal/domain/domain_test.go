package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestPayloadUnmarshalKnownFields(t *testing.T) {
	body := `{
		"page_id": "home",
		"url": "https://example.com/",
		"action": "view",
		"referrer": "https://duckduckgo.com/",
		"user_agent": "Mozilla/5.0",
		"session_id": "abc-123",
		"screen_width": 1920,
		"screen_height": 1080,
		"time_on_page": 42,
		"timestamp": 1754042400
	}`

	var p EventPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if p.PageID != "home" || p.URL != "https://example.com/" || p.Action != "view" {
		t.Fatalf("required fields misparsed: %+v", p)
	}
	if p.SessionToken != "abc-123" {
		t.Fatalf("session token misparsed: %q", p.SessionToken)
	}
	if p.ScreenWidth == nil || *p.ScreenWidth != 1920 {
		t.Fatalf("screen width misparsed: %v", p.ScreenWidth)
	}
	if p.Timestamp == nil || *p.Timestamp != 1754042400 {
		t.Fatalf("timestamp misparsed: %v", p.Timestamp)
	}
	if p.Extra != nil {
		t.Fatalf("no unknown keys were sent, got %v", p.Extra)
	}
}

func TestPayloadUnmarshalKeepsUnknownKeys(t *testing.T) {
	body := `{"page_id": "home", "url": "/", "action": "view", "ab_variant": "B", "nested": {"a": 1}}`

	var p EventPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(p.Extra) != 2 {
		t.Fatalf("expected two extra keys, got %v", p.Extra)
	}
	if string(p.Extra["ab_variant"]) != `"B"` {
		t.Fatalf("extra key not kept verbatim: %s", p.Extra["ab_variant"])
	}
}

func TestPayloadUnmarshalDegradesMalformedOptionals(t *testing.T) {
	body := `{
		"page_id": "home",
		"url": "/",
		"action": "view",
		"screen_width": "wide",
		"screen_height": "",
		"time_on_page": {"weird": true},
		"referrer": 42
	}`

	var p EventPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("malformed optionals must not fail the decode: %v", err)
	}

	if p.ScreenWidth != nil || p.ScreenHeight != nil || p.TimeOnPage != nil {
		t.Fatalf("expected absent dimensions, got %+v", p)
	}
	if p.Referrer != "" {
		t.Fatalf("non-string referrer must degrade to empty, got %q", p.Referrer)
	}
}

func TestPayloadUnmarshalAcceptsNumericStrings(t *testing.T) {
	body := `{"page_id": "home", "url": "/", "action": "view", "screen_width": "1440", "timestamp": " 1754042400 "}`

	var p EventPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if p.ScreenWidth == nil || *p.ScreenWidth != 1440 {
		t.Fatalf("numeric string screen width misparsed: %v", p.ScreenWidth)
	}
	if p.Timestamp == nil || *p.Timestamp != 1754042400 {
		t.Fatalf("numeric string timestamp misparsed: %v", p.Timestamp)
	}
}

func TestPayloadValidate(t *testing.T) {
	valid := EventPayload{PageID: "home", URL: "/", Action: "view"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	cases := []struct {
		name    string
		payload EventPayload
		field   string
	}{
		{"empty page_id", EventPayload{URL: "/", Action: "view"}, "page_id"},
		{"blank page_id", EventPayload{PageID: "  ", URL: "/", Action: "view"}, "page_id"},
		{"long page_id", EventPayload{PageID: strings.Repeat("x", MaxPageIDLen+1), URL: "/", Action: "view"}, "page_id"},
		{"empty url", EventPayload{PageID: "home", Action: "view"}, "url"},
		{"empty action", EventPayload{PageID: "home", URL: "/"}, "action"},
		{"long action", EventPayload{PageID: "home", URL: "/", Action: strings.Repeat("a", MaxActionLen+1)}, "action"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.payload.Validate()
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
}

func TestIPMetadataHasData(t *testing.T) {
	country := "US"
	asn := int64(15169)

	if (IPMetadata{}).HasData() {
		t.Fatalf("empty metadata must report no data")
	}
	if !(IPMetadata{Country: &country}).HasData() {
		t.Fatalf("country alone is data")
	}
	if !(IPMetadata{ASN: &asn}).HasData() {
		t.Fatalf("asn alone is data")
	}
}

func TestSessionActive(t *testing.T) {
	now := time.Now()
	window := 30 * time.Minute

	open := Session{SessionStart: now.Add(-10 * time.Minute)}
	if !open.Active(window, now) {
		t.Fatalf("recent open session must be active")
	}

	expired := Session{SessionStart: now.Add(-45 * time.Minute)}
	if expired.Active(window, now) {
		t.Fatalf("session older than the window must be inactive")
	}

	end := now.Add(-5 * time.Minute)
	closed := Session{SessionStart: now.Add(-10 * time.Minute), SessionEnd: &end}
	if closed.Active(window, now) {
		t.Fatalf("closed session must be inactive")
	}
}

func TestParseTime(t *testing.T) {
	if !ParseTime(0).IsZero() {
		t.Fatalf("zero timestamp must map to the zero time")
	}
	got := ParseTime(1754042400)
	if got.Unix() != 1754042400 {
		t.Fatalf("unexpected parse result: %v", got)
	}
}

func TestTruncate(t *testing.T) {
	if Truncate("short", 10) != "short" {
		t.Fatalf("under-limit strings must pass through")
	}
	if got := Truncate("abcdefghij", 4); got != "abcd" {
		t.Fatalf("unexpected truncation: %q", got)
	}
}
