package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EventPayload is the client-supplied collect body. Unknown keys are kept in
// Extra instead of being rejected, and malformed optional values degrade to
// absent instead of failing the request.
type EventPayload struct {
	PageID       string
	URL          string
	Action       string
	Referrer     string
	UserAgent    string
	SessionToken string
	ScreenWidth  *int64
	ScreenHeight *int64
	TimeOnPage   *int64
	Timestamp    *int64 // client clock, unix seconds

	// Extra holds unrecognized payload keys verbatim.
	Extra map[string]json.RawMessage
}

// ValidationError reports a rejected required field. Ingestion maps it to a
// client error rather than a server failure.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// UnmarshalJSON decodes the payload permissively: known fields are picked out
// of the object, everything else lands in Extra untouched.
func (p *EventPayload) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	p.PageID = takeString(fields, "page_id")
	p.URL = takeString(fields, "url")
	p.Action = takeString(fields, "action")
	p.Referrer = takeString(fields, "referrer")
	p.UserAgent = takeString(fields, "user_agent")
	p.SessionToken = takeString(fields, "session_id")
	p.ScreenWidth = takeInt(fields, "screen_width")
	p.ScreenHeight = takeInt(fields, "screen_height")
	p.TimeOnPage = takeInt(fields, "time_on_page")
	p.Timestamp = takeInt(fields, "timestamp")

	if len(fields) > 0 {
		p.Extra = fields
	} else {
		p.Extra = nil
	}
	return nil
}

// Validate checks the required fields and their bounds.
func (p *EventPayload) Validate() error {
	if strings.TrimSpace(p.PageID) == "" {
		return &ValidationError{Field: "page_id", Reason: "required"}
	}
	if len(p.PageID) > MaxPageIDLen {
		return &ValidationError{Field: "page_id", Reason: fmt.Sprintf("longer than %d characters", MaxPageIDLen)}
	}
	if strings.TrimSpace(p.URL) == "" {
		return &ValidationError{Field: "url", Reason: "required"}
	}
	if strings.TrimSpace(p.Action) == "" {
		return &ValidationError{Field: "action", Reason: "required"}
	}
	if len(p.Action) > MaxActionLen {
		return &ValidationError{Field: "action", Reason: fmt.Sprintf("longer than %d characters", MaxActionLen)}
	}
	return nil
}

// takeString consumes a field as a string. Non-string values are treated as
// absent rather than rejected.
func takeString(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	delete(fields, key)

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// takeInt consumes a field as an integer. It accepts JSON numbers and numeric
// strings; anything else (including "") degrades to nil.
func takeInt(fields map[string]json.RawMessage, key string) *int64 {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	delete(fields, key)

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	parsed, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil
	}
	return &parsed
}
