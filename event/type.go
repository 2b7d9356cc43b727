package event

import (
	"fmt"
	"strings"
)

// EventType is the normalized category of a log record.
type EventType string

const (
	// EventFailedLogin is an authentication failure.
	EventFailedLogin EventType = "failed_login"

	// EventSuccessfulLogin is a successful authentication.
	EventSuccessfulLogin EventType = "successful_login"

	// EventConnectionAttempt is an inbound or outbound connection attempt.
	EventConnectionAttempt EventType = "connection_attempt"

	// EventProcessCrash is a service or process crash.
	EventProcessCrash EventType = "process_crash"

	EventError    EventType = "error"
	EventWarning  EventType = "warning"
	EventInfo     EventType = "info"
	EventCritical EventType = "critical"

	// EventOther is any recognized-but-unmapped event type. The raw string is
	// preserved on the record.
	EventOther EventType = "other"
)

// IsValid returns true if the event type is one of the known constants.
func (t EventType) IsValid() bool {
	switch t {
	case EventFailedLogin,
		EventSuccessfulLogin,
		EventConnectionAttempt,
		EventProcessCrash,
		EventError,
		EventWarning,
		EventInfo,
		EventCritical,
		EventOther:
		return true
	default:
		return false
	}
}

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// DisplayName returns a human-readable name for the event type.
func (t EventType) DisplayName() string {
	switch t {
	case EventFailedLogin:
		return "Failed Login"
	case EventSuccessfulLogin:
		return "Successful Login"
	case EventConnectionAttempt:
		return "Connection Attempt"
	case EventProcessCrash:
		return "Process Crash"
	case EventError:
		return "Error"
	case EventWarning:
		return "Warning"
	case EventInfo:
		return "Info"
	case EventCritical:
		return "Critical"
	case EventOther:
		return "Other"
	default:
		return string(t)
	}
}

// ParseEventType parses a canonical event type name.
// Use AliasTable.Normalize for free-form input.
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid event type: %s", s)
	}
	return t, nil
}

// AllEventTypes returns all valid event types.
func AllEventTypes() []EventType {
	return []EventType{
		EventFailedLogin,
		EventSuccessfulLogin,
		EventConnectionAttempt,
		EventProcessCrash,
		EventError,
		EventWarning,
		EventInfo,
		EventCritical,
		EventOther,
	}
}

// AliasTable maps lowercase raw event type strings to canonical event types.
// The zero value is usable and maps only canonical names.
type AliasTable map[string]EventType

// DefaultAliases returns the alias table covering the spellings seen in
// common auth and firewall logs.
func DefaultAliases() AliasTable {
	return AliasTable{
		"failed_login":           EventFailedLogin,
		"failed_auth":            EventFailedLogin,
		"login_failed":           EventFailedLogin,
		"auth_failure":           EventFailedLogin,
		"authentication_failure": EventFailedLogin,
		"successful_login":       EventSuccessfulLogin,
		"success":                EventSuccessfulLogin,
		"login_success":          EventSuccessfulLogin,
		"connection_attempt":     EventConnectionAttempt,
		"conn_attempt":           EventConnectionAttempt,
		"conn":                   EventConnectionAttempt,
		"portscan":               EventConnectionAttempt,
		"scan":                   EventConnectionAttempt,
	}
}

// With returns a copy of the table with the extra aliases added.
// Keys are stored lowercase for case-insensitive lookup.
func (a AliasTable) With(extra map[string]EventType) AliasTable {
	out := make(AliasTable, len(a)+len(extra))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range extra {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

// Normalize maps a raw event type string to a canonical EventType.
// Empty input yields "" (missing); unrecognized input yields EventOther.
func (a AliasTable) Normalize(raw string) EventType {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return ""
	}
	if t, ok := a[key]; ok {
		return t
	}
	if t := EventType(key); t.IsValid() {
		return t
	}
	return EventOther
}

// Canonicalize returns r with its event type normalized. The raw string is
// kept in RawType. Records with a canonical type pass through unchanged.
func (a AliasTable) Canonicalize(r LogRecord) LogRecord {
	if r.EventType.IsValid() {
		return r
	}
	raw := r.RawType
	if r.EventType != "" {
		raw = string(r.EventType)
	}
	if r.RawType == "" {
		r.RawType = raw
	}
	r.EventType = a.Normalize(raw)
	return r
}
