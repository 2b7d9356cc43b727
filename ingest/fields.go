package ingest

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zero-day-ai/riskvault/event"
)

// Canonical field names. They match the JSON tags of event.LogRecord.
const (
	fieldTimestamp       = "timestamp"
	fieldEventType       = "event_type"
	fieldSourceIP        = "source_ip"
	fieldDestinationIP   = "destination_ip"
	fieldSourcePort      = "source_port"
	fieldDestinationPort = "destination_port"
	fieldUsername        = "username"
	fieldMessage         = "message"
)

// columnAliases maps lowercase column or key spellings to canonical fields.
var columnAliases = map[string]string{
	"timestamp":        fieldTimestamp,
	"time":             fieldTimestamp,
	"ts":               fieldTimestamp,
	"@timestamp":       fieldTimestamp,
	"datetime":         fieldTimestamp,
	"date":             fieldTimestamp,
	"event_type":       fieldEventType,
	"eventtype":        fieldEventType,
	"event":            fieldEventType,
	"type":             fieldEventType,
	"action":           fieldEventType,
	"source_ip":        fieldSourceIP,
	"src_ip":           fieldSourceIP,
	"srcip":            fieldSourceIP,
	"src":              fieldSourceIP,
	"client_ip":        fieldSourceIP,
	"remote_addr":      fieldSourceIP,
	"destination_ip":   fieldDestinationIP,
	"dst_ip":           fieldDestinationIP,
	"dest_ip":          fieldDestinationIP,
	"dstip":            fieldDestinationIP,
	"dst":              fieldDestinationIP,
	"source_port":      fieldSourcePort,
	"src_port":         fieldSourcePort,
	"sport":            fieldSourcePort,
	"spt":              fieldSourcePort,
	"destination_port": fieldDestinationPort,
	"dst_port":         fieldDestinationPort,
	"dest_port":        fieldDestinationPort,
	"dport":            fieldDestinationPort,
	"dpt":              fieldDestinationPort,
	"port":             fieldDestinationPort,
	"username":         fieldUsername,
	"user":             fieldUsername,
	"user_name":        fieldUsername,
	"account":          fieldUsername,
	"message":          fieldMessage,
	"msg":              fieldMessage,
	"description":      fieldMessage,
}

// canonicalField returns the canonical name for a column, or "" if unknown.
func canonicalField(name string) string {
	return columnAliases[strings.ToLower(strings.TrimSpace(name))]
}

// canonicalize re-keys raw by canonical field name. A key spelled exactly as
// the canonical name wins over any alias for the same field; among aliases
// the lexically first key wins.
func canonicalize(raw map[string]any) map[string]any {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(raw))
	for _, k := range keys {
		field := canonicalField(k)
		if field == "" {
			continue
		}
		if _, seen := out[field]; seen && !strings.EqualFold(strings.TrimSpace(k), field) {
			continue
		}
		out[field] = raw[k]
	}
	return out
}

// timestampLayouts are tried in order for string timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateTime,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"02/Jan/2006:15:04:05 -0700",
	time.RFC1123Z,
	time.RFC1123,
}

// parseTimestamp parses s as one of the known layouts or as Unix seconds.
// Layouts without a zone are read in loc. It returns the zero time on failure.
func parseTimestamp(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return unixTime(secs)
	}
	return time.Time{}
}

func unixTime(secs float64) time.Time {
	if secs <= 0 || math.IsInf(secs, 0) || math.IsNaN(secs) {
		return time.Time{}
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}

// getString extracts a string field. Numbers are formatted without an
// exponent; other types yield "".
func getString(m map[string]any, key string) string {
	val, ok := m[key]
	if !ok || val == nil {
		return ""
	}

	switch v := val.(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// getPort extracts a port number in [0, 65535]. Absent or unparseable values
// yield nil.
func getPort(m map[string]any, key string) *int {
	val, ok := m[key]
	if !ok || val == nil {
		return nil
	}

	var n int64
	switch v := val.(type) {
	case float64:
		if v != math.Trunc(v) {
			return nil
		}
		n = int64(v)
	case int:
		n = int64(v)
	case int64:
		n = v
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return nil
		}
		n = parsed
	case string:
		s := strings.TrimSpace(v)
		if s == "" || s == "-" {
			return nil
		}
		parsed, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}

	if n < 0 || n > math.MaxUint16 {
		return nil
	}
	return event.Port(int(n))
}

// getTime extracts a timestamp. Numbers are Unix seconds.
func getTime(m map[string]any, key string, loc *time.Location) time.Time {
	val, ok := m[key]
	if !ok || val == nil {
		return time.Time{}
	}

	switch v := val.(type) {
	case time.Time:
		return v
	case string:
		return parseTimestamp(v, loc)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}
		}
		return unixTime(f)
	case float64:
		return unixTime(v)
	case int:
		return unixTime(float64(v))
	case int64:
		return unixTime(float64(v))
	default:
		return time.Time{}
	}
}

// recordFrom builds a LogRecord from canonical fields. The event type is
// stored as written; alias normalization is the Reader's job.
func recordFrom(fields map[string]any, loc *time.Location) event.LogRecord {
	return event.LogRecord{
		Timestamp:       getTime(fields, fieldTimestamp, loc),
		EventType:       event.EventType(getString(fields, fieldEventType)),
		SourceIP:        getString(fields, fieldSourceIP),
		DestinationIP:   getString(fields, fieldDestinationIP),
		SourcePort:      getPort(fields, fieldSourcePort),
		DestinationPort: getPort(fields, fieldDestinationPort),
		Username:        getString(fields, fieldUsername),
		Message:         getString(fields, fieldMessage),
	}
}

// RecordFromMap builds a LogRecord from a decoded object, such as a JSON
// object or a protobuf Struct converted with AsMap. Keys are matched like
// CSV columns; timestamps without a zone are read in loc (UTC if nil).
func RecordFromMap(m map[string]any, loc *time.Location) event.LogRecord {
	if loc == nil {
		loc = time.UTC
	}
	return recordFrom(canonicalize(m), loc)
}
