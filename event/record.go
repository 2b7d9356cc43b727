package event

import "time"

// UnknownSource is the grouping key for records without a source IP.
// It cannot collide with a real address.
const UnknownSource = "<unknown>"

// LogRecord is one normalized log line. Records are treated as immutable
// once they are part of a Table.
type LogRecord struct {
	// Seq is the record's position in the ingested sequence. It is assigned by
	// NewTable and is the identifier findings use to reference evidence.
	Seq int `json:"seq" yaml:"seq"`

	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	EventType EventType `json:"event_type" yaml:"event_type"`

	// RawType is the event type string as it appeared in the source log.
	RawType string `json:"raw_type,omitempty" yaml:"raw_type,omitempty"`

	// Optional fields. Empty strings and nil ports mean "absent".
	SourceIP        string `json:"source_ip,omitempty" yaml:"source_ip,omitempty"`
	DestinationIP   string `json:"destination_ip,omitempty" yaml:"destination_ip,omitempty"`
	SourcePort      *int   `json:"source_port,omitempty" yaml:"source_port,omitempty"`
	DestinationPort *int   `json:"destination_port,omitempty" yaml:"destination_port,omitempty"`
	Username        string `json:"username,omitempty" yaml:"username,omitempty"`
	Message         string `json:"message,omitempty" yaml:"message,omitempty"`
}

// SourceKey returns the record's source IP, or UnknownSource if absent.
func (r LogRecord) SourceKey() string {
	if r.SourceIP == "" {
		return UnknownSource
	}
	return r.SourceIP
}

// HasDestinationPort reports whether the destination port is present.
func (r LogRecord) HasDestinationPort() bool {
	return r.DestinationPort != nil
}

// Validate checks the two required fields.
func (r LogRecord) Validate() error {
	switch {
	case r.Timestamp.IsZero() && r.EventType == "":
		return errMissing("timestamp and event_type")
	case r.Timestamp.IsZero():
		return errMissing("timestamp")
	case r.EventType == "":
		return errMissing("event_type")
	}
	return nil
}

// Port returns a pointer to p, for building records with optional ports.
func Port(p int) *int {
	return &p
}
