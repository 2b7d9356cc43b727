package event

import (
	"log/slog"
	"sort"
	"time"

	"github.com/zero-day-ai/riskvault/riskerr"
)

// Filter decides whether a well-formed record is excluded from analysis.
type Filter interface {
	Exclude(r LogRecord) (bool, error)
}

// Rejection describes one record excluded as malformed.
type Rejection struct {
	// Index is the record's position in the input sequence.
	Index int `json:"index"`

	// Err wraps riskerr.ErrMalformedRecord.
	Err error `json:"-"`

	// Reason is Err rendered as text, for reporting.
	Reason string `json:"reason"`
}

// TableOption configures NewTable.
type TableOption func(*tableConfig)

type tableConfig struct {
	filter Filter
	logger *slog.Logger
}

// WithFilter excludes records the filter matches. Filter errors keep the record.
func WithFilter(f Filter) TableOption {
	return func(c *tableConfig) {
		c.filter = f
	}
}

// WithLogger sets the logger used to report rejected and excluded records.
func WithLogger(logger *slog.Logger) TableOption {
	return func(c *tableConfig) {
		c.logger = logger
	}
}

// Table is an immutable, timestamp-ordered collection of log records.
type Table struct {
	records   []LogRecord
	rejected  []Rejection
	excluded  int
	bySource  map[string][]int
	sources   []string
	inputSize int
}

// NewTable normalizes, validates and orders records.
//
// Each record's Seq is set to its input position. Records are sorted by
// timestamp ascending; records with equal timestamps keep their input order.
// Malformed records are left out and listed in Rejected.
func NewTable(records []LogRecord, opts ...TableOption) *Table {
	cfg := &tableConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	t := &Table{
		records:   make([]LogRecord, 0, len(records)),
		bySource:  make(map[string][]int),
		inputSize: len(records),
	}

	for i, r := range records {
		r.Seq = i
		if err := r.Validate(); err != nil {
			rerr := riskerr.Malformed("event.NewTable", "record excluded").
				WithCause(err).
				WithDetails(map[string]any{"index": i})
			t.rejected = append(t.rejected, Rejection{Index: i, Err: rerr, Reason: err.Error()})
			logger.Warn("malformed log record excluded", "index", i, "error", err)
			continue
		}

		if cfg.filter != nil {
			excluded, err := cfg.filter.Exclude(r)
			if err != nil {
				logger.Warn("exclusion filter failed, keeping record", "index", i, "error", err)
			} else if excluded {
				t.excluded++
				continue
			}
		}

		t.records = append(t.records, r)
	}

	sort.SliceStable(t.records, func(i, j int) bool {
		return t.records[i].Timestamp.Before(t.records[j].Timestamp)
	})

	for i, r := range t.records {
		key := r.SourceKey()
		if _, ok := t.bySource[key]; !ok {
			t.sources = append(t.sources, key)
		}
		t.bySource[key] = append(t.bySource[key], i)
	}
	sort.Strings(t.sources)

	return t
}

// Len returns the number of usable records.
func (t *Table) Len() int {
	return len(t.records)
}

// Empty reports whether no usable records remain.
func (t *Table) Empty() bool {
	return len(t.records) == 0
}

// InputSize returns the number of records offered to NewTable.
func (t *Table) InputSize() int {
	return t.inputSize
}

// Rejected returns the malformed records that were left out.
func (t *Table) Rejected() []Rejection {
	out := make([]Rejection, len(t.rejected))
	copy(out, t.rejected)
	return out
}

// Excluded returns how many well-formed records the filter removed.
func (t *Table) Excluded() int {
	return t.excluded
}

// Records returns all usable records in timestamp order.
func (t *Table) Records() []LogRecord {
	out := make([]LogRecord, len(t.records))
	copy(out, t.records)
	return out
}

// ByType returns records whose event type is any of types.
func (t *Table) ByType(types ...EventType) []LogRecord {
	want := make(map[EventType]bool, len(types))
	for _, et := range types {
		want[et] = true
	}
	var out []LogRecord
	for _, r := range t.records {
		if want[r.EventType] {
			out = append(out, r)
		}
	}
	return out
}

// BySource returns records from the given source key. Pass UnknownSource
// (or "") for records without a source IP.
func (t *Table) BySource(source string) []LogRecord {
	if source == "" {
		source = UnknownSource
	}
	idx := t.bySource[source]
	out := make([]LogRecord, 0, len(idx))
	for _, i := range idx {
		out = append(out, t.records[i])
	}
	return out
}

// Between returns records with from <= timestamp <= to.
func (t *Table) Between(from, to time.Time) []LogRecord {
	lo := sort.Search(len(t.records), func(i int) bool {
		return !t.records[i].Timestamp.Before(from)
	})
	var out []LogRecord
	for i := lo; i < len(t.records) && !t.records[i].Timestamp.After(to); i++ {
		out = append(out, t.records[i])
	}
	return out
}

// Sources returns the distinct source keys in lexical order.
func (t *Table) Sources() []string {
	out := make([]string, len(t.sources))
	copy(out, t.sources)
	return out
}

// GroupBySource returns records keyed by source key. Each group is in
// timestamp order.
func (t *Table) GroupBySource() map[string][]LogRecord {
	out := make(map[string][]LogRecord, len(t.bySource))
	for _, key := range t.sources {
		out[key] = t.BySource(key)
	}
	return out
}

// Span returns the first and last timestamps in the table.
func (t *Table) Span() (time.Time, time.Time) {
	if len(t.records) == 0 {
		return time.Time{}, time.Time{}
	}
	return t.records[0].Timestamp, t.records[len(t.records)-1].Timestamp
}
