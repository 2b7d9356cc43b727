package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/riskerr"
)

// maxLineSize bounds a single JSON-lines or text line.
const maxLineSize = 1 << 20

// Reader decodes one log format into LogRecords.
type Reader struct {
	format   Format
	aliases  event.AliasTable
	location *time.Location
	patterns map[string]Pattern
	lines    *LineParser
	strict   bool
	logger   *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithAliases normalizes event types through the given alias table while
// reading. Without it, event types are kept as written and normalized later
// by the pipeline.
func WithAliases(aliases event.AliasTable) Option {
	return func(r *Reader) {
		r.aliases = aliases
	}
}

// WithLocation sets the zone used for timestamps that carry none.
// The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(r *Reader) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithPatterns replaces the line patterns used by FormatText. Each pattern
// captures fields with named groups; see NewLineParser.
func WithPatterns(patterns map[string]Pattern) Option {
	return func(r *Reader) {
		r.patterns = patterns
	}
}

// WithStrict makes the first undecodable line a MalformedRecord error
// instead of an empty record.
func WithStrict() Option {
	return func(r *Reader) {
		r.strict = true
	}
}

// WithLogger sets the logger for skipped and undecodable lines.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReader creates a Reader for the given format.
func NewReader(format Format, opts ...Option) (*Reader, error) {
	if !format.IsValid() {
		return nil, riskerr.InvalidConfiguration("ingest.NewReader",
			fmt.Sprintf("unsupported input format %q", format))
	}

	r := &Reader{
		format:   format,
		location: time.UTC,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if format == FormatText {
		patterns := r.patterns
		if len(patterns) == 0 {
			patterns = DefaultPatterns()
		}
		lines, err := NewLineParser(patterns)
		if err != nil {
			return nil, riskerr.InvalidConfiguration("ingest.NewReader", "invalid line pattern").WithCause(err)
		}
		r.lines = lines
	}
	return r, nil
}

// Format returns the format the reader decodes.
func (r *Reader) Format() Format {
	return r.format
}

// Read decodes all records from src.
func (r *Reader) Read(ctx context.Context, src io.Reader) ([]event.LogRecord, error) {
	var (
		records []event.LogRecord
		err     error
	)
	switch r.format {
	case FormatCSV:
		records, err = r.readCSV(ctx, src)
	case FormatJSONLines:
		records, err = r.readJSONLines(ctx, src)
	case FormatJSON:
		records, err = r.readJSON(src)
	case FormatText:
		records, err = r.readText(ctx, src)
	}
	if err != nil {
		return nil, err
	}

	if r.aliases != nil {
		for i := range records {
			records[i] = r.aliases.Canonicalize(records[i])
		}
	}
	return records, nil
}

// Decode is Read over an in-memory buffer.
func (r *Reader) Decode(ctx context.Context, data []byte) ([]event.LogRecord, error) {
	return r.Read(ctx, bytes.NewReader(data))
}

// ReadFile reads a log file, inferring the format from its extension.
func ReadFile(ctx context.Context, path string, opts ...Option) ([]event.LogRecord, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, riskerr.InvalidConfiguration("ingest.ReadFile", err.Error())
	}
	r, err := NewReader(format, opts...)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	return r.Read(ctx, f)
}

// undecodable handles a line that could not be decoded. In strict mode it
// returns an error; otherwise it logs and returns an empty record so the
// line is counted as malformed downstream.
func (r *Reader) undecodable(line int, cause error) (event.LogRecord, error) {
	if r.strict {
		return event.LogRecord{}, riskerr.Malformed("ingest.Read", fmt.Sprintf("line %d", line)).
			WithCause(cause).
			WithDetails(map[string]any{"line": line, "format": r.format.String()})
	}
	r.logger.Warn("undecodable log line",
		"format", r.format.String(),
		"line", line,
		"error", cause,
	)
	return event.LogRecord{}, nil
}
