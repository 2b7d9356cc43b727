package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/riskvault/register"
)

// Document is the exported form of a register.
type Document struct {
	RunID       string                `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	GeneratedAt time.Time             `json:"generated_at" yaml:"generated_at"`
	Summary     register.Summary      `json:"summary" yaml:"summary"`
	Matrix      []register.MatrixCell `json:"matrix" yaml:"matrix"`
	Entries     []register.Entry      `json:"entries" yaml:"entries"`
}

// Option configures an export.
type Option func(*options)

type options struct {
	runID string
	now   func() time.Time
}

// WithRunID stamps the document with the run that produced the register.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

// WithGeneratedAt fixes the document timestamp. The default is the current
// time in UTC.
func WithGeneratedAt(t time.Time) Option {
	return func(o *options) {
		o.now = func() time.Time { return t }
	}
}

// NewDocument assembles the exported form of reg. A nil register yields an
// empty document.
func NewDocument(reg *register.Register, opts ...Option) Document {
	o := options{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	if reg == nil {
		reg = &register.Register{}
	}

	entries := reg.Entries
	if entries == nil {
		entries = []register.Entry{}
	}
	return Document{
		RunID:       o.runID,
		GeneratedAt: o.now(),
		Summary:     reg.Summary(),
		Matrix:      reg.Matrix(),
		Entries:     entries,
	}
}

// Write renders reg to w in the given format.
func Write(w io.Writer, reg *register.Register, format Format, opts ...Option) error {
	doc := NewDocument(reg, opts...)

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode JSON report: %w", err)
		}
		return nil

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode YAML report: %w", err)
		}
		return enc.Close()

	case FormatCSV:
		return writeCSV(w, doc.Entries)

	default:
		return fmt.Errorf("invalid export format: %s", format)
	}
}

// Marshal renders reg in the given format.
func Marshal(reg *register.Register, format Format, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, reg, format, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders reg to path, picking the format from the extension.
func WriteFile(path string, reg *register.Register, opts ...Option) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	data, err := Marshal(reg, format, opts...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// csvHeader lists the CSV columns in order.
var csvHeader = []string{
	"rank",
	"level",
	"rpn",
	"severity",
	"probability",
	"detectability",
	"category",
	"source_ip",
	"username",
	"window_start",
	"window_end",
	"evidence_count",
	"detector",
	"finding_id",
	"description",
	"action",
	"mitigation",
}

func writeCSV(w io.Writer, entries []register.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, e := range entries {
		f := e.Finding
		row := []string{
			strconv.Itoa(e.Rank),
			e.Level.String(),
			strconv.Itoa(e.Score.RPN),
			strconv.Itoa(e.Score.Severity),
			strconv.Itoa(e.Score.Probability),
			strconv.Itoa(e.Score.Detectability),
			f.Category.String(),
			f.Actor.SourceIP,
			f.Actor.Username,
			f.WindowStart.UTC().Format(time.RFC3339),
			f.WindowEnd.UTC().Format(time.RFC3339),
			strconv.Itoa(f.EvidenceCount),
			f.Detector,
			f.ID,
			e.Description,
			e.Action,
			e.Mitigation,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", e.Rank, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
