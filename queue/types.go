package queue

import (
	"fmt"
	"time"

	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/ingest"
	"github.com/zero-day-ai/riskvault/report"
)

// Batch is one unit of analysis work: a bounded set of log records.
type Batch struct {
	// ID identifies the batch and names its report channel.
	ID string `json:"id"`

	// Records are already decoded log records.
	Records []event.LogRecord `json:"records,omitempty"`

	// Payload is raw log text, decoded by the worker using Format.
	// Records and Payload are mutually exclusive.
	Payload string `json:"payload,omitempty"`

	// Format is the ingest format of Payload.
	Format ingest.Format `json:"format,omitempty"`

	// Config is an optional YAML configuration document overriding the
	// worker's configuration for this batch.
	Config string `json:"config,omitempty"`

	// TraceID and SpanID carry the producer's trace context.
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`

	// SubmittedAt is the Unix timestamp in milliseconds when the batch was pushed.
	SubmittedAt int64 `json:"submitted_at"`
}

// Validate checks that the batch can be processed.
func (b *Batch) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("batch id is required")
	}
	if len(b.Records) > 0 && b.Payload != "" {
		return fmt.Errorf("records and payload are mutually exclusive")
	}
	if b.Payload != "" && !b.Format.IsValid() {
		return fmt.Errorf("payload format %q is not supported", b.Format)
	}
	if b.SubmittedAt <= 0 {
		return fmt.Errorf("submitted_at must be positive, got %d", b.SubmittedAt)
	}
	return nil
}

// Age returns the duration since the batch was submitted.
func (b *Batch) Age() time.Duration {
	if b.SubmittedAt <= 0 {
		return 0
	}
	return time.Duration(time.Now().UnixMilli()-b.SubmittedAt) * time.Millisecond
}

// Report is the outcome of analysing a Batch.
type Report struct {
	// BatchID correlates the report with its batch.
	BatchID string `json:"batch_id"`

	// RunID identifies the pipeline run.
	RunID string `json:"run_id,omitempty"`

	// Document is the exported register. Nil if Error is set.
	Document *report.Document `json:"document,omitempty"`

	// Error is the failure message if the batch could not be analysed.
	Error string `json:"error,omitempty"`

	// WorkerID is the worker that processed the batch.
	WorkerID string `json:"worker_id"`

	// StartedAt and CompletedAt are Unix timestamps in milliseconds.
	StartedAt   int64 `json:"started_at"`
	CompletedAt int64 `json:"completed_at"`
}

// HasError returns true if the batch failed.
func (r *Report) HasError() bool {
	return r.Error != ""
}

// Duration returns the wall-clock time the worker spent on the batch.
func (r *Report) Duration() time.Duration {
	if r.StartedAt <= 0 || r.CompletedAt <= 0 {
		return 0
	}
	return time.Duration(r.CompletedAt-r.StartedAt) * time.Millisecond
}

// Validate checks the report's required fields.
func (r *Report) Validate() error {
	if r.BatchID == "" {
		return fmt.Errorf("batch_id is required")
	}
	if r.WorkerID == "" {
		return fmt.Errorf("worker_id is required")
	}
	if r.StartedAt <= 0 {
		return fmt.Errorf("started_at must be positive, got %d", r.StartedAt)
	}
	if r.CompletedAt < r.StartedAt {
		return fmt.Errorf("completed_at (%d) cannot be before started_at (%d)", r.CompletedAt, r.StartedAt)
	}
	if !r.HasError() && r.Document == nil {
		return fmt.Errorf("document is required when error is empty")
	}
	return nil
}
