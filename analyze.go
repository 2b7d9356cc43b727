package riskvault

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/riskvault/config"
	"github.com/zero-day-ai/riskvault/detect"
	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/register"
	"github.com/zero-day-ai/riskvault/risk"
	"github.com/zero-day-ai/riskvault/riskerr"
)

// DetectorRun reports one detector's raw output before merging.
type DetectorRun struct {
	Name     string `json:"name"`
	Findings int    `json:"findings"`
}

// Result is the outcome of one Analyze call.
type Result struct {
	// RunID identifies the run in logs and traces.
	RunID string `json:"run_id"`

	// Register is the ordered risk register.
	Register *register.Register `json:"register"`

	// Rejected lists the malformed records that were left out.
	Rejected []event.Rejection `json:"rejected,omitempty"`

	// Detectors reports raw finding counts per detector.
	Detectors []DetectorRun `json:"detectors,omitempty"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration"`
}

// Empty reports whether the run produced no register entries.
func (r *Result) Empty() bool {
	return r.Register == nil || r.Register.Empty()
}

// Summary returns the register rollups.
func (r *Result) Summary() register.Summary {
	if r.Register == nil {
		return register.Summary{}
	}
	return r.Register.Summary()
}

// Analyze runs the full pipeline over records with cfg.
//
// An invalid cfg fails with an error matching ErrInvalidConfiguration and
// nothing runs. Malformed records are excluded and listed in
// Result.Rejected. No usable records is not an error: the register is empty.
// ctx is checked between stages.
func Analyze(ctx context.Context, records []event.LogRecord, cfg config.Config, opts ...Option) (*Result, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.runID == "" {
		o.runID = uuid.New().String()
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", o.runID)
	tracer := tracerOrNoop(o.tracer)

	start := time.Now()
	ctx, span := tracer.Start(ctx, "riskvault.analyze", trace.WithAttributes(
		attribute.String("riskvault.run_id", o.runID),
		attribute.Int("riskvault.input_records", len(records)),
	))

	res, err := analyze(ctx, records, cfg, o, logger, tracer)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}
	res.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("riskvault.entries", res.Register.Len()),
		attribute.Int("riskvault.rejected", len(res.Rejected)),
	)
	endSpan(span, nil)

	metrics, err := newRunMetrics(o.meter)
	if err != nil {
		logger.Warn("metrics unavailable", "error", err)
	}
	metrics.record(ctx, res.Register, res.Duration)

	summary := res.Register.Summary()
	logger.Info("analysis complete",
		"entries", summary.Total,
		"critical", summary.ByLevel[risk.LevelCritical],
		"moderate", summary.ByLevel[risk.LevelModerate],
		"low", summary.ByLevel[risk.LevelLow],
		"rejected", len(res.Rejected),
		"duration", res.Duration,
	)
	return res, nil
}

func analyze(ctx context.Context, records []event.LogRecord, cfg config.Config, o *options, logger *slog.Logger, tracer trace.Tracer) (*Result, error) {
	// Configuration first: an invalid bundle never touches the records.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	filter, err := cfg.Filter()
	if err != nil {
		return nil, riskerr.InvalidConfiguration("riskvault.Analyze", "invalid exclude expression").WithCause(err)
	}
	detectors, err := cfg.Detectors()
	if err != nil {
		return nil, err
	}
	scorer, err := cfg.Scorer(logger.With("stage", "score"))
	if err != nil {
		return nil, err
	}
	classifier, err := cfg.Classifier()
	if err != nil {
		return nil, err
	}

	// Ingest
	_, span := tracer.Start(ctx, "riskvault.ingest")
	aliases := cfg.AliasTable()
	normalized := make([]event.LogRecord, len(records))
	for i, r := range records {
		normalized[i] = aliases.Canonicalize(r)
	}
	tableOpts := []event.TableOption{event.WithLogger(logger.With("stage", "ingest"))}
	if filter != nil {
		tableOpts = append(tableOpts, event.WithFilter(filter))
	}
	table := event.NewTable(normalized, tableOpts...)
	stats := register.StatsOf(table)
	span.SetAttributes(
		attribute.Int("riskvault.analysed", stats.Analysed),
		attribute.Int("riskvault.rejected", stats.Rejected),
		attribute.Int("riskvault.excluded", stats.Excluded),
	)
	endSpan(span, nil)

	res := &Result{RunID: o.runID, Rejected: table.Rejected()}
	builder := register.NewBuilder(scorer, classifier, register.WithLogger(logger.With("stage", "register")))

	if table.Empty() {
		logger.Info("no usable records, register is empty", "input", stats.Input, "rejected", stats.Rejected)
		res.Register = builder.Build(nil, stats)
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Detect
	_, span = tracer.Start(ctx, "riskvault.detect", trace.WithAttributes(
		attribute.Int("riskvault.detectors", len(detectors)),
		attribute.Bool("riskvault.parallel", !o.sequential),
	))
	findings, runs, err := detect.Run(table, detectors, !o.sequential)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		res.Detectors = append(res.Detectors, DetectorRun{Name: r.Detector, Findings: len(r.Findings)})
		logger.Debug("detector finished", "detector", r.Detector, "findings", len(r.Findings))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Score, classify, order
	_, span = tracer.Start(ctx, "riskvault.register")
	res.Register = builder.Build(findings, stats)
	span.SetAttributes(attribute.Int("riskvault.entries", res.Register.Len()))
	endSpan(span, nil)

	return res, nil
}
