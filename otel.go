package riskvault

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/riskvault/register"
)

// runMetrics holds the OpenTelemetry metric instruments for Analyze.
type runMetrics struct {
	// records counts input records by outcome (analysed, rejected, excluded)
	records metric.Int64Counter

	// findings counts merged findings by category
	findings metric.Int64Counter

	// entries counts register entries by level
	entries metric.Int64Counter

	// duration records run duration in milliseconds
	duration metric.Float64Histogram
}

// newRunMetrics creates the instruments. A nil meter yields nil metrics.
func newRunMetrics(meter metric.Meter) (*runMetrics, error) {
	if meter == nil {
		return nil, nil
	}

	m := &runMetrics{}
	var err error

	m.records, err = meter.Int64Counter(
		"riskvault.records",
		metric.WithDescription("Log records offered for analysis, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create records counter: %w", err)
	}

	m.findings, err = meter.Int64Counter(
		"riskvault.findings",
		metric.WithDescription("Merged findings, by category"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create findings counter: %w", err)
	}

	m.entries, err = meter.Int64Counter(
		"riskvault.entries",
		metric.WithDescription("Register entries, by risk level"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create entries counter: %w", err)
	}

	m.duration, err = meter.Float64Histogram(
		"riskvault.analyze.duration",
		metric.WithDescription("Analysis duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return m, nil
}

// record adds the run's counts. Safe to call on nil metrics.
func (m *runMetrics) record(ctx context.Context, reg *register.Register, elapsed time.Duration) {
	if m == nil {
		return
	}

	outcome := func(name string) metric.AddOption {
		return metric.WithAttributes(attribute.String("outcome", name))
	}
	m.records.Add(ctx, int64(reg.Stats.Analysed), outcome("analysed"))
	m.records.Add(ctx, int64(reg.Stats.Rejected), outcome("rejected"))
	m.records.Add(ctx, int64(reg.Stats.Excluded), outcome("excluded"))

	summary := reg.Summary()
	for category, n := range summary.ByCategory {
		if n > 0 {
			m.findings.Add(ctx, int64(n), metric.WithAttributes(attribute.String("category", string(category))))
		}
	}
	for level, n := range summary.ByLevel {
		if n > 0 {
			m.entries.Add(ctx, int64(n), metric.WithAttributes(attribute.String("level", string(level))))
		}
	}
	m.duration.Record(ctx, float64(elapsed.Milliseconds()))
}

// tracerOrNoop returns t, or a no-op tracer when t is nil.
func tracerOrNoop(t trace.Tracer) trace.Tracer {
	if t == nil {
		return noop.NewTracerProvider().Tracer("riskvault")
	}
	return t
}

// endSpan sets the span status from err and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
