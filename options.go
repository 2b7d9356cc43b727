package riskvault

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a call to Analyze.
type Option func(*options)

// options holds the per-run settings.
type options struct {
	logger     *slog.Logger
	tracer     trace.Tracer
	meter      metric.Meter
	sequential bool
	runID      string
}

// WithLogger sets a custom logger for the run.
// If not provided, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer. Each run gets a root span with
// one child span per stage.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter for run counters.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithSequentialDetectors runs detectors one after another instead of in
// parallel. The register is the same either way.
func WithSequentialDetectors() Option {
	return func(o *options) {
		o.sequential = true
	}
}

// WithRunID sets the run identifier attached to logs and spans. By default
// a random UUID is used.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}
