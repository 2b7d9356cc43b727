package riskvault

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/riskvault/config"
)

func TestOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	tracer := tracenoop.NewTracerProvider().Tracer("test")
	meter := noop.NewMeterProvider().Meter("test")

	o := &options{}
	for _, opt := range []Option{
		WithLogger(logger),
		WithTracer(tracer),
		WithMeter(meter),
		WithSequentialDetectors(),
		WithRunID("run-1"),
	} {
		opt(o)
	}

	assert.Same(t, logger, o.logger)
	assert.Equal(t, tracer, o.tracer)
	assert.Equal(t, meter, o.meter)
	assert.True(t, o.sequential)
	assert.Equal(t, "run-1", o.runID)
}

func TestAnalyze_GeneratesRunID(t *testing.T) {
	a, err := Analyze(context.Background(), bruteForceBurst(), config.Default(), WithLogger(quietLogger()))
	require.NoError(t, err)
	b, err := Analyze(context.Background(), bruteForceBurst(), config.Default(), WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Len(t, a.RunID, 36)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestAnalyze_SequentialMatchesParallel(t *testing.T) {
	records := append(bruteForceBurst(), portSweep()...)

	par, err := Analyze(context.Background(), records, config.Default(), WithLogger(quietLogger()), WithRunID("r"))
	require.NoError(t, err)
	seq, err := Analyze(context.Background(), records, config.Default(), WithLogger(quietLogger()), WithRunID("r"), WithSequentialDetectors())
	require.NoError(t, err)

	assert.Equal(t, par.Register.Entries, seq.Register.Entries)
}
