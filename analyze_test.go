package riskvault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zero-day-ai/riskvault/config"
	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/finding"
	"github.com/zero-day-ai/riskvault/risk"
	"github.com/zero-day-ai/riskvault/score"
)

var base = time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return base.Add(time.Duration(seconds) * time.Second)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// bruteForceBurst is six failed logins from 10.0.0.10 within two minutes.
func bruteForceBurst() []event.LogRecord {
	var recs []event.LogRecord
	for _, s := range []int{0, 20, 45, 70, 95, 120} {
		recs = append(recs, event.LogRecord{
			Timestamp: at(s),
			EventType: event.EventFailedLogin,
			SourceIP:  "10.0.0.10",
			Username:  "admin",
			Message:   "Failed password for admin",
		})
	}
	return recs
}

// portSweep is twelve distinct ports from 10.0.0.20 within three minutes.
func portSweep() []event.LogRecord {
	var recs []event.LogRecord
	for i := 0; i < 12; i++ {
		recs = append(recs, event.LogRecord{
			Timestamp:       at(600 + i*15),
			EventType:       event.EventConnectionAttempt,
			SourceIP:        "10.0.0.20",
			DestinationIP:   "10.1.0.5",
			DestinationPort: event.Port(8000 + i),
		})
	}
	return recs
}

func runAnalyze(t *testing.T, records []event.LogRecord, cfg config.Config, opts ...Option) *Result {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	res, err := Analyze(context.Background(), records, cfg, opts...)
	require.NoError(t, err)
	require.NotNil(t, res.Register)
	return res
}

func TestAnalyze_BruteForceScenario(t *testing.T) {
	res := runAnalyze(t, bruteForceBurst(), config.Default())

	require.Equal(t, 1, res.Register.Len())
	e := res.Register.Entries[0]
	assert.Equal(t, finding.CategoryBruteForce, e.Finding.Category)
	assert.Equal(t, "10.0.0.10", e.Finding.Actor.SourceIP)
	assert.Equal(t, 6, e.Finding.EvidenceCount)
	assert.Equal(t, score.Score{Severity: 7, Probability: 8, Detectability: 5, RPN: 280}, e.Score)
	assert.Equal(t, risk.LevelCritical, e.Level)
	assert.NotEmpty(t, e.Action)
}

func TestAnalyze_PortScanScenario(t *testing.T) {
	res := runAnalyze(t, portSweep(), config.Default())

	require.Equal(t, 1, res.Register.Len())
	f := res.Register.Entries[0].Finding
	assert.Equal(t, finding.CategoryPortScan, f.Category)
	assert.Equal(t, "10.0.0.20", f.Actor.SourceIP)
	assert.Equal(t, 12, f.EvidenceCount)
}

func TestAnalyze_BelowThreshold(t *testing.T) {
	var recs []event.LogRecord
	for _, s := range []int{0, 15, 30, 45} {
		recs = append(recs, event.LogRecord{Timestamp: at(s), EventType: event.EventFailedLogin, SourceIP: "10.0.0.30"})
	}

	res := runAnalyze(t, recs, config.Default())
	assert.True(t, res.Empty())
	assert.Equal(t, 4, res.Register.Stats.Analysed)
}

func TestAnalyze_OverlappingBurstsMergeIntoOneEntry(t *testing.T) {
	cfg := config.Default()
	cfg.BruteForce.Window = "1m"
	cfg.BruteForce.ThresholdCount = 3

	var recs []event.LogRecord
	for _, s := range []int{0, 10, 20, 50, 70, 100} {
		recs = append(recs, event.LogRecord{Timestamp: at(s), EventType: event.EventFailedLogin, SourceIP: "10.0.0.40"})
	}

	res := runAnalyze(t, recs, cfg)
	require.Equal(t, 1, res.Register.Len())
	assert.Equal(t, 6, res.Register.Entries[0].Finding.EvidenceCount)
}

func TestAnalyze_InvalidConfigurationNeverRuns(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
		window bool
	}{
		{"thresholds inverted", func(c *config.Config) { c.LowRPNThreshold = 500 }, false},
		{"zero window", func(c *config.Config) { c.BruteForce.Window = "0s" }, true},
		{"bad scale", func(c *config.Config) { c.Scale = score.Scale{Min: 5, Max: 1} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			cfg := config.Default()
			tt.mutate(&cfg)

			res, err := Analyze(context.Background(), bruteForceBurst(), cfg,
				WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))
			if tt.window {
				assert.True(t, errors.Is(err, ErrInvalidWindow))
			}
			assert.NotContains(t, logs.String(), "analysis complete")
		})
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	res := runAnalyze(t, nil, config.Default())
	assert.True(t, res.Empty())
	assert.Zero(t, res.Summary().Total)

	// Only malformed records: still an empty register, not an error.
	res = runAnalyze(t, []event.LogRecord{{SourceIP: "10.0.0.1"}, {Timestamp: at(0)}}, config.Default())
	assert.True(t, res.Empty())
	assert.Len(t, res.Rejected, 2)
	assert.Equal(t, 2, res.Summary().Stats.Rejected)
}

func TestAnalyze_MalformedRecordsExcludedNotFatal(t *testing.T) {
	recs := append(bruteForceBurst(),
		event.LogRecord{EventType: event.EventFailedLogin, SourceIP: "10.0.0.10"},
		event.LogRecord{Timestamp: at(30), SourceIP: "10.0.0.10"},
	)

	res := runAnalyze(t, recs, config.Default())
	assert.Equal(t, 1, res.Register.Len())
	require.Len(t, res.Rejected, 2)
	assert.Equal(t, 6, res.Rejected[0].Index)
	assert.ErrorIs(t, res.Rejected[0].Err, ErrMalformedRecord)
	assert.Equal(t, 2, res.Register.Stats.Rejected)
	assert.Equal(t, 6, res.Register.Stats.Analysed)
}

func TestAnalyze_UnknownSourceGrouped(t *testing.T) {
	var recs []event.LogRecord
	for i := 0; i < 5; i++ {
		recs = append(recs, event.LogRecord{Timestamp: at(i * 5), EventType: event.EventFailedLogin})
	}

	res := runAnalyze(t, recs, config.Default())
	require.Equal(t, 1, res.Register.Len())
	assert.Equal(t, event.UnknownSource, res.Register.Entries[0].Finding.Actor.SourceIP)
}

func TestAnalyze_AliasesNormalized(t *testing.T) {
	var recs []event.LogRecord
	for i, raw := range []string{"failed_auth", "LOGIN_FAILED", "auth_failure", "failed_login", "Failed_Auth"} {
		recs = append(recs, event.LogRecord{Timestamp: at(i), EventType: event.EventType(raw), SourceIP: "10.0.0.50"})
	}

	res := runAnalyze(t, recs, config.Default())
	require.Equal(t, 1, res.Register.Len())
	assert.Equal(t, 5, res.Register.Entries[0].Finding.EvidenceCount)
}

func TestAnalyze_ExcludeExpression(t *testing.T) {
	cfg := config.Default()
	cfg.Exclude = `record.source_ip == "10.0.0.10"`

	res := runAnalyze(t, append(bruteForceBurst(), portSweep()...), cfg)
	require.Equal(t, 1, res.Register.Len())
	assert.Equal(t, finding.CategoryPortScan, res.Register.Entries[0].Finding.Category)
	assert.Equal(t, 6, res.Register.Stats.Excluded)
}

func TestAnalyze_Watchlist(t *testing.T) {
	cfg := config.Default()
	cfg.Watchlist.IPs = []string{"203.0.113.9"}

	recs := []event.LogRecord{
		{Timestamp: at(0), EventType: event.EventInfo, SourceIP: "203.0.113.9", Message: "GET /"},
		{Timestamp: at(30), EventType: event.EventInfo, SourceIP: "203.0.113.9", Message: "GET /admin"},
	}

	res := runAnalyze(t, recs, cfg)
	require.Equal(t, 1, res.Register.Len())
	e := res.Register.Entries[0]
	assert.Equal(t, finding.CategorySuspiciousSource, e.Finding.Category)
	assert.Equal(t, 2, e.Finding.EvidenceCount)
	require.Len(t, res.Detectors, 3)
}

func TestAnalyze_Deterministic(t *testing.T) {
	cfg := config.Default()
	cfg.Watchlist.IPs = []string{"10.0.0.20"}
	recs := append(bruteForceBurst(), portSweep()...)

	first := runAnalyze(t, recs, cfg)
	second := runAnalyze(t, recs, cfg, WithSequentialDetectors())

	a, err := json.Marshal(first.Register)
	require.NoError(t, err)
	b, err := json.Marshal(second.Register)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.NotEqual(t, first.RunID, second.RunID)

	// Register order: RPN desc, then window start.
	require.Equal(t, 3, first.Register.Len())
	for i := 1; i < first.Register.Len(); i++ {
		prev, cur := first.Register.Entries[i-1], first.Register.Entries[i]
		assert.GreaterOrEqual(t, prev.Score.RPN, cur.Score.RPN)
	}
}

func TestAnalyze_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Analyze(ctx, bruteForceBurst(), config.Default(), WithLogger(quietLogger()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	res := runAnalyze(t, bruteForceBurst(), config.Default(),
		WithTracer(tp.Tracer("test")),
		WithMeter(noop.NewMeterProvider().Meter("test")),
		WithRunID("run-1"),
	)
	assert.Equal(t, "run-1", res.RunID)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{
		"riskvault.ingest",
		"riskvault.detect",
		"riskvault.register",
		"riskvault.analyze",
	}, names)
}

func TestAnalyze_LogsRunID(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	_, err := Analyze(context.Background(), bruteForceBurst(), config.Default(),
		WithLogger(logger), WithRunID("run-42"))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `"run_id":"run-42"`)
	assert.Contains(t, logs.String(), "analysis complete")
}
