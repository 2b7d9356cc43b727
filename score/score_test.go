package score

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/riskvault/finding"
	"github.com/zero-day-ai/riskvault/riskerr"
)

var base = time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)

func burst(category finding.Category, evidence int, span time.Duration) finding.Finding {
	ids := make([]int, evidence)
	for i := range ids {
		ids[i] = i
	}
	var ports []int
	if category.CountsDistinctPorts() {
		ports = ids
	}
	return finding.New(category, finding.ActorKey{SourceIP: "10.0.0.10"}, "test",
		base, base.Add(span), ids, ports)
}

func intPtr(v int) *int { return &v }

func TestScale(t *testing.T) {
	assert.NoError(t, DefaultScale.Validate())
	assert.Equal(t, 1000, DefaultScale.MaxRPN())

	for _, bad := range []Scale{{Min: 0, Max: 10}, {Min: 5, Max: 4}, {Min: -1, Max: -1}} {
		err := bad.Validate()
		assert.ErrorIs(t, err, riskerr.ErrInvalidConfiguration, "scale %+v", bad)
	}

	v, changed := DefaultScale.Clamp(12)
	assert.Equal(t, 10, v)
	assert.True(t, changed)
	v, changed = DefaultScale.Clamp(0)
	assert.Equal(t, 1, v)
	assert.True(t, changed)
	v, changed = DefaultScale.Clamp(7)
	assert.Equal(t, 7, v)
	assert.False(t, changed)
}

func TestNew_ComputesRPN(t *testing.T) {
	s := New(7, 8, 5)
	assert.Equal(t, 280, s.RPN)
	assert.Equal(t, "7×8×5=280", s.String())
}

func TestPolicy_SeverityFor(t *testing.T) {
	p := DefaultPolicy(finding.CategoryBruteForce, 5*time.Minute)

	tests := []struct {
		evidence int
		want     int
	}{
		{1, 5},
		{4, 5},
		{5, 7},
		{6, 7},
		{19, 7},
		{20, 9},
		{500, 9},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.SeverityFor(tt.evidence), "evidence %d", tt.evidence)
	}
}

func TestPolicy_SeverityFor_UnorderedBreakpoints(t *testing.T) {
	p := Policy{
		Severity:        []SeverityBreakpoint{{MinEvidence: 10, Value: 7}, {MinEvidence: 20, Value: 9}},
		SeverityDefault: 5,
	}
	assert.Equal(t, 5, p.SeverityFor(9))
	assert.Equal(t, 7, p.SeverityFor(10))
	assert.Equal(t, 9, p.SeverityFor(25))
}

func TestPolicy_ProbabilityFor(t *testing.T) {
	p := DefaultPolicy(finding.CategoryBruteForce, 5*time.Minute)

	tests := []struct {
		span time.Duration
		want int
	}{
		{0, 8},
		{2 * time.Minute, 8},
		{150 * time.Second, 8},
		{3 * time.Minute, 5},
		{5 * time.Minute, 5},
		{6 * time.Minute, 3},
		{time.Hour, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.ProbabilityFor(tt.span), "span %s", tt.span)
	}

	p.Baseline = 0
	assert.Equal(t, 3, p.ProbabilityFor(0))
}

func TestPolicy_Validate(t *testing.T) {
	good := DefaultPolicy(finding.CategoryPortScan, time.Minute)
	require.NoError(t, good.Validate(finding.CategoryPortScan))

	tests := []struct {
		name   string
		policy Policy
	}{
		{"negative baseline", Policy{Baseline: -time.Second}},
		{"zero min evidence", Policy{Severity: []SeverityBreakpoint{{MinEvidence: 0, Value: 5}}}},
		{"duplicate min evidence", Policy{Severity: []SeverityBreakpoint{{MinEvidence: 3, Value: 5}, {MinEvidence: 3, Value: 6}}}},
		{"zero max ratio", Policy{Probability: []ProbabilityBreakpoint{{MaxRatio: 0, Value: 5}}}},
		{"duplicate max ratio", Policy{Probability: []ProbabilityBreakpoint{{MaxRatio: 1, Value: 5}, {MaxRatio: 1, Value: 6}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.policy.Validate(finding.CategoryBruteForce), riskerr.ErrInvalidConfiguration)
		})
	}
}

func TestScorer_BruteForceScenario(t *testing.T) {
	s, err := NewScorer(DefaultScale, DefaultDetectability,
		WithPolicy(finding.CategoryBruteForce, DefaultPolicy(finding.CategoryBruteForce, 5*time.Minute)))
	require.NoError(t, err)

	got := s.Score(burst(finding.CategoryBruteForce, 6, 2*time.Minute))
	assert.Equal(t, Score{Severity: 7, Probability: 8, Detectability: 5, RPN: 280}, got)
}

func TestScorer_ShorterBurstScoresHigherProbability(t *testing.T) {
	s, err := NewScorer(DefaultScale, DefaultDetectability,
		WithPolicy(finding.CategoryPortScan, DefaultPolicy(finding.CategoryPortScan, 5*time.Minute)))
	require.NoError(t, err)

	fast := s.Score(burst(finding.CategoryPortScan, 12, 30*time.Second))
	slow := s.Score(burst(finding.CategoryPortScan, 12, 4*time.Minute))
	assert.Equal(t, fast.Severity, slow.Severity)
	assert.Greater(t, fast.Probability, slow.Probability)
	assert.Greater(t, fast.RPN, slow.RPN)
}

func TestScorer_DetectabilityOverride(t *testing.T) {
	p := DefaultPolicy(finding.CategorySuspiciousSource, time.Hour)
	p.Detectability = intPtr(9)

	s, err := NewScorer(DefaultScale, 4, WithPolicy(finding.CategorySuspiciousSource, p))
	require.NoError(t, err)

	assert.Equal(t, 9, s.Score(burst(finding.CategorySuspiciousSource, 1, 0)).Detectability)
	assert.Equal(t, 4, s.Score(burst(finding.CategoryBruteForce, 1, 0)).Detectability)
}

func TestScorer_ClampsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p := Policy{
		Severity:           []SeverityBreakpoint{{MinEvidence: 1, Value: 15}},
		SeverityDefault:    15,
		ProbabilityDefault: -2,
		Detectability:      intPtr(0),
	}
	s, err := NewScorer(DefaultScale, DefaultDetectability,
		WithLogger(logger), WithPolicy(finding.CategoryBruteForce, p))
	require.NoError(t, err)

	got := s.Score(burst(finding.CategoryBruteForce, 3, time.Minute))
	assert.Equal(t, Score{Severity: 10, Probability: 1, Detectability: 1, RPN: 10}, got)

	out := buf.String()
	assert.Contains(t, out, `"axis":"severity"`)
	assert.Contains(t, out, `"axis":"probability"`)
	assert.Contains(t, out, `"axis":"detectability"`)
	assert.Contains(t, out, `"clamped":10`)
}

func TestNewScorer_InvalidConfiguration(t *testing.T) {
	_, err := NewScorer(Scale{Min: 3, Max: 2}, 2)
	assert.ErrorIs(t, err, riskerr.ErrInvalidConfiguration)

	_, err = NewScorer(DefaultScale, 11)
	assert.ErrorIs(t, err, riskerr.ErrInvalidConfiguration)

	_, err = NewScorer(DefaultScale, 5, WithPolicy(finding.CategoryBruteForce, Policy{Baseline: -1}))
	assert.ErrorIs(t, err, riskerr.ErrInvalidConfiguration)
}
