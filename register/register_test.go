package register

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/finding"
	"github.com/zero-day-ai/riskvault/risk"
	"github.com/zero-day-ai/riskvault/score"
)

var base = time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return base.Add(time.Duration(seconds) * time.Second)
}

func ids(from, to int) []int {
	var out []int
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	var opts []score.Option
	for _, c := range finding.AllCategories() {
		opts = append(opts, score.WithPolicy(c, score.DefaultPolicy(c, 5*time.Minute)))
	}
	s, err := score.NewScorer(score.DefaultScale, score.DefaultDetectability, opts...)
	require.NoError(t, err)
	c, err := risk.NewClassifier(risk.DefaultThresholds(), nil)
	require.NoError(t, err)
	return NewBuilder(s, c)
}

func bruteForce(ip string, start, end int, recs []int) finding.Finding {
	return finding.New(finding.CategoryBruteForce, finding.ActorKey{SourceIP: ip}, "brute_force",
		at(start), at(end), recs, nil)
}

func portScan(ip string, start, end int, recs, ports []int) finding.Finding {
	return finding.New(finding.CategoryPortScan, finding.ActorKey{SourceIP: ip}, "port_scan",
		at(start), at(end), recs, ports)
}

func TestBuild_BruteForceScenario(t *testing.T) {
	reg := newBuilder(t).Build([]finding.Finding{bruteForce("10.0.0.10", 0, 120, ids(0, 5))}, Stats{})
	require.Equal(t, 1, reg.Len())

	e := reg.Entries[0]
	assert.Equal(t, 1, e.Rank)
	assert.Equal(t, score.Score{Severity: 7, Probability: 8, Detectability: 5, RPN: 280}, e.Score)
	assert.Equal(t, risk.LevelCritical, e.Level)
	assert.Equal(t, risk.DefaultActions[risk.LevelCritical], e.Action)
	assert.Equal(t, finding.CategoryBruteForce.Mitigation(), e.Mitigation)
	assert.Equal(t, "Brute Force: 6 failed attempts from 10.0.0.10 between 2025-11-01T09:00:00Z and 2025-11-01T09:02:00Z", e.Description)
}

func TestBuild_MergesOverlappingBeforeScoring(t *testing.T) {
	// Two overlapping bursts of five: merged evidence is ten, not two entries.
	reg := newBuilder(t).Build([]finding.Finding{
		bruteForce("10.0.0.10", 0, 60, ids(0, 4)),
		bruteForce("10.0.0.10", 50, 110, ids(5, 9)),
	}, Stats{})

	require.Equal(t, 1, reg.Len())
	f := reg.Entries[0].Finding
	assert.Equal(t, 10, f.EvidenceCount)
	assert.Equal(t, at(0), f.WindowStart)
	assert.Equal(t, at(110), f.WindowEnd)
	assert.Equal(t, 7, reg.Entries[0].Score.Severity)
}

func TestBuild_NoDuplicateTriples(t *testing.T) {
	f := bruteForce("10.0.0.10", 0, 60, ids(0, 4))
	reg := newBuilder(t).Build([]finding.Finding{f, f, f}, Stats{})
	assert.Equal(t, 1, reg.Len())
}

func TestBuild_Ordering(t *testing.T) {
	reg := newBuilder(t).Build([]finding.Finding{
		// Same RPN as the next one, later start.
		bruteForce("10.0.0.12", 500, 560, ids(20, 24)),
		bruteForce("10.0.0.11", 0, 60, ids(10, 14)),
		// Slow burst: lower probability, lower RPN.
		bruteForce("10.0.0.13", 0, 290, ids(30, 34)),
		portScan("10.0.0.20", 0, 60, ids(40, 51), ids(1000, 1011)),
	}, Stats{})

	require.Equal(t, 4, reg.Len())
	var order []string
	for i, e := range reg.Entries {
		assert.Equal(t, i+1, e.Rank)
		order = append(order, e.Finding.Actor.SourceIP)
	}
	// RPN 280 (start 0, brute_force < port_scan), 280 (start 0, port_scan), 280 (start 500), 175.
	assert.Equal(t, []string{"10.0.0.11", "10.0.0.20", "10.0.0.12", "10.0.0.13"}, order)
	assert.Equal(t, 280, reg.Entries[1].Score.RPN)
	assert.Equal(t, risk.LevelModerate, reg.Entries[3].Level)
}

func TestBuild_Deterministic(t *testing.T) {
	in := []finding.Finding{
		portScan("10.0.0.20", 0, 60, ids(40, 51), ids(1000, 1011)),
		bruteForce("10.0.0.11", 0, 60, ids(10, 14)),
		bruteForce("10.0.0.12", 500, 560, ids(20, 24)),
	}
	reversed := []finding.Finding{in[2], in[1], in[0]}

	a, err := json.Marshal(newBuilder(t).Build(in, Stats{Input: 3}))
	require.NoError(t, err)
	b, err := json.Marshal(newBuilder(t).Build(reversed, Stats{Input: 3}))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestBuild_Empty(t *testing.T) {
	reg := newBuilder(t).Build(nil, Stats{Input: 2, Rejected: 2})
	assert.True(t, reg.Empty())

	s := reg.Summary()
	assert.Zero(t, s.Total)
	assert.Zero(t, s.MeanRPN)
	assert.Equal(t, 0, s.ByLevel[risk.LevelCritical])
	assert.Equal(t, 2, s.Stats.Rejected)
	assert.Empty(t, reg.Matrix())
}

func TestSummary(t *testing.T) {
	reg := newBuilder(t).Build([]finding.Finding{
		bruteForce("10.0.0.11", 0, 60, ids(10, 14)),
		bruteForce("10.0.0.13", 0, 290, ids(30, 34)),
		portScan("10.0.0.11", 0, 60, ids(40, 51), ids(1000, 1011)),
	}, Stats{Analysed: 30, UniqueSources: 2})

	s := reg.Summary()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.ByLevel[risk.LevelCritical])
	assert.Equal(t, 1, s.ByLevel[risk.LevelModerate])
	assert.Equal(t, 0, s.ByLevel[risk.LevelLow])
	assert.Equal(t, 2, s.ByCategory[finding.CategoryBruteForce])
	assert.Equal(t, 1, s.ByCategory[finding.CategoryPortScan])
	assert.Equal(t, 0, s.ByCategory[finding.CategorySuspiciousSource])
	assert.Equal(t, 280, s.MaxRPN)
	assert.InDelta(t, (280.0+280.0+175.0)/3, s.MeanRPN, 0.001)
	assert.Equal(t, 2, s.Actors)
	assert.Equal(t, 30, s.Stats.Analysed)
}

func TestMatrix(t *testing.T) {
	reg := newBuilder(t).Build([]finding.Finding{
		bruteForce("10.0.0.11", 0, 60, ids(10, 14)),
		bruteForce("10.0.0.12", 500, 560, ids(20, 24)),
		bruteForce("10.0.0.13", 0, 290, ids(30, 34)),
	}, Stats{})

	cells := reg.Matrix()
	require.Len(t, cells, 2)
	assert.Equal(t, MatrixCell{Severity: 7, Probability: 8, Count: 2, MeanRPN: 280}, cells[0])
	assert.Equal(t, MatrixCell{Severity: 7, Probability: 5, Count: 1, MeanRPN: 175}, cells[1])
}

func TestRegister_Filter(t *testing.T) {
	reg := newBuilder(t).Build([]finding.Finding{
		bruteForce("10.0.0.11", 0, 60, ids(10, 14)),
		bruteForce("10.0.0.13", 0, 290, ids(30, 34)),
		portScan("10.0.0.20", 1000, 1060, ids(40, 51), ids(1000, 1011)),
	}, Stats{Input: 10})

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no criteria", Filter{}, []string{"10.0.0.11", "10.0.0.20", "10.0.0.13"}},
		{"critical only", Filter{Levels: []risk.Level{risk.LevelCritical}}, []string{"10.0.0.11", "10.0.0.20"}},
		{"port scans", Filter{Categories: []finding.Category{finding.CategoryPortScan}}, []string{"10.0.0.20"}},
		{"by source", Filter{SourceIP: "10.0.0.13"}, []string{"10.0.0.13"}},
		{"min rpn", Filter{MinRPN: 200}, []string{"10.0.0.11", "10.0.0.20"}},
		{"time range", Filter{From: at(500), To: at(2000)}, []string{"10.0.0.20"}},
		{"limit", Filter{Limit: 1}, []string{"10.0.0.11"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reg.Filter(tt.filter)
			require.NoError(t, err)

			var sources []string
			for i, e := range got.Entries {
				assert.Equal(t, i+1, e.Rank)
				sources = append(sources, e.Finding.Actor.SourceIP)
			}
			assert.Equal(t, tt.want, sources)
			assert.Equal(t, 10, got.Stats.Input)
		})
	}
}

func TestFilter_Validate(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
	}{
		{"bad level", Filter{Levels: []risk.Level{"urgent"}}},
		{"bad category", Filter{Categories: []finding.Category{"dos"}}},
		{"negative rpn", Filter{MinRPN: -1}},
		{"negative limit", Filter{Limit: -1}},
		{"inverted range", Filter{From: at(10), To: at(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.filter.Validate())
		})
	}
}

func TestStatsOf(t *testing.T) {
	table := event.NewTable([]event.LogRecord{
		{Timestamp: at(0), EventType: event.EventInfo, SourceIP: "10.0.0.1"},
		{Timestamp: at(1), EventType: event.EventInfo},
		{EventType: event.EventInfo},
	})
	assert.Equal(t, Stats{Input: 3, Analysed: 2, Rejected: 1, UniqueSources: 2}, StatsOf(table))
	assert.Equal(t, Stats{}, StatsOf(nil))
}

func TestTop(t *testing.T) {
	reg := newBuilder(t).Build([]finding.Finding{
		bruteForce("10.0.0.11", 0, 60, ids(10, 14)),
		bruteForce("10.0.0.13", 0, 290, ids(30, 34)),
	}, Stats{})
	assert.Len(t, reg.Top(1), 1)
	assert.Len(t, reg.Top(10), 2)
	assert.Len(t, reg.Top(-1), 2)
}
