package register

import (
	"log/slog"
	"sort"

	"github.com/zero-day-ai/riskvault/finding"
	"github.com/zero-day-ai/riskvault/risk"
	"github.com/zero-day-ai/riskvault/score"
)

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// Builder turns raw findings into a Register.
type Builder struct {
	scorer     *score.Scorer
	classifier *risk.Classifier
	logger     *slog.Logger
}

// NewBuilder creates a builder from a scorer and a classifier.
func NewBuilder(scorer *score.Scorer, classifier *risk.Classifier, opts ...Option) *Builder {
	b := &Builder{
		scorer:     scorer,
		classifier: classifier,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Build merges overlapping findings, scores and classifies each one, and
// returns the ordered register.
func (b *Builder) Build(findings []finding.Finding, stats Stats) *Register {
	merged := finding.MergeOverlapping(findings)
	if len(merged) < len(findings) {
		b.logger.Debug("merged overlapping findings", "input", len(findings), "output", len(merged))
	}

	entries := make([]Entry, 0, len(merged))
	for _, f := range merged {
		s := b.scorer.Score(f)
		level, action := b.classifier.Classify(s.RPN)
		entries = append(entries, Entry{
			Finding:     f,
			Score:       s,
			Level:       level,
			Description: Describe(f),
			Action:      action,
			Mitigation:  f.Category.Mitigation(),
		})
	}

	Sort(entries)
	return &Register{
		Entries:    entries,
		Stats:      stats,
		Thresholds: b.classifier.Thresholds(),
	}
}

// Sort orders entries by RPN descending, window start ascending, category,
// actor and window end, then renumbers their ranks.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score.RPN != b.Score.RPN {
			return a.Score.RPN > b.Score.RPN
		}
		if !a.Finding.WindowStart.Equal(b.Finding.WindowStart) {
			return a.Finding.WindowStart.Before(b.Finding.WindowStart)
		}
		if a.Finding.Category != b.Finding.Category {
			return a.Finding.Category < b.Finding.Category
		}
		if as, bs := a.Finding.Actor.String(), b.Finding.Actor.String(); as != bs {
			return as < bs
		}
		return a.Finding.WindowEnd.Before(b.Finding.WindowEnd)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}
