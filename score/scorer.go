package score

import (
	"fmt"
	"log/slog"

	"github.com/zero-day-ai/riskvault/finding"
	"github.com/zero-day-ai/riskvault/riskerr"
)

// DefaultDetectability is the baseline Detectability when none is configured.
const DefaultDetectability = 5

// Option configures a Scorer.
type Option func(*Scorer)

// WithLogger sets the logger used to report clamped values.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) {
		s.logger = logger
	}
}

// WithPolicy sets the policy for one category, replacing any previous one.
func WithPolicy(category finding.Category, p Policy) Option {
	return func(s *Scorer) {
		s.policies[category] = p
	}
}

// Scorer assigns scores to findings. It is immutable and safe for
// concurrent use.
type Scorer struct {
	scale         Scale
	detectability int
	policies      map[finding.Category]Policy
	logger        *slog.Logger
}

// NewScorer creates a scorer over scale with the given default
// detectability. Categories without a WithPolicy option fall back to
// DefaultPolicy with a zero baseline.
func NewScorer(scale Scale, detectability int, opts ...Option) (*Scorer, error) {
	if err := scale.Validate(); err != nil {
		return nil, err
	}
	if !scale.Contains(detectability) {
		return nil, riskerr.InvalidConfiguration("score.NewScorer",
			fmt.Sprintf("detectability_default %d outside scale [%d, %d]", detectability, scale.Min, scale.Max))
	}

	s := &Scorer{
		scale:         scale,
		detectability: detectability,
		policies:      make(map[finding.Category]Policy),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	for category, p := range s.policies {
		if err := p.Validate(category); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Scale returns the scorer's scale.
func (s *Scorer) Scale() Scale { return s.scale }

// Policy returns the effective policy for category.
func (s *Scorer) Policy(category finding.Category) Policy {
	if p, ok := s.policies[category]; ok {
		return p
	}
	return DefaultPolicy(category, 0)
}

// Score computes S, P, D and RPN for f.
func (s *Scorer) Score(f finding.Finding) Score {
	p := s.Policy(f.Category)

	d := s.detectability
	if p.Detectability != nil {
		d = *p.Detectability
	}

	return New(
		s.clamp(f, "severity", p.SeverityFor(f.EvidenceCount)),
		s.clamp(f, "probability", p.ProbabilityFor(f.Span())),
		s.clamp(f, "detectability", d),
	)
}

func (s *Scorer) clamp(f finding.Finding, axis string, raw int) int {
	v, changed := s.scale.Clamp(raw)
	if changed {
		s.logger.Debug("score clamped to scale",
			"category", f.Category,
			"finding_id", f.ID,
			"axis", axis,
			"raw", raw,
			"clamped", v,
		)
	}
	return v
}
