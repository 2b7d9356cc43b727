package score

import (
	"fmt"
	"sort"
	"time"

	"github.com/zero-day-ai/riskvault/finding"
	"github.com/zero-day-ai/riskvault/riskerr"
)

// SeverityBreakpoint assigns Value to findings with at least MinEvidence.
type SeverityBreakpoint struct {
	MinEvidence int `json:"min_evidence" yaml:"min_evidence"`
	Value       int `json:"value" yaml:"value"`
}

// ProbabilityBreakpoint assigns Value to findings whose span, as a fraction
// of the baseline, is at most MaxRatio.
type ProbabilityBreakpoint struct {
	MaxRatio float64 `json:"max_ratio" yaml:"max_ratio"`
	Value    int     `json:"value" yaml:"value"`
}

// Policy is the scoring table for one category.
type Policy struct {
	// Severity breakpoints; the highest MinEvidence not above the evidence wins.
	Severity        []SeverityBreakpoint
	SeverityDefault int

	// Probability breakpoints; the lowest MaxRatio not below the span ratio wins.
	Probability        []ProbabilityBreakpoint
	ProbabilityDefault int

	// Baseline is the span a burst is compared against. Zero means every
	// span yields ProbabilityDefault.
	Baseline time.Duration

	// Detectability overrides the scorer default when set.
	Detectability *int
}

// Validate checks that breakpoints are well formed. Values outside the scale
// are accepted and clamped at scoring time. Fails with
// riskerr.ErrInvalidConfiguration.
func (p Policy) Validate(category finding.Category) error {
	fail := func(format string, args ...any) error {
		return riskerr.InvalidConfiguration("score.Policy", fmt.Sprintf(format, args...)).
			WithDetails(map[string]any{"category": string(category)})
	}

	if p.Baseline < 0 {
		return fail("%s probability_baseline must not be negative", category)
	}

	seenEvidence := make(map[int]bool)
	for _, bp := range p.Severity {
		if bp.MinEvidence < 1 {
			return fail("%s severity breakpoint min_evidence must be at least 1, got %d", category, bp.MinEvidence)
		}
		if seenEvidence[bp.MinEvidence] {
			return fail("%s duplicate severity breakpoint min_evidence %d", category, bp.MinEvidence)
		}
		seenEvidence[bp.MinEvidence] = true
	}

	seenRatio := make(map[float64]bool)
	for _, bp := range p.Probability {
		if bp.MaxRatio <= 0 {
			return fail("%s probability breakpoint max_ratio must be positive, got %g", category, bp.MaxRatio)
		}
		if seenRatio[bp.MaxRatio] {
			return fail("%s duplicate probability breakpoint max_ratio %g", category, bp.MaxRatio)
		}
		seenRatio[bp.MaxRatio] = true
	}
	return nil
}

// SeverityFor returns the raw (unclamped) severity for an evidence count.
func (p Policy) SeverityFor(evidence int) int {
	bps := make([]SeverityBreakpoint, len(p.Severity))
	copy(bps, p.Severity)
	sort.Slice(bps, func(i, j int) bool { return bps[i].MinEvidence > bps[j].MinEvidence })

	for _, bp := range bps {
		if evidence >= bp.MinEvidence {
			return bp.Value
		}
	}
	return p.SeverityDefault
}

// ProbabilityFor returns the raw (unclamped) probability for a finding span.
func (p Policy) ProbabilityFor(span time.Duration) int {
	if p.Baseline <= 0 {
		return p.ProbabilityDefault
	}
	ratio := float64(span) / float64(p.Baseline)

	bps := make([]ProbabilityBreakpoint, len(p.Probability))
	copy(bps, p.Probability)
	sort.Slice(bps, func(i, j int) bool { return bps[i].MaxRatio < bps[j].MaxRatio })

	for _, bp := range bps {
		if ratio <= bp.MaxRatio {
			return bp.Value
		}
	}
	return p.ProbabilityDefault
}

// Default probability buckets shared by every category.
func defaultProbability() []ProbabilityBreakpoint {
	return []ProbabilityBreakpoint{
		{MaxRatio: 0.5, Value: 8},
		{MaxRatio: 1.0, Value: 5},
	}
}

// DefaultPolicy returns the built-in policy for category with the given
// probability baseline.
func DefaultPolicy(category finding.Category, baseline time.Duration) Policy {
	p := Policy{
		Probability:        defaultProbability(),
		ProbabilityDefault: 3,
		Baseline:           baseline,
	}
	switch category {
	case finding.CategoryBruteForce:
		p.Severity = []SeverityBreakpoint{{MinEvidence: 20, Value: 9}, {MinEvidence: 5, Value: 7}}
		p.SeverityDefault = 5
	case finding.CategoryPortScan:
		p.Severity = []SeverityBreakpoint{{MinEvidence: 100, Value: 9}, {MinEvidence: 25, Value: 8}}
		p.SeverityDefault = 7
	case finding.CategorySuspiciousSource:
		p.SeverityDefault = 8
	default:
		p.SeverityDefault = 5
	}
	return p
}
