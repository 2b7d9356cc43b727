package score

import (
	"fmt"

	"github.com/zero-day-ai/riskvault/riskerr"
)

// DefaultScale is the conventional 1-10 ordinal scale.
var DefaultScale = Scale{Min: 1, Max: 10}

// Scale bounds every scoring axis.
type Scale struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Validate fails with riskerr.ErrInvalidConfiguration unless 1 <= Min <= Max.
func (s Scale) Validate() error {
	if s.Min < 1 || s.Min > s.Max {
		return riskerr.InvalidConfiguration("score.Scale", fmt.Sprintf("scale bounds must satisfy 1 <= min <= max, got [%d, %d]", s.Min, s.Max)).
			WithDetails(map[string]any{"min": s.Min, "max": s.Max})
	}
	return nil
}

// Contains reports whether v lies within the scale.
func (s Scale) Contains(v int) bool {
	return v >= s.Min && v <= s.Max
}

// Clamp bounds v to the scale and reports whether it had to change.
func (s Scale) Clamp(v int) (int, bool) {
	switch {
	case v < s.Min:
		return s.Min, true
	case v > s.Max:
		return s.Max, true
	default:
		return v, false
	}
}

// MaxRPN is the largest RPN the scale allows.
func (s Scale) MaxRPN() int {
	return s.Max * s.Max * s.Max
}

// Score is the scored state of a finding.
type Score struct {
	Severity      int `json:"severity" yaml:"severity"`
	Probability   int `json:"probability" yaml:"probability"`
	Detectability int `json:"detectability" yaml:"detectability"`
	RPN           int `json:"rpn" yaml:"rpn"`
}

// New builds a Score and computes its RPN.
func New(severity, probability, detectability int) Score {
	return Score{
		Severity:      severity,
		Probability:   probability,
		Detectability: detectability,
		RPN:           severity * probability * detectability,
	}
}

// String renders the score as "S×P×D=RPN".
func (s Score) String() string {
	return fmt.Sprintf("%d×%d×%d=%d", s.Severity, s.Probability, s.Detectability, s.RPN)
}
