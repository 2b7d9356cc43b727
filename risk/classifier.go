package risk

import (
	"fmt"

	"github.com/zero-day-ai/riskvault/riskerr"
)

// Default thresholds.
const (
	DefaultLowThreshold      = 100
	DefaultCriticalThreshold = 200
)

// DefaultActions are the built-in recommended actions per level.
var DefaultActions = map[Level]string{
	LevelCritical: "Respond immediately: contain the source, lock affected accounts and open an incident",
	LevelModerate: "Investigate promptly and tighten the relevant controls",
	LevelLow:      "Monitor and review during routine triage",
}

// Thresholds are the RPN boundaries between levels.
type Thresholds struct {
	Low      int `json:"low_rpn_threshold" yaml:"low_rpn_threshold"`
	Critical int `json:"critical_rpn_threshold" yaml:"critical_rpn_threshold"`
}

// DefaultThresholds returns Low=100, Critical=200.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: DefaultLowThreshold, Critical: DefaultCriticalThreshold}
}

// Validate fails with riskerr.ErrInvalidConfiguration unless
// 0 <= Low <= Critical.
func (t Thresholds) Validate() error {
	if t.Low < 0 {
		return riskerr.InvalidConfiguration("risk.Thresholds", fmt.Sprintf("low_rpn_threshold must not be negative, got %d", t.Low))
	}
	if t.Low > t.Critical {
		return riskerr.InvalidConfiguration("risk.Thresholds",
			fmt.Sprintf("low_rpn_threshold %d exceeds critical_rpn_threshold %d", t.Low, t.Critical)).
			WithDetails(map[string]any{"low_rpn_threshold": t.Low, "critical_rpn_threshold": t.Critical})
	}
	return nil
}

// Level classifies rpn.
func (t Thresholds) Level(rpn int) Level {
	switch {
	case rpn > t.Critical:
		return LevelCritical
	case rpn >= t.Low:
		return LevelModerate
	default:
		return LevelLow
	}
}

// Classifier maps RPNs to levels and recommended actions.
type Classifier struct {
	thresholds Thresholds
	actions    map[Level]string
}

// NewClassifier creates a classifier. Entries in actions override
// DefaultActions for their level; empty strings are ignored.
func NewClassifier(t Thresholds, actions map[Level]string) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	merged := make(map[Level]string, len(DefaultActions))
	for level, action := range DefaultActions {
		merged[level] = action
	}
	for level, action := range actions {
		if !level.IsValid() {
			return nil, riskerr.InvalidConfiguration("risk.NewClassifier", fmt.Sprintf("action for unknown level %q", level))
		}
		if action != "" {
			merged[level] = action
		}
	}

	return &Classifier{thresholds: t, actions: merged}, nil
}

// Thresholds returns the classifier's thresholds.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify returns the level for rpn and its recommended action.
func (c *Classifier) Classify(rpn int) (Level, string) {
	level := c.thresholds.Level(rpn)
	return level, c.actions[level]
}

// Action returns the recommended action for level.
func (c *Classifier) Action(level Level) string {
	return c.actions[level]
}
