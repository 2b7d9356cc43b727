package register

import (
	"fmt"
	"slices"
	"time"

	"github.com/zero-day-ai/riskvault/finding"
	"github.com/zero-day-ai/riskvault/risk"
)

// Filter represents criteria for selecting register entries.
type Filter struct {
	// Levels filters by one or more risk levels.
	Levels []risk.Level `json:"levels,omitempty"`

	// Categories filters by one or more categories.
	Categories []finding.Category `json:"categories,omitempty"`

	// SourceIP filters by actor source address.
	SourceIP string `json:"source_ip,omitempty"`

	// Username filters by actor username.
	Username string `json:"username,omitempty"`

	// MinRPN filters entries with RPN >= this value.
	MinRPN int `json:"min_rpn,omitempty"`

	// From keeps entries whose window ends at or after this time.
	From time.Time `json:"from,omitempty"`

	// To keeps entries whose window starts at or before this time.
	To time.Time `json:"to,omitempty"`

	// Limit limits the number of entries returned.
	Limit int `json:"limit,omitempty"`
}

// Matches returns true if the entry matches all filter criteria.
func (f *Filter) Matches(e Entry) bool {
	if len(f.Levels) > 0 && !slices.Contains(f.Levels, e.Level) {
		return false
	}

	if len(f.Categories) > 0 && !slices.Contains(f.Categories, e.Finding.Category) {
		return false
	}

	if f.SourceIP != "" && e.Finding.Actor.SourceIP != f.SourceIP {
		return false
	}

	if f.Username != "" && e.Finding.Actor.Username != f.Username {
		return false
	}

	if f.MinRPN > 0 && e.Score.RPN < f.MinRPN {
		return false
	}

	// Time range overlaps the finding window
	if !f.From.IsZero() && e.Finding.WindowEnd.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Finding.WindowStart.After(f.To) {
		return false
	}

	return true
}

// Validate checks if the filter configuration is valid.
func (f *Filter) Validate() error {
	for _, l := range f.Levels {
		if !l.IsValid() {
			return fmt.Errorf("invalid level in filter: %s", l)
		}
	}

	for _, c := range f.Categories {
		if !c.IsValid() {
			return fmt.Errorf("invalid category in filter: %s", c)
		}
	}

	if f.MinRPN < 0 {
		return fmt.Errorf("min_rpn cannot be negative")
	}

	if f.Limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}

	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return fmt.Errorf("from must be before to")
	}

	return nil
}

// Filter returns a register holding the matching entries in their original
// order, re-ranked from 1. Stats and thresholds are carried over.
func (r *Register) Filter(f Filter) (*Register, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	out := &Register{Stats: r.Stats, Thresholds: r.Thresholds}
	for _, e := range r.Entries {
		if f.Limit > 0 && len(out.Entries) >= f.Limit {
			break
		}
		if f.Matches(e) {
			e.Rank = len(out.Entries) + 1
			out.Entries = append(out.Entries, e)
		}
	}
	return out, nil
}
