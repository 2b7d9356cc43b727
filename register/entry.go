package register

import (
	"fmt"
	"time"

	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/finding"
	"github.com/zero-day-ai/riskvault/risk"
	"github.com/zero-day-ai/riskvault/score"
)

// Entry is one row of the register: a classified finding.
type Entry struct {
	// Rank is the 1-based position in the register.
	Rank int `json:"rank" yaml:"rank"`

	Finding finding.Finding `json:"finding" yaml:"finding"`
	Score   score.Score     `json:"score" yaml:"score"`
	Level   risk.Level      `json:"level" yaml:"level"`

	// Description summarizes the finding in one sentence.
	Description string `json:"description" yaml:"description"`

	// Action is the recommended action for Level.
	Action string `json:"action" yaml:"action"`

	// Mitigation is the category-specific remediation hint.
	Mitigation string `json:"mitigation" yaml:"mitigation"`
}

// Describe renders the one-line description of f.
func Describe(f finding.Finding) string {
	return fmt.Sprintf("%s: %d %s from %s between %s and %s",
		f.Category.DisplayName(),
		f.EvidenceCount,
		f.Category.EvidenceUnit(),
		f.Actor,
		f.WindowStart.UTC().Format(time.RFC3339),
		f.WindowEnd.UTC().Format(time.RFC3339),
	)
}

// Stats describes the event table a register was built from.
type Stats struct {
	// Input is the number of records offered for analysis.
	Input int `json:"input" yaml:"input"`

	// Analysed is the number of usable records.
	Analysed int `json:"analysed" yaml:"analysed"`

	// Rejected is the number of malformed records left out.
	Rejected int `json:"rejected" yaml:"rejected"`

	// Excluded is the number of well-formed records removed by the exclusion filter.
	Excluded int `json:"excluded" yaml:"excluded"`

	// UniqueSources is the number of distinct source keys among usable records.
	UniqueSources int `json:"unique_sources" yaml:"unique_sources"`
}

// StatsOf collects Stats from t. A nil table yields zero Stats.
func StatsOf(t *event.Table) Stats {
	if t == nil {
		return Stats{}
	}
	return Stats{
		Input:         t.InputSize(),
		Analysed:      t.Len(),
		Rejected:      len(t.Rejected()),
		Excluded:      t.Excluded(),
		UniqueSources: len(t.Sources()),
	}
}
