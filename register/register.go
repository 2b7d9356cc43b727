package register

import (
	"sort"

	"github.com/zero-day-ai/riskvault/finding"
	"github.com/zero-day-ai/riskvault/risk"
)

// Register is the ordered risk register.
type Register struct {
	Entries    []Entry         `json:"entries" yaml:"entries"`
	Stats      Stats           `json:"stats" yaml:"stats"`
	Thresholds risk.Thresholds `json:"thresholds" yaml:"thresholds"`
}

// Len returns the number of entries.
func (r *Register) Len() int {
	return len(r.Entries)
}

// Empty reports whether the register has no entries.
func (r *Register) Empty() bool {
	return len(r.Entries) == 0
}

// Findings returns the classified findings in register order.
func (r *Register) Findings() []finding.Finding {
	out := make([]finding.Finding, len(r.Entries))
	for i, e := range r.Entries {
		out[i] = e.Finding
	}
	return out
}

// Summary holds rollups derived from a register.
type Summary struct {
	Total      int                      `json:"total" yaml:"total"`
	ByLevel    map[risk.Level]int       `json:"by_level" yaml:"by_level"`
	ByCategory map[finding.Category]int `json:"by_category" yaml:"by_category"`
	MaxRPN     int                      `json:"max_rpn" yaml:"max_rpn"`
	MeanRPN    float64                  `json:"mean_rpn" yaml:"mean_rpn"`

	// Actors is the number of distinct actors with at least one entry.
	Actors int `json:"actors" yaml:"actors"`

	Stats Stats `json:"stats" yaml:"stats"`
}

// Summary computes rollups over the current entries. Every level and
// category appears in the maps, with zero counts where nothing matched.
func (r *Register) Summary() Summary {
	s := Summary{
		Total:      len(r.Entries),
		ByLevel:    make(map[risk.Level]int),
		ByCategory: make(map[finding.Category]int),
		Stats:      r.Stats,
	}
	for _, l := range risk.AllLevels() {
		s.ByLevel[l] = 0
	}
	for _, c := range finding.AllCategories() {
		s.ByCategory[c] = 0
	}

	actors := make(map[finding.ActorKey]bool)
	sum := 0
	for _, e := range r.Entries {
		s.ByLevel[e.Level]++
		s.ByCategory[e.Finding.Category]++
		actors[e.Finding.Actor] = true
		sum += e.Score.RPN
		if e.Score.RPN > s.MaxRPN {
			s.MaxRPN = e.Score.RPN
		}
	}
	s.Actors = len(actors)
	if s.Total > 0 {
		s.MeanRPN = float64(sum) / float64(s.Total)
	}
	return s
}

// Top returns the first n entries, or all of them if n exceeds the length.
func (r *Register) Top(n int) []Entry {
	if n < 0 || n > len(r.Entries) {
		n = len(r.Entries)
	}
	out := make([]Entry, n)
	copy(out, r.Entries[:n])
	return out
}

// MatrixCell aggregates the entries sharing one Severity/Probability pair.
type MatrixCell struct {
	Severity    int     `json:"severity" yaml:"severity"`
	Probability int     `json:"probability" yaml:"probability"`
	Count       int     `json:"count" yaml:"count"`
	MeanRPN     float64 `json:"mean_rpn" yaml:"mean_rpn"`
}

// Matrix computes the criticality matrix: one cell per Severity/Probability
// pair present in the register, ordered by severity then probability, both
// descending.
func (r *Register) Matrix() []MatrixCell {
	type key struct{ s, p int }
	sums := make(map[key]int)
	counts := make(map[key]int)
	for _, e := range r.Entries {
		k := key{e.Score.Severity, e.Score.Probability}
		sums[k] += e.Score.RPN
		counts[k]++
	}

	cells := make([]MatrixCell, 0, len(counts))
	for k, n := range counts {
		cells = append(cells, MatrixCell{
			Severity:    k.s,
			Probability: k.p,
			Count:       n,
			MeanRPN:     float64(sums[k]) / float64(n),
		})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Severity != cells[j].Severity {
			return cells[i].Severity > cells[j].Severity
		}
		return cells[i].Probability > cells[j].Probability
	})
	return cells
}
