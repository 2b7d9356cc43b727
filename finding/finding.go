package finding

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// idNamespace scopes the name-based finding IDs.
var idNamespace = uuid.MustParse("6f1c3a52-2b8e-4d0f-9a61-7c4e2d9b1f08")

// Finding is one detected risk occurrence.
type Finding struct {
	// ID is derived from category, actor and window.
	ID string `json:"id" yaml:"id"`

	// Category classifies the behaviour.
	Category Category `json:"category" yaml:"category"`

	// Actor is who the behaviour is attributed to.
	Actor ActorKey `json:"actor" yaml:"actor"`

	// Detector names the detector that produced the finding.
	Detector string `json:"detector" yaml:"detector"`

	// WindowStart and WindowEnd are the first and last contributing timestamps.
	WindowStart time.Time `json:"window_start" yaml:"window_start"`
	WindowEnd   time.Time `json:"window_end" yaml:"window_end"`

	// EvidenceCount is the number of contributing records, or of distinct
	// destination ports for categories that count ports.
	EvidenceCount int `json:"evidence_count" yaml:"evidence_count"`

	// RecordIDs are the sequence numbers of contributing records, ascending.
	RecordIDs []int `json:"record_ids" yaml:"record_ids"`

	// Ports are the distinct destination ports touched, ascending. Only set
	// for categories that count ports.
	Ports []int `json:"ports,omitempty" yaml:"ports,omitempty"`
}

// New builds a finding and derives its ID and evidence count.
// recordIDs and ports are copied, deduplicated and sorted.
func New(category Category, actor ActorKey, detector string, start, end time.Time, recordIDs, ports []int) Finding {
	f := Finding{
		Category:    category,
		Actor:       actor,
		Detector:    detector,
		WindowStart: start,
		WindowEnd:   end,
		RecordIDs:   uniqueSorted(recordIDs),
	}
	if category.CountsDistinctPorts() {
		f.Ports = uniqueSorted(ports)
		f.EvidenceCount = len(f.Ports)
	} else {
		f.EvidenceCount = len(f.RecordIDs)
	}
	f.ID = uuid.NewSHA1(idNamespace, []byte(f.Key())).String()
	return f
}

// Key returns the (category, actor, window) identity of the finding.
func (f Finding) Key() string {
	return strings.Join([]string{
		string(f.Category),
		f.Actor.String(),
		f.WindowStart.UTC().Format(time.RFC3339Nano),
		f.WindowEnd.UTC().Format(time.RFC3339Nano),
	}, "|")
}

// Span returns the duration between the first and last contributing record.
func (f Finding) Span() time.Duration {
	return f.WindowEnd.Sub(f.WindowStart)
}

// Overlaps reports whether f and o describe the same category and actor with
// windows that share at least one instant.
func (f Finding) Overlaps(o Finding) bool {
	if f.Category != o.Category || f.Actor != o.Actor {
		return false
	}
	return !f.WindowStart.After(o.WindowEnd) && !o.WindowStart.After(f.WindowEnd)
}

// Validate checks that the finding is internally consistent.
func (f Finding) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("finding ID is required")
	}
	if !f.Category.IsValid() {
		return fmt.Errorf("invalid category: %s", f.Category)
	}
	if f.Actor.SourceIP == "" {
		return fmt.Errorf("actor source is required")
	}
	if f.WindowStart.IsZero() || f.WindowEnd.IsZero() {
		return fmt.Errorf("window bounds are required")
	}
	if f.WindowEnd.Before(f.WindowStart) {
		return fmt.Errorf("window end %s precedes start %s", f.WindowEnd, f.WindowStart)
	}
	if f.EvidenceCount < 1 {
		return fmt.Errorf("evidence count must be positive, got %d", f.EvidenceCount)
	}
	return nil
}

// Merge folds two findings of the same category and actor into one spanning
// the union of both windows with the union of their evidence.
func Merge(a, b Finding) (Finding, error) {
	if a.Category != b.Category || a.Actor != b.Actor {
		return Finding{}, fmt.Errorf("cannot merge %s/%s with %s/%s",
			a.Category, a.Actor, b.Category, b.Actor)
	}

	start := a.WindowStart
	if b.WindowStart.Before(start) {
		start = b.WindowStart
	}
	end := a.WindowEnd
	if b.WindowEnd.After(end) {
		end = b.WindowEnd
	}

	detector := a.Detector
	if b.Detector != a.Detector {
		names := []string{a.Detector, b.Detector}
		sort.Strings(names)
		detector = strings.Join(names, "+")
	}

	return New(a.Category, a.Actor, detector, start, end,
		append(append([]int{}, a.RecordIDs...), b.RecordIDs...),
		append(append([]int{}, a.Ports...), b.Ports...),
	), nil
}

// MergeOverlapping merges every group of overlapping findings (same
// category, same actor, intersecting windows) and returns the result ordered
// by window start, category and actor.
func MergeOverlapping(findings []Finding) []Finding {
	if len(findings) == 0 {
		return nil
	}

	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	Sort(sorted)

	type groupKey struct {
		category Category
		actor    ActorKey
	}
	open := make(map[groupKey]int)
	var out []Finding

	for _, f := range sorted {
		key := groupKey{f.Category, f.Actor}
		if i, ok := open[key]; ok && out[i].Overlaps(f) {
			// Same category and actor, so Merge cannot fail.
			merged, _ := Merge(out[i], f)
			out[i] = merged
			continue
		}
		open[key] = len(out)
		out = append(out, f)
	}

	Sort(out)
	return out
}

// Sort orders findings by window start, then category, then actor, then end.
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if !a.WindowStart.Equal(b.WindowStart) {
			return a.WindowStart.Before(b.WindowStart)
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Actor.String() != b.Actor.String() {
			return a.Actor.String() < b.Actor.String()
		}
		return a.WindowEnd.Before(b.WindowEnd)
	})
}

func uniqueSorted(in []int) []int {
	if len(in) == 0 {
		return nil
	}
	out := make([]int, len(in))
	copy(out, in)
	sort.Ints(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
