package detect

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/finding"
)

// Detector scans a table for one behaviour category.
//
// Implementations must be safe to call concurrently on the same table and
// must return no findings (not an error) when nothing qualifies.
type Detector interface {
	// Name identifies the detector in findings and logs.
	Name() string

	// Category is the category of every finding the detector emits.
	Category() finding.Category

	// Detect returns the detector's findings for t, ordered by window start.
	Detect(t *event.Table) ([]finding.Finding, error)
}

// Result is one detector's output from Run.
type Result struct {
	Detector string
	Findings []finding.Finding
	Err      error
}

// Run executes detectors against t and returns their findings with
// overlapping findings merged, plus one Result per detector in input order.
// With parallel set, each detector runs in its own goroutine. The first
// detector error is returned after every detector has finished.
func Run(t *event.Table, detectors []Detector, parallel bool) ([]finding.Finding, []Result, error) {
	results := make([]Result, len(detectors))

	runOne := func(i int, d Detector) {
		fs, err := d.Detect(t)
		results[i] = Result{Detector: d.Name(), Findings: fs, Err: err}
	}

	if parallel {
		var wg sync.WaitGroup
		for i, d := range detectors {
			wg.Add(1)
			go func(i int, d Detector) {
				defer wg.Done()
				runOne(i, d)
			}(i, d)
		}
		wg.Wait()
	} else {
		for i, d := range detectors {
			runOne(i, d)
		}
	}

	var all []finding.Finding
	for _, r := range results {
		if r.Err != nil {
			return nil, results, fmt.Errorf("detector %s: %w", r.Detector, r.Err)
		}
		all = append(all, r.Findings...)
	}
	return finding.MergeOverlapping(all), results, nil
}

// groupBy partitions timestamp-ordered records by actor. Each group keeps
// timestamp order. Actors are returned in lexical order of their string form.
func groupBy(recs []event.LogRecord, key func(event.LogRecord) finding.ActorKey) ([]finding.ActorKey, map[finding.ActorKey][]event.LogRecord) {
	groups := make(map[finding.ActorKey][]event.LogRecord)
	var actors []finding.ActorKey
	for _, r := range recs {
		k := key(r)
		if _, ok := groups[k]; !ok {
			actors = append(actors, k)
		}
		groups[k] = append(groups[k], r)
	}
	sort.Slice(actors, func(i, j int) bool {
		return actors[i].String() < actors[j].String()
	})
	return actors, groups
}
