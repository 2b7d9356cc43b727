package detect

import (
	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/finding"
)

// BruteForceName is the detector name recorded on brute-force findings.
const BruteForceName = "brute_force"

// BruteForce flags bursts of failed logins from one actor.
type BruteForce struct {
	window      Window
	perUsername bool
	types       []event.EventType
}

// BruteForceOption configures a BruteForce detector.
type BruteForceOption func(*BruteForce)

// WithPerUsername keys actors by source IP plus username instead of source IP
// alone.
func WithPerUsername(enabled bool) BruteForceOption {
	return func(b *BruteForce) {
		b.perUsername = enabled
	}
}

// WithFailureTypes replaces the event types counted as authentication
// failures. The default is event.EventFailedLogin.
func WithFailureTypes(types ...event.EventType) BruteForceOption {
	return func(b *BruteForce) {
		b.types = types
	}
}

// NewBruteForce creates a brute-force detector. It fails with
// riskerr.ErrInvalidWindow if w is invalid.
func NewBruteForce(w Window, opts ...BruteForceOption) (*BruteForce, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	b := &BruteForce{
		window: w,
		types:  []event.EventType{event.EventFailedLogin},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Name implements Detector.
func (b *BruteForce) Name() string { return BruteForceName }

// Category implements Detector.
func (b *BruteForce) Category() finding.Category { return finding.CategoryBruteForce }

// Window returns the detection window.
func (b *BruteForce) Window() Window { return b.window }

// Detect implements Detector.
func (b *BruteForce) Detect(t *event.Table) ([]finding.Finding, error) {
	key := finding.SourceActor
	if b.perUsername {
		key = finding.UserActor
	}
	actors, groups := groupBy(t.ByType(b.types...), key)

	var out []finding.Finding
	for _, actor := range actors {
		recs := groups[actor]
		for _, s := range countSpans(recs, b.window) {
			burst := recs[s.lo : s.hi+1]
			out = append(out, finding.New(
				finding.CategoryBruteForce, actor, BruteForceName,
				burst[0].Timestamp, burst[len(burst)-1].Timestamp,
				seqs(burst), nil,
			))
		}
	}
	finding.Sort(out)
	return out, nil
}
