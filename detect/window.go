package detect

import (
	"fmt"
	"time"

	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/riskerr"
)

// Window is a detection window: Threshold or more qualifying events from
// one actor whose timestamps span at most Duration.
type Window struct {
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Threshold int           `json:"threshold_count" yaml:"threshold_count"`
}

// Validate fails with riskerr.ErrInvalidWindow for a non-positive duration
// or threshold.
func (w Window) Validate() error {
	if w.Duration <= 0 {
		return riskerr.Errorf("detect.Window", riskerr.KindInvalidWindow, "duration must be positive, got %s", w.Duration).
			WithDetails(map[string]any{"duration": w.Duration.String()})
	}
	if w.Threshold < 1 {
		return riskerr.Errorf("detect.Window", riskerr.KindInvalidWindow, "threshold_count must be at least 1, got %d", w.Threshold).
			WithDetails(map[string]any{"threshold_count": w.Threshold})
	}
	return nil
}

// String renders the window as "threshold/duration".
func (w Window) String() string {
	return fmt.Sprintf("%d/%s", w.Threshold, w.Duration)
}

// span is an inclusive index range into a timestamp-ordered record slice.
type span struct {
	lo, hi int
}

// extend appends s to spans, folding it into the last span when their time
// ranges touch.
func extend(spans []span, s span, recs []event.LogRecord) []span {
	if n := len(spans); n > 0 {
		last := &spans[n-1]
		if !recs[s.lo].Timestamp.After(recs[last.hi].Timestamp) {
			if s.hi > last.hi {
				last.hi = s.hi
			}
			return spans
		}
	}
	return append(spans, s)
}

// countSpans returns the merged index ranges in which at least w.Threshold
// records fall inside a w.Duration window. recs must be timestamp-ordered.
func countSpans(recs []event.LogRecord, w Window) []span {
	var spans []span
	lo := 0
	for hi := range recs {
		for recs[hi].Timestamp.Sub(recs[lo].Timestamp) > w.Duration {
			lo++
		}
		if hi-lo+1 >= w.Threshold {
			spans = extend(spans, span{lo, hi}, recs)
		}
	}
	return spans
}

// distinctPortSpans is countSpans measured in distinct destination ports.
// Every record in recs must carry a destination port.
func distinctPortSpans(recs []event.LogRecord, w Window) []span {
	var spans []span
	seen := make(map[int]int)
	lo := 0
	for hi := range recs {
		seen[*recs[hi].DestinationPort]++
		for recs[hi].Timestamp.Sub(recs[lo].Timestamp) > w.Duration {
			p := *recs[lo].DestinationPort
			if seen[p]--; seen[p] == 0 {
				delete(seen, p)
			}
			lo++
		}
		if len(seen) >= w.Threshold {
			spans = extend(spans, span{lo, hi}, recs)
		}
	}
	return spans
}

// gapSpans splits recs into clusters whose consecutive records are at most
// gap apart.
func gapSpans(recs []event.LogRecord, gap time.Duration) []span {
	if len(recs) == 0 {
		return nil
	}
	spans := []span{{0, 0}}
	for i := 1; i < len(recs); i++ {
		last := &spans[len(spans)-1]
		if recs[i].Timestamp.Sub(recs[i-1].Timestamp) <= gap {
			last.hi = i
			continue
		}
		spans = append(spans, span{i, i})
	}
	return spans
}

func seqs(recs []event.LogRecord) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.Seq
	}
	return out
}

func ports(recs []event.LogRecord) []int {
	out := make([]int, 0, len(recs))
	for _, r := range recs {
		if r.DestinationPort != nil {
			out = append(out, *r.DestinationPort)
		}
	}
	return out
}
