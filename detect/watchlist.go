package detect

import (
	"net/netip"
	"sort"
	"time"

	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/finding"
	"github.com/zero-day-ai/riskvault/riskerr"
)

// WatchlistName is the detector name recorded on suspicious-source findings.
const WatchlistName = "watchlist"

// Watchlist flags any activity from a configured set of addresses. Records
// from a listed source are clustered: consecutive records at most Gap apart
// belong to the same finding.
type Watchlist struct {
	ips map[string]bool
	gap time.Duration
}

// NewWatchlist creates a watchlist detector. Addresses must parse as IPs.
// An empty list yields a detector that never fires.
func NewWatchlist(ips []string, gap time.Duration) (*Watchlist, error) {
	if gap <= 0 {
		return nil, riskerr.Errorf("detect.NewWatchlist", riskerr.KindInvalidWindow, "gap must be positive, got %s", gap)
	}
	w := &Watchlist{ips: make(map[string]bool, len(ips)), gap: gap}
	for _, ip := range ips {
		addr, err := netip.ParseAddr(ip)
		if err != nil {
			return nil, riskerr.InvalidConfiguration("detect.NewWatchlist", "invalid watchlist address").
				WithCause(err).
				WithDetails(map[string]any{"ip": ip})
		}
		w.ips[canonicalIP(addr)] = true
	}
	return w, nil
}

// canonicalIP is the comparison form of an address: IPv4-mapped IPv6
// addresses collapse to IPv4 and the zone is dropped.
func canonicalIP(addr netip.Addr) string {
	return addr.Unmap().WithZone("").String()
}

// Name implements Detector.
func (w *Watchlist) Name() string { return WatchlistName }

// Category implements Detector.
func (w *Watchlist) Category() finding.Category { return finding.CategorySuspiciousSource }

// IPs returns the watched addresses in lexical order.
func (w *Watchlist) IPs() []string {
	out := make([]string, 0, len(w.ips))
	for ip := range w.ips {
		out = append(out, ip)
	}
	sort.Strings(out)
	return out
}

// Detect implements Detector. Sources match by address, not spelling:
// "2001:DB8::1", "2001:db8:0::1" and "2001:db8::1" are the same source.
func (w *Watchlist) Detect(t *event.Table) ([]finding.Finding, error) {
	if len(w.ips) == 0 {
		return nil, nil
	}

	matched := make(map[string][]event.LogRecord)
	for _, key := range t.Sources() {
		addr, err := netip.ParseAddr(key)
		if err != nil {
			continue
		}
		ip := canonicalIP(addr)
		if w.ips[ip] {
			matched[ip] = append(matched[ip], t.BySource(key)...)
		}
	}

	var out []finding.Finding
	for _, ip := range w.IPs() {
		recs := matched[ip]
		if len(recs) == 0 {
			continue
		}
		// Seq follows table order, which is timestamp order.
		sort.Slice(recs, func(i, j int) bool { return recs[i].Seq < recs[j].Seq })
		actor := finding.ActorKey{SourceIP: ip}
		for _, s := range gapSpans(recs, w.gap) {
			cluster := recs[s.lo : s.hi+1]
			out = append(out, finding.New(
				finding.CategorySuspiciousSource, actor, WatchlistName,
				cluster[0].Timestamp, cluster[len(cluster)-1].Timestamp,
				seqs(cluster), nil,
			))
		}
	}
	finding.Sort(out)
	return out, nil
}
