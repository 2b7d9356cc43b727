package detect

import (
	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/finding"
)

// PortScanName is the detector name recorded on port-scan findings.
const PortScanName = "port_scan"

// PortScan flags sources that touch many distinct destination ports within
// a window. Connection attempts without a destination port carry no port
// evidence and are ignored.
type PortScan struct {
	window Window
}

// NewPortScan creates a port-scan detector. Threshold counts distinct ports.
// It fails with riskerr.ErrInvalidWindow if w is invalid.
func NewPortScan(w Window) (*PortScan, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &PortScan{window: w}, nil
}

// Name implements Detector.
func (p *PortScan) Name() string { return PortScanName }

// Category implements Detector.
func (p *PortScan) Category() finding.Category { return finding.CategoryPortScan }

// Window returns the detection window.
func (p *PortScan) Window() Window { return p.window }

// Detect implements Detector.
func (p *PortScan) Detect(t *event.Table) ([]finding.Finding, error) {
	var attempts []event.LogRecord
	for _, r := range t.ByType(event.EventConnectionAttempt) {
		if r.HasDestinationPort() {
			attempts = append(attempts, r)
		}
	}
	actors, groups := groupBy(attempts, finding.SourceActor)

	var out []finding.Finding
	for _, actor := range actors {
		recs := groups[actor]
		for _, s := range distinctPortSpans(recs, p.window) {
			scan := recs[s.lo : s.hi+1]
			out = append(out, finding.New(
				finding.CategoryPortScan, actor, PortScanName,
				scan[0].Timestamp, scan[len(scan)-1].Timestamp,
				seqs(scan), ports(scan),
			))
		}
	}
	finding.Sort(out)
	return out, nil
}
