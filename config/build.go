package config

import (
	"log/slog"

	"github.com/zero-day-ai/riskvault/detect"
	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/finding"
	"github.com/zero-day-ai/riskvault/risk"
	"github.com/zero-day-ai/riskvault/score"
)

// Detectors builds the configured detectors. The watchlist detector is
// included only when addresses are configured.
func (c Config) Detectors() ([]detect.Detector, error) {
	bfWindow, err := c.BruteForce.Detection()
	if err != nil {
		return nil, err
	}
	bf, err := detect.NewBruteForce(bfWindow, detect.WithPerUsername(c.BruteForce.PerUsername))
	if err != nil {
		return nil, err
	}

	psWindow, err := c.PortScan.Detection()
	if err != nil {
		return nil, err
	}
	ps, err := detect.NewPortScan(psWindow)
	if err != nil {
		return nil, err
	}

	detectors := []detect.Detector{bf, ps}
	if len(c.Watchlist.IPs) > 0 {
		gap, err := c.Watchlist.Gap()
		if err != nil {
			return nil, err
		}
		wl, err := detect.NewWatchlist(c.Watchlist.IPs, gap)
		if err != nil {
			return nil, err
		}
		detectors = append(detectors, wl)
	}
	return detectors, nil
}

// Scorer builds a scorer with the effective policy of every category.
func (c Config) Scorer(logger *slog.Logger) (*score.Scorer, error) {
	opts := []score.Option{score.WithLogger(logger)}
	for _, category := range finding.AllCategories() {
		p, err := c.Policy(category)
		if err != nil {
			return nil, err
		}
		opts = append(opts, score.WithPolicy(category, p))
	}
	return score.NewScorer(c.Scale, c.DetectabilityDefault, opts...)
}

// Classifier builds the classifier from thresholds and action overrides.
func (c Config) Classifier() (*risk.Classifier, error) {
	return risk.NewClassifier(c.Thresholds(), c.ActionMap())
}

// Filter compiles the exclusion expression, or returns nil when none is set.
func (c Config) Filter() (event.Filter, error) {
	if c.Exclude == "" {
		return nil, nil
	}
	f, err := event.NewExpressionFilter(c.Exclude)
	if err != nil {
		return nil, err
	}
	return f, nil
}
