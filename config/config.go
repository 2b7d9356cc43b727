// Package config loads and validates the analysis configuration bundle.
//
// A Config is a plain value: load it once, validate it, and pass it into the
// pipeline. Nothing in the pipeline reads ambient settings. Documents are
// YAML (JSON is accepted as a YAML subset); fields left out keep their
// defaults. Durations are Go duration strings such as "5m".
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/riskvault/detect"
	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/finding"
	"github.com/zero-day-ai/riskvault/risk"
	"github.com/zero-day-ai/riskvault/riskerr"
	"github.com/zero-day-ai/riskvault/score"
)

// Defaults.
const (
	DefaultWindow           = "5m"
	DefaultBruteForceCount  = 5
	DefaultPortScanCount    = 10
	DefaultWatchlistWindow  = "1h"
	defaultConfigFileName   = "riskvault.yaml"
	alternateConfigFileName = "riskvault.yml"
)

// Config is the analysis configuration bundle.
type Config struct {
	// Scoring
	DetectabilityDefault int         `yaml:"detectability_default" json:"detectability_default"`
	CriticalRPNThreshold int         `yaml:"critical_rpn_threshold" json:"critical_rpn_threshold"`
	LowRPNThreshold      int         `yaml:"low_rpn_threshold" json:"low_rpn_threshold"`
	Scale                score.Scale `yaml:"scale" json:"scale"`

	// Detectors
	BruteForce BruteForceConfig `yaml:"brute_force" json:"brute_force"`
	PortScan   WindowConfig     `yaml:"port_scan" json:"port_scan"`
	Watchlist  WatchlistConfig  `yaml:"watchlist" json:"watchlist"`

	// Exclude is an optional CEL expression; matching records are left out.
	Exclude string `yaml:"exclude,omitempty" json:"exclude,omitempty"`

	// Aliases maps extra raw event type strings to canonical event types.
	Aliases map[string]string `yaml:"aliases,omitempty" json:"aliases,omitempty"`

	// Policies overrides scoring policy per category.
	Policies map[string]PolicyConfig `yaml:"policies,omitempty" json:"policies,omitempty"`

	// Actions overrides the recommended action per risk level.
	Actions map[string]string `yaml:"actions,omitempty" json:"actions,omitempty"`

	// Runtime settings for the worker, server and etcd source.
	Worker *WorkerConfig `yaml:"worker,omitempty" json:"worker,omitempty"`
	Server *ServerConfig `yaml:"server,omitempty" json:"server,omitempty"`
	Etcd   *EtcdConfig   `yaml:"etcd,omitempty" json:"etcd,omitempty"`
}

// WindowConfig configures a sliding-window detector.
type WindowConfig struct {
	// Window is the window duration.
	// Format: Go duration string (e.g., "5m")
	Window string `yaml:"window" json:"window"`

	// ThresholdCount is the minimum evidence within Window.
	ThresholdCount int `yaml:"threshold_count" json:"threshold_count"`
}

// Detection parses the window into a detect.Window. Fails with
// riskerr.ErrInvalidWindow if the duration is missing or malformed.
func (w WindowConfig) Detection() (detect.Window, error) {
	d, err := time.ParseDuration(w.Window)
	if err != nil {
		return detect.Window{}, riskerr.Errorf("config.WindowConfig", riskerr.KindInvalidWindow, "invalid window %q", w.Window).WithCause(err)
	}
	dw := detect.Window{Duration: d, Threshold: w.ThresholdCount}
	if err := dw.Validate(); err != nil {
		return detect.Window{}, err
	}
	return dw, nil
}

// BruteForceConfig configures the brute-force detector.
type BruteForceConfig struct {
	WindowConfig `yaml:",inline"`

	// PerUsername keys actors by source IP and username.
	PerUsername bool `yaml:"per_username,omitempty" json:"per_username,omitempty"`
}

// WatchlistConfig configures the suspicious-source detector.
type WatchlistConfig struct {
	// IPs are the watched source addresses. Empty disables the detector.
	IPs []string `yaml:"ips,omitempty" json:"ips,omitempty"`

	// Window is the largest gap between records of one cluster.
	// Format: Go duration string (e.g., "1h")
	Window string `yaml:"window" json:"window"`
}

// Gap parses the cluster gap.
func (w WatchlistConfig) Gap() (time.Duration, error) {
	d, err := time.ParseDuration(w.Window)
	if err != nil {
		return 0, riskerr.Errorf("config.WatchlistConfig", riskerr.KindInvalidWindow, "invalid window %q", w.Window).WithCause(err)
	}
	if d <= 0 {
		return 0, riskerr.Errorf("config.WatchlistConfig", riskerr.KindInvalidWindow, "window must be positive, got %s", d)
	}
	return d, nil
}

// PolicyConfig overrides parts of a category's scoring policy. Unset fields
// keep the built-in policy.
type PolicyConfig struct {
	Severity           []score.SeverityBreakpoint    `yaml:"severity,omitempty" json:"severity,omitempty"`
	SeverityDefault    *int                          `yaml:"severity_default,omitempty" json:"severity_default,omitempty"`
	Probability        []score.ProbabilityBreakpoint `yaml:"probability,omitempty" json:"probability,omitempty"`
	ProbabilityDefault *int                          `yaml:"probability_default,omitempty" json:"probability_default,omitempty"`

	// ProbabilityBaseline is the span bursts are compared against.
	// Format: Go duration string. Default: the category's detector window.
	ProbabilityBaseline string `yaml:"probability_baseline,omitempty" json:"probability_baseline,omitempty"`

	// Detectability overrides detectability_default for the category.
	Detectability *int `yaml:"detectability,omitempty" json:"detectability,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DetectabilityDefault: score.DefaultDetectability,
		CriticalRPNThreshold: risk.DefaultCriticalThreshold,
		LowRPNThreshold:      risk.DefaultLowThreshold,
		Scale:                score.DefaultScale,
		BruteForce: BruteForceConfig{
			WindowConfig: WindowConfig{Window: DefaultWindow, ThresholdCount: DefaultBruteForceCount},
		},
		PortScan:  WindowConfig{Window: DefaultWindow, ThresholdCount: DefaultPortScanCount},
		Watchlist: WatchlistConfig{Window: DefaultWatchlistWindow},
	}
}

// Parse decodes a YAML or JSON document over the defaults and validates it.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, riskerr.InvalidConfiguration("config.Parse", "failed to parse config document").WithCause(err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a config file from the given path.
// If the path is a directory, it looks for riskvault.yaml or riskvault.yml in that directory.
func Load(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		configPath = ""
		for _, name := range []string{defaultConfigFileName, alternateConfigFileName} {
			candidate := filepath.Join(path, name)
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
				break
			}
		}
		if configPath == "" {
			return Config{}, fmt.Errorf("no %s or %s found in %s", defaultConfigFileName, alternateConfigFileName, path)
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Marshal renders the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Thresholds returns the classification thresholds.
func (c Config) Thresholds() risk.Thresholds {
	return risk.Thresholds{Low: c.LowRPNThreshold, Critical: c.CriticalRPNThreshold}
}

// AliasTable returns the default aliases extended with Aliases.
func (c Config) AliasTable() event.AliasTable {
	extra := make(map[string]event.EventType, len(c.Aliases))
	for raw, canonical := range c.Aliases {
		extra[raw] = event.EventType(canonical)
	}
	return event.DefaultAliases().With(extra)
}

// ActionMap returns the configured action overrides keyed by level.
func (c Config) ActionMap() map[risk.Level]string {
	out := make(map[risk.Level]string, len(c.Actions))
	for level, action := range c.Actions {
		out[risk.Level(level)] = action
	}
	return out
}

// baseline returns the default probability baseline for category.
func (c Config) baseline(category finding.Category) time.Duration {
	var raw string
	switch category {
	case finding.CategoryBruteForce:
		raw = c.BruteForce.Window
	case finding.CategoryPortScan:
		raw = c.PortScan.Window
	case finding.CategorySuspiciousSource:
		raw = c.Watchlist.Window
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Policy returns the effective scoring policy for category.
func (c Config) Policy(category finding.Category) (score.Policy, error) {
	p := score.DefaultPolicy(category, c.baseline(category))

	pc, ok := c.Policies[string(category)]
	if !ok {
		return p, nil
	}
	if pc.Severity != nil {
		p.Severity = append([]score.SeverityBreakpoint(nil), pc.Severity...)
	}
	if pc.SeverityDefault != nil {
		p.SeverityDefault = *pc.SeverityDefault
	}
	if pc.Probability != nil {
		p.Probability = append([]score.ProbabilityBreakpoint(nil), pc.Probability...)
	}
	if pc.ProbabilityDefault != nil {
		p.ProbabilityDefault = *pc.ProbabilityDefault
	}
	if pc.ProbabilityBaseline != "" {
		d, err := time.ParseDuration(pc.ProbabilityBaseline)
		if err != nil {
			return score.Policy{}, riskerr.InvalidConfiguration("config.Policy",
				fmt.Sprintf("%s probability_baseline %q is not a duration", category, pc.ProbabilityBaseline)).WithCause(err)
		}
		p.Baseline = d
	}
	if pc.Detectability != nil {
		d := *pc.Detectability
		p.Detectability = &d
	}
	return p, nil
}
