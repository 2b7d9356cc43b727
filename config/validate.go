package config

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/finding"
	"github.com/zero-day-ai/riskvault/risk"
	"github.com/zero-day-ai/riskvault/riskerr"
)

const validateOp = "config.Validate"

// Validate checks the whole bundle. Every failure wraps
// riskerr.ErrInvalidConfiguration; window failures also match
// riskerr.ErrInvalidWindow.
func (c Config) Validate() error {
	if err := c.Scale.Validate(); err != nil {
		return err
	}
	if !c.Scale.Contains(c.DetectabilityDefault) {
		return riskerr.InvalidConfiguration(validateOp,
			fmt.Sprintf("detectability_default %d outside scale [%d, %d]", c.DetectabilityDefault, c.Scale.Min, c.Scale.Max))
	}
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}

	if _, err := c.BruteForce.Detection(); err != nil {
		return wrapField("brute_force", err)
	}
	if _, err := c.PortScan.Detection(); err != nil {
		return wrapField("port_scan", err)
	}
	if _, err := c.Watchlist.Gap(); err != nil {
		return wrapField("watchlist", err)
	}
	for _, ip := range c.Watchlist.IPs {
		if _, err := netip.ParseAddr(ip); err != nil {
			return riskerr.Errorf(validateOp, riskerr.KindInvalidConfiguration, "watchlist address %q is not an IP", ip).WithCause(err)
		}
	}

	for raw, canonical := range c.Aliases {
		if strings.TrimSpace(raw) == "" {
			return riskerr.InvalidConfiguration(validateOp, "alias must not be empty")
		}
		if !event.EventType(canonical).IsValid() {
			return riskerr.Errorf(validateOp, riskerr.KindInvalidConfiguration, "alias %q targets unknown event type %q", raw, canonical)
		}
	}

	for name := range c.Policies {
		category, err := finding.ParseCategory(name)
		if err != nil {
			return riskerr.Errorf(validateOp, riskerr.KindInvalidConfiguration, "policy for unknown category %q", name)
		}
		p, err := c.Policy(category)
		if err != nil {
			return err
		}
		if err := p.Validate(category); err != nil {
			return err
		}
		if p.Detectability != nil && !c.Scale.Contains(*p.Detectability) {
			return riskerr.InvalidConfiguration(validateOp,
				fmt.Sprintf("%s detectability %d outside scale [%d, %d]", category, *p.Detectability, c.Scale.Min, c.Scale.Max))
		}
	}

	for level := range c.Actions {
		if _, err := risk.ParseLevel(level); err != nil {
			return riskerr.Errorf(validateOp, riskerr.KindInvalidConfiguration, "action for unknown level %q", level)
		}
	}

	if c.Exclude != "" {
		if _, err := event.NewExpressionFilter(c.Exclude); err != nil {
			return riskerr.InvalidConfiguration(validateOp, "invalid exclude expression").WithCause(err)
		}
	}
	return nil
}

func wrapField(field string, err error) error {
	return riskerr.New(validateOp, riskerr.KindOf(err), field).WithCause(err)
}
