package finding

import "fmt"

// Category represents the behaviour class of a finding.
type Category string

const (
	// CategoryBruteForce indicates repeated authentication failures from one actor.
	// Examples: password spraying against SSH, credential stuffing on a login form
	CategoryBruteForce Category = "brute_force"

	// CategoryPortScan indicates connection attempts spread across many destination ports.
	// Examples: SYN sweeps, service discovery before exploitation
	CategoryPortScan Category = "port_scan"

	// CategorySuspiciousSource indicates activity from a watchlisted address.
	// Examples: known scanner infrastructure, addresses from threat intel feeds
	CategorySuspiciousSource Category = "suspicious_source"
)

// IsValid returns true if the category is valid.
func (c Category) IsValid() bool {
	switch c {
	case CategoryBruteForce, CategoryPortScan, CategorySuspiciousSource:
		return true
	default:
		return false
	}
}

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// DisplayName returns a human-readable display name for the category.
func (c Category) DisplayName() string {
	switch c {
	case CategoryBruteForce:
		return "Brute Force"
	case CategoryPortScan:
		return "Port Scan"
	case CategorySuspiciousSource:
		return "Suspicious Source"
	default:
		return string(c)
	}
}

// Description returns a brief description of the category.
func (c Category) Description() string {
	switch c {
	case CategoryBruteForce:
		return "Repeated authentication failures from a single actor"
	case CategoryPortScan:
		return "Connection attempts across many destination ports from a single source"
	case CategorySuspiciousSource:
		return "Activity originating from a watchlisted address"
	default:
		return ""
	}
}

// CountsDistinctPorts reports whether evidence is measured in distinct
// destination ports rather than in contributing records.
func (c Category) CountsDistinctPorts() bool {
	return c == CategoryPortScan
}

// EvidenceUnit returns the unit evidence counts are expressed in.
func (c Category) EvidenceUnit() string {
	switch c {
	case CategoryBruteForce:
		return "failed attempts"
	case CategoryPortScan:
		return "distinct ports"
	default:
		return "events"
	}
}

// Mitigation returns the category-specific remediation hint.
func (c Category) Mitigation() string {
	switch c {
	case CategoryBruteForce:
		return "Lock account / Investigate IP / Increase MFA"
	case CategoryPortScan:
		return "Block IP / Firewall rule / Threat intel"
	case CategorySuspiciousSource:
		return "Block IP / Review threat intel / Audit sessions"
	default:
		return "Monitor / Investigate"
	}
}

// ParseCategory parses a string into a Category value.
// Returns an error if the string is not a valid category.
func ParseCategory(s string) (Category, error) {
	category := Category(s)
	if !category.IsValid() {
		return "", fmt.Errorf("invalid category: %s", s)
	}
	return category, nil
}

// AllCategories returns all valid categories.
func AllCategories() []Category {
	return []Category{
		CategoryBruteForce,
		CategoryPortScan,
		CategorySuspiciousSource,
	}
}
