package risk

import "fmt"

// Level represents the risk tier of a register entry.
type Level string

const (
	// LevelCritical indicates a risk requiring immediate response.
	// Examples: an active brute-force burst against an exposed service
	LevelCritical Level = "critical"

	// LevelModerate indicates a risk to investigate promptly.
	// Examples: a slow port sweep, a burst from a watchlisted address
	LevelModerate Level = "moderate"

	// LevelLow indicates a risk to keep under observation.
	// Examples: a handful of failures spread across a long period
	LevelLow Level = "low"
)

// levelRanks orders levels for sorting; higher is worse.
var levelRanks = map[Level]int{
	LevelCritical: 3,
	LevelModerate: 2,
	LevelLow:      1,
}

// IsValid returns true if the level is valid.
func (l Level) IsValid() bool {
	_, ok := levelRanks[l]
	return ok
}

// Rank returns the level's ordinal rank, 0 for invalid levels.
func (l Level) Rank() int {
	return levelRanks[l]
}

// String returns the string representation of the level.
func (l Level) String() string {
	return string(l)
}

// DisplayName returns a human-readable display name for the level.
func (l Level) DisplayName() string {
	switch l {
	case LevelCritical:
		return "Critical"
	case LevelModerate:
		return "Moderate"
	case LevelLow:
		return "Low"
	default:
		return string(l)
	}
}

// ParseLevel parses a string into a Level value.
// Returns an error if the string is not a valid level.
func ParseLevel(s string) (Level, error) {
	level := Level(s)
	if !level.IsValid() {
		return "", fmt.Errorf("invalid risk level: %s", s)
	}
	return level, nil
}

// CompareLevel compares two levels.
// Returns:
//   - negative if l1 < l2
//   - zero if l1 == l2
//   - positive if l1 > l2
func CompareLevel(l1, l2 Level) int {
	return l1.Rank() - l2.Rank()
}

// AllLevels returns all valid levels in order from critical to low.
func AllLevels() []Level {
	return []Level{
		LevelCritical,
		LevelModerate,
		LevelLow,
	}
}
