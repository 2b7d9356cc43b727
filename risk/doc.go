// Package risk classifies Risk Priority Numbers into actionable tiers.
//
// Classification uses two inclusive-exclusive boundaries:
//
//	RPN >  Critical          => LevelCritical
//	Low <= RPN <= Critical   => LevelModerate
//	RPN <  Low               => LevelLow
//
// Each level maps to one recommended-action string that callers may
// override.
package risk
