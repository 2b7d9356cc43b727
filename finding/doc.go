// Package finding provides the types for risk occurrences detected in an
// event table.
//
// A Finding is created by exactly one detector and never mutated afterwards.
// It records the category of behaviour, the actor it is attributed to, the
// window in which the behaviour was observed, the evidence count and the
// sequence numbers of the contributing log records. Later stages decorate a
// Finding with a score and a risk level without changing it.
//
// # Categories
//
// Findings are categorized by the behaviour that produced them:
//   - Brute force: repeated authentication failures from one actor
//   - Port scan: connection attempts across many destination ports
//   - Suspicious source: activity from a watchlisted address
//
// # Merging
//
// Two findings of the same category and actor whose windows overlap describe
// the same incident. Merge and MergeOverlapping fold them into one finding
// spanning the union of both windows, with the union of their evidence:
//
//	merged := finding.MergeOverlapping(findings)
//
// Finding IDs are name-based UUIDs derived from category, actor and window,
// so identical input always yields identical IDs.
package finding
