// Package register assembles scored, classified findings into the ordered
// risk register.
//
// The Builder merges overlapping findings of the same category and actor
// before scoring, so a burst is never counted twice. Entries are ordered by
// RPN descending, then by window start, category and actor. Summaries and
// the criticality matrix are derived from the entries each time they are
// requested.
package register
