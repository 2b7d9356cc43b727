// Package report renders a risk register for people and downstream tools.
//
// A report is a Document: the ranked entries together with the summary
// rollups and the criticality matrix, stamped with the run that produced
// it. JSON and YAML carry the whole document; CSV carries one row per
// entry, in rank order, for spreadsheets.
package report
