// Package detect scans an event.Table for behaviour patterns and reports
// them as raw findings.
//
// Every detector is a pure function of the table and its own parameters. It
// holds no mutable state, so detectors may run in any order or in parallel
// and always produce the same findings. Qualifying sliding windows that
// overlap for the same actor are merged into one finding spanning their
// union.
//
// Available detectors:
//
//   - BruteForce: repeated failed logins from one source (optionally per username)
//   - PortScan: connection attempts across many distinct destination ports
//   - Watchlist: any activity from a configured list of suspicious addresses
//
// Use Run to execute a set of detectors and collect their merged output.
package detect
