// Package event defines the normalized log record and the immutable event
// table consumed by the pattern detectors.
//
// A Table is built once from an ordered sequence of LogRecord values. Records
// missing a timestamp or an event type are rejected as malformed and reported
// through Table.Rejected; they never abort construction. After construction
// the table only answers read queries (by event type, by source, by time
// range, grouped by source) and every query returns a copy.
//
// Raw event type strings are normalized through an AliasTable, so
// "login_failed", "failed_auth" and "FAILED_LOGIN" all become
// EventFailedLogin.
package event
