// Package ingest reads security logs into event.LogRecords.
//
// Four input formats are supported: CSV with a header row, newline-delimited
// JSON, a JSON array of objects, and free-form text matched line by line with
// regular expressions. Column and key names are matched case-insensitively
// against a set of common spellings (src_ip, dst_port, user, ...), so logs
// exported by different tools can be read without a mapping step.
//
// Ingestion never drops a line silently. A line that cannot be decoded, or a
// value that cannot be parsed, produces a record with the field left empty;
// the Event Table later rejects it as malformed and counts it. Use WithStrict
// to fail the read on the first undecodable line instead.
//
//	r, err := ingest.NewReader(ingest.FormatCSV, ingest.WithAliases(event.DefaultAliases()))
//	if err != nil {
//		return err
//	}
//	records, err := r.Read(ctx, f)
package ingest
