package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/riskerr"
)

func (r *Reader) readCSV(ctx context.Context, src io.Reader) ([]event.LogRecord, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, riskerr.Malformed("ingest.Read", "unreadable CSV header").WithCause(err)
	}

	columns := make([]string, len(header))
	known := 0
	for i, name := range header {
		columns[i] = canonicalField(name)
		if columns[i] != "" {
			known++
		}
	}
	if known == 0 {
		return nil, riskerr.Malformed("ingest.Read", fmt.Sprintf("CSV header has no recognized columns: %v", header))
	}

	var records []event.LogRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				return nil, fmt.Errorf("error reading CSV: %w", err)
			}
			rec, err := r.undecodable(parseErr.Line, parseErr.Err)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
			continue
		}

		fields := make(map[string]any, len(columns))
		for i, value := range row {
			if i >= len(columns) || columns[i] == "" {
				continue
			}
			if _, seen := fields[columns[i]]; seen {
				continue
			}
			fields[columns[i]] = value
		}
		records = append(records, recordFrom(fields, r.location))
	}
	return records, nil
}
