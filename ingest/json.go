package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/zero-day-ai/riskvault/event"
	"github.com/zero-day-ai/riskvault/riskerr"
)

// readJSONLines decodes one object per line. Blank lines are skipped.
func (r *Reader) readJSONLines(ctx context.Context, src io.Reader) ([]event.LogRecord, error) {
	var records []event.LogRecord
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var obj map[string]any
		if err := decodeObject(line, &obj); err != nil {
			rec, err := r.undecodable(lineNum, err)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
			continue
		}
		records = append(records, recordFrom(canonicalize(obj), r.location))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading JSON lines: %w", err)
	}
	return records, nil
}

// readJSON decodes a JSON array of objects, or an object whose "records"
// key holds one. Elements that are not objects become empty records.
func (r *Reader) readJSON(src io.Reader) ([]event.LogRecord, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("error reading JSON: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var items []json.RawMessage
	if data[0] == '{' {
		var doc struct {
			Records []json.RawMessage `json:"records"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, riskerr.Malformed("ingest.Read", "failed to parse JSON document").WithCause(err)
		}
		items = doc.Records
	} else if err := json.Unmarshal(data, &items); err != nil {
		return nil, riskerr.Malformed("ingest.Read", "failed to parse JSON array").WithCause(err)
	}

	records := make([]event.LogRecord, 0, len(items))
	for i, item := range items {
		var obj map[string]any
		if err := decodeObject(item, &obj); err != nil {
			rec, err := r.undecodable(i+1, err)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
			continue
		}
		records = append(records, recordFrom(canonicalize(obj), r.location))
	}
	return records, nil
}

// decodeObject unmarshals a JSON object keeping numbers as json.Number, so
// large Unix timestamps keep their precision.
func decodeObject(data []byte, obj *map[string]any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(obj); err != nil {
		return err
	}
	if *obj == nil {
		return fmt.Errorf("expected a JSON object")
	}
	return nil
}
