package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies the encoding of a log source.
type Format string

const (
	// FormatCSV is comma-separated values with a header row.
	FormatCSV Format = "csv"

	// FormatJSONLines is one JSON object per line.
	FormatJSONLines Format = "jsonl"

	// FormatJSON is a JSON array of objects, or an object holding one under "records".
	FormatJSON Format = "json"

	// FormatText is free-form text matched with line patterns.
	FormatText Format = "text"
)

// IsValid returns true if the format is known.
func (f Format) IsValid() bool {
	switch f {
	case FormatCSV, FormatJSONLines, FormatJSON, FormatText:
		return true
	default:
		return false
	}
}

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// FileExtension returns the conventional file extension for the format.
func (f Format) FileExtension() string {
	switch f {
	case FormatCSV:
		return ".csv"
	case FormatJSONLines:
		return ".jsonl"
	case FormatJSON:
		return ".json"
	case FormatText:
		return ".log"
	default:
		return ""
	}
}

// ParseFormat parses a string into a Format value.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case "ndjson":
		return FormatJSONLines, nil
	case "txt", "log":
		return FormatText, nil
	}
	if !f.IsValid() {
		return "", fmt.Errorf("invalid input format: %s", s)
	}
	return f, nil
}

// FormatForPath picks a format from a file name's extension.
func FormatForPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".jsonl", ".ndjson":
		return FormatJSONLines, nil
	case ".json":
		return FormatJSON, nil
	case ".log", ".txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("cannot infer input format from %q", filepath.Base(path))
	}
}

// AllFormats returns all supported formats.
func AllFormats() []Format {
	return []Format{
		FormatCSV,
		FormatJSONLines,
		FormatJSON,
		FormatText,
	}
}
