package report

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format represents the format for exporting a register.
type Format string

const (
	// FormatJSON exports the full document as indented JSON.
	FormatJSON Format = "json"

	// FormatCSV exports one row per register entry.
	FormatCSV Format = "csv"

	// FormatYAML exports the full document as YAML.
	FormatYAML Format = "yaml"
)

// IsValid returns true if the export format is valid.
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatCSV, FormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the export format.
func (f Format) String() string {
	return string(f)
}

// FileExtension returns the file extension for the export format.
func (f Format) FileExtension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatCSV:
		return ".csv"
	case FormatYAML:
		return ".yaml"
	default:
		return ""
	}
}

// MimeType returns the MIME type for the export format.
func (f Format) MimeType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	case FormatYAML:
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat parses a string into a Format value.
// Returns an error if the string is not a valid export format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "yml" {
		return FormatYAML, nil
	}
	if !f.IsValid() {
		return "", fmt.Errorf("invalid export format: %s", s)
	}
	return f, nil
}

// FormatForPath picks the export format from a file name's extension.
func FormatForPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer export format from %q", filepath.Base(path))
	}
	return ParseFormat(ext)
}

// AllFormats returns all valid export formats.
func AllFormats() []Format {
	return []Format{
		FormatJSON,
		FormatCSV,
		FormatYAML,
	}
}
