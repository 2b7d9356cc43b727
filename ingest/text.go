package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/zero-day-ai/riskvault/event"
)

// fieldsGroup is the capture group holding trailing key=value pairs.
const fieldsGroup = "fields"

var kvPair = regexp.MustCompile(`([A-Za-z_@.]+)=("(?:[^"\\]|\\.)*"|\S*)`)

// Pattern matches one kind of text log line. Named capture groups are mapped
// to record fields by the same spellings accepted for CSV columns; a group
// named "fields" is parsed as space separated key=value pairs.
type Pattern struct {
	// Expr is the regular expression.
	Expr string `json:"expr" yaml:"expr"`

	// EventType is assigned to matching lines that capture no event type.
	EventType event.EventType `json:"event_type,omitempty" yaml:"event_type,omitempty"`
}

// DefaultPatterns covers key=value application logs, OpenSSH authentication
// lines and netfilter/UFW block lines with ISO-8601 timestamps.
func DefaultPatterns() map[string]Pattern {
	return map[string]Pattern{
		"kv": {
			Expr: `^(?P<timestamp>\d{4}-\d{2}-\d{2}[T ][\d:.]+(?:Z|[+-]\d{2}:?\d{2})?)\s+(?P<event_type>[A-Za-z_]+)(?P<fields>(?:\s+[A-Za-z_@.]+=\S*).*)$`,
		},
		"sshd_failed": {
			Expr:      `^(?P<timestamp>\S+)\s+\S+\s+sshd\[\d+\]:\s+Failed \S+ for (?:invalid user )?(?P<username>\S+) from (?P<source_ip>[0-9A-Fa-f:.]+) port (?P<source_port>\d+)`,
			EventType: event.EventFailedLogin,
		},
		"sshd_accepted": {
			Expr:      `^(?P<timestamp>\S+)\s+\S+\s+sshd\[\d+\]:\s+Accepted \S+ for (?P<username>\S+) from (?P<source_ip>[0-9A-Fa-f:.]+) port (?P<source_port>\d+)`,
			EventType: event.EventSuccessfulLogin,
		},
		"netfilter": {
			Expr:      `^(?P<timestamp>\S+)\s+\S+\s+kernel:.*?(?P<fields>\bSRC=.*)$`,
			EventType: event.EventConnectionAttempt,
		},
	}
}

type linePattern struct {
	name      string
	re        *regexp.Regexp
	eventType event.EventType
}

// LineParser matches text lines against named patterns. Patterns are tried
// in name order and the first match wins.
type LineParser struct {
	patterns []linePattern
}

// NewLineParser compiles the patterns. Every pattern must capture at least
// one named group.
func NewLineParser(patterns map[string]Pattern) (*LineParser, error) {
	names := make([]string, 0, len(patterns))
	for name := range patterns {
		names = append(names, name)
	}
	sort.Strings(names)

	compiled := make([]linePattern, 0, len(names))
	for _, name := range names {
		p := patterns[name]
		re, err := regexp.Compile(p.Expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %q: %w", name, err)
		}
		named := 0
		for _, group := range re.SubexpNames() {
			if group != "" {
				named++
			}
		}
		if named == 0 {
			return nil, fmt.Errorf("pattern %q has no named groups", name)
		}
		compiled = append(compiled, linePattern{name: name, re: re, eventType: p.EventType})
	}

	return &LineParser{patterns: compiled}, nil
}

// Match returns the canonical fields captured from line and the name of the
// matching pattern. ok is false if no pattern matches.
func (p *LineParser) Match(line string) (fields map[string]any, pattern string, ok bool) {
	for _, lp := range p.patterns {
		match := lp.re.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		raw := make(map[string]any)
		for i, name := range lp.re.SubexpNames() {
			if i == 0 || name == "" || match[i] == "" {
				continue
			}
			if name == fieldsGroup {
				for k, v := range parseKV(match[i]) {
					if _, set := raw[k]; !set {
						raw[k] = v
					}
				}
				continue
			}
			raw[name] = match[i]
		}

		fields = canonicalize(raw)
		if _, set := fields[fieldEventType]; !set && lp.eventType != "" {
			fields[fieldEventType] = string(lp.eventType)
		}
		if _, set := fields[fieldMessage]; !set {
			fields[fieldMessage] = strings.TrimSpace(line)
		}
		return fields, lp.name, true
	}
	return nil, "", false
}

// parseKV extracts key=value pairs. Quoted values are unquoted.
func parseKV(s string) map[string]string {
	out := make(map[string]string)
	for _, m := range kvPair.FindAllStringSubmatch(s, -1) {
		key, val := m[1], m[2]
		if strings.HasPrefix(val, `"`) {
			if unquoted, err := strconv.Unquote(val); err == nil {
				val = unquoted
			}
		}
		if _, set := out[key]; !set {
			out[key] = val
		}
	}
	return out
}

// readText decodes lines matching a pattern. Lines that match no pattern
// are not log events and are skipped.
func (r *Reader) readText(ctx context.Context, src io.Reader) ([]event.LogRecord, error) {
	var records []event.LogRecord
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNum, skipped := 0, 0
	for scanner.Scan() {
		lineNum++
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields, _, ok := r.lines.Match(line)
		if !ok {
			skipped++
			continue
		}
		records = append(records, recordFrom(fields, r.location))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading text: %w", err)
	}
	if skipped > 0 {
		r.logger.Debug("skipped unmatched log lines", "lines", skipped)
	}
	return records, nil
}
