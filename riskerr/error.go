package riskerr

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds.
const (
	// KindMalformedRecord marks a log record that lacks a timestamp or event type.
	// The record is excluded from analysis; the run continues.
	KindMalformedRecord = "malformed_record"

	// KindInvalidConfiguration marks a configuration bundle the pipeline refuses to run with.
	KindInvalidConfiguration = "invalid_configuration"

	// KindInvalidWindow marks a detection window with a non-positive duration or threshold.
	KindInvalidWindow = "invalid_window"
)

// parentKinds maps refined kinds to the broader kind they also match.
var parentKinds = map[string]string{
	KindInvalidWindow: KindInvalidConfiguration,
}

// Sentinel errors for use with errors.Is.
var (
	ErrMalformedRecord      = &Error{Kind: KindMalformedRecord}
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration}
	ErrInvalidWindow        = &Error{Kind: KindInvalidWindow}
)

// Error is a structured pipeline error.
type Error struct {
	// Op is the operation that failed (e.g. "config.Validate", "event.NewTable").
	Op string

	// Kind categorizes the error; see the Kind* constants.
	Kind string

	// Message is a human-readable description.
	Message string

	// Details carries additional context as key-value pairs.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// New creates an error for the given operation and kind.
//
// Example:
//
//	err := riskerr.New("config.Validate", riskerr.KindInvalidConfiguration,
//	    "low_rpn_threshold must not exceed critical_rpn_threshold")
func New(op, kind, message string) *Error {
	return &Error{
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// Malformed creates a KindMalformedRecord error.
func Malformed(op, message string) *Error {
	return New(op, KindMalformedRecord, message)
}

// InvalidConfiguration creates a KindInvalidConfiguration error.
func InvalidConfiguration(op, message string) *Error {
	return New(op, KindInvalidConfiguration, message)
}

// InvalidWindow creates a KindInvalidWindow error.
func InvalidWindow(op, message string) *Error {
	return New(op, KindInvalidWindow, message)
}

// WithCause sets the underlying error and returns the same instance.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithDetails merges details into the error and returns the same instance.
func (e *Error) WithDetails(details map[string]any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// Error formats the error as "riskvault: op (kind): message: cause".
func (e *Error) Error() string {
	head := "riskvault"
	if e.Op != "" {
		head += ": " + e.Op
	}
	head += " (" + e.Kind + ")"

	parts := []string{head}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind (or a parent kind).
// A target with a non-empty Op must also match the operation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Kind == "" {
		return false
	}
	if t.Op != "" && t.Op != e.Op {
		return false
	}
	return e.Kind == t.Kind || parentKinds[e.Kind] == t.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Errorf is a convenience for New with a formatted message.
func Errorf(op, kind, format string, args ...any) *Error {
	return New(op, kind, fmt.Sprintf(format, args...))
}
