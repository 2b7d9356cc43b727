package riskvault

import (
	"io"
	"log/slog"

	"github.com/zero-day-ai/riskvault/riskerr"
)

// Sentinel errors re-exported for callers that only import the root package.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrMalformedRecord matches records rejected from the event table.
	ErrMalformedRecord = riskerr.ErrMalformedRecord

	// ErrInvalidConfiguration matches every configuration failure.
	ErrInvalidConfiguration = riskerr.ErrInvalidConfiguration

	// ErrInvalidWindow matches non-positive detection windows. It also
	// matches ErrInvalidConfiguration.
	ErrInvalidWindow = riskerr.ErrInvalidWindow
)

// CloseWithLog attempts to close the provided resource and logs any error
// at warning level. This is intended for use in defer statements to ensure
// cleanup errors are not silently ignored.
//
// The name parameter should describe the resource being closed (e.g., "file",
// "redis client", "etcd source"). If logger is nil, slog.Default() is used.
//
// Example usage:
//
//	defer riskvault.CloseWithLog(file, logger, "input file")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
