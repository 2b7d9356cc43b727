// Package riskerr provides the structured error type shared by every stage of
// the risk pipeline.
//
// Errors carry the operation that failed, a Kind used for matching, a human
// readable message, optional details and an underlying cause. Kinds are
// matched with errors.Is against the package sentinels:
//
//	if errors.Is(err, riskerr.ErrInvalidConfiguration) {
//		// pipeline did not run
//	}
//
// ErrInvalidWindow is a refinement of ErrInvalidConfiguration, so a zero
// detection window matches both sentinels.
package riskerr
