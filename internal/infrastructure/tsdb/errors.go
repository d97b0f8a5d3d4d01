package tsdb

import "errors"

// Sentinel errors for daemon write operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, tsdb.ErrWriteFailed) {
//	    // Daemon unreachable
//	}
var (
	// ErrNoURL indicates the daemon URL is missing or malformed.
	ErrNoURL = errors.New("tsdb: daemon url not configured")

	// ErrConnectionFailed indicates the daemon could not be reached.
	ErrConnectionFailed = errors.New("tsdb: connection failed")

	// ErrWriteFailed indicates a write request could not be completed.
	ErrWriteFailed = errors.New("tsdb: write failed")

	// ErrEmptyWrite indicates Write was called with no lines.
	ErrEmptyWrite = errors.New("tsdb: nothing to write")
)
