// Package errs defines the sentinel errors shared across the daemon's
// components, so callers can branch on failure class with errors.Is
// regardless of which package produced the error.
package errs

import "errors"

var (
	// ErrCaptureUnavailable indicates a capture source could not be opened
	// (missing privilege, interface down, unsupported platform).
	ErrCaptureUnavailable = errors.New("capture unavailable")

	// ErrMalformed indicates a packet failed protocol parsing. Dissection
	// callers count and drop rather than propagate.
	ErrMalformed = errors.New("malformed packet")

	// ErrDbBusy indicates the storage engine's single writer could not
	// accept a request before its deadline; callers may retry.
	ErrDbBusy = errors.New("storage busy")

	// ErrDbFatal indicates a storage error that will not resolve by retrying
	// (corruption, schema mismatch, disk full).
	ErrDbFatal = errors.New("storage fatal error")

	// ErrAmbiguous indicates an identifier-resolution lookup matched more
	// than one candidate and could not be resolved automatically.
	ErrAmbiguous = errors.New("ambiguous identity match")

	// ErrScanUnavailable indicates a scan phase could not run (raw sockets
	// unavailable). A start request while a scan is already running is
	// reported by scan.ErrScanAlreadyRunning instead.
	ErrScanUnavailable = errors.New("scan unavailable")

	// ErrTimeout indicates an operation exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrNotFound indicates a lookup found no matching record.
	ErrNotFound = errors.New("not found")
)
