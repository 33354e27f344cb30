package dispatch

import "errors"

// Errors returned by the queue. Callers classify them with errors.Is;
// anything else is an internal failure.
var (
	// ErrNotFound means the order, job or batch does not exist for the tenant.
	ErrNotFound = errors.New("not found")

	// ErrConflict means the job is not in a state that allows the operation,
	// e.g. acking a job that is pending or leased by another bridge.
	ErrConflict = errors.New("conflict")

	// ErrBadRequest means the input has no safe default.
	ErrBadRequest = errors.New("bad request")
)
