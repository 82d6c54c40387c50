package pipeline

import "errors"

// Sentinel error kinds for partition runs.
var (
	// ErrInputUnavailable means the record feed could not be read; nothing was published.
	ErrInputUnavailable = errors.New("input unavailable")
	// ErrPublishFailure means the atomic replace did not complete; prior rows are intact.
	ErrPublishFailure = errors.New("publish failure")
)
