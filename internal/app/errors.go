package service

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrInvalidRequest wraps every rejection of a run request; nothing was computed.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrPartitionsFailed is returned when at least one partition failed.
	ErrPartitionsFailed = errors.New("partitions failed")
)
