package model

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnknownPhysics = errors.New("unknown physics")
)
