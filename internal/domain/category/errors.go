package category

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnknownCategory = errors.New("unknown category")
)
