package health

import "errors"

var (
	// ErrCheckFailed wraps a panic raised by a check.
	ErrCheckFailed = errors.New("health: check panicked")
	// ErrCheckTimeout reports a check still running when the probe deadline hit.
	ErrCheckTimeout = errors.New("health: check did not finish in time")
)
