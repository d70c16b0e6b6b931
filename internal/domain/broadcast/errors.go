package broadcast

import "errors"

// Sentinel kinds for broadcaster errors.
var (
	ErrAlreadyRunning = errors.New("broadcaster already running")
	ErrNotRunning     = errors.New("broadcaster not running")
)
