package service

import "errors"

// Sentinel errors for service lifecycle.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrUnknownDriver = errors.New("unknown store driver")
)
