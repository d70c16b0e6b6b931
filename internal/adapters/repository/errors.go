package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrUnavailable   = errors.New("store unavailable")
	ErrInvalidRecord = errors.New("invalid record")
	ErrClosed        = errors.New("store closed")
)
