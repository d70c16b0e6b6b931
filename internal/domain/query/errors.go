package query

import (
	"errors"
	"strings"
)

// Sentinel kinds for resolver errors.
var (
	ErrValidation        = errors.New("validation error")
	ErrInvalidCount      = errors.New("invalid count")
	ErrInvalidSortField  = errors.New("invalid sort field")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidDateFormat = errors.New("invalid date format")
	ErrInvalidSubmission = errors.New("invalid submission")

	ErrUnknownCollection = errors.New("unknown collection")
	ErrReadOnly          = errors.New("collection is read-only")
	ErrNotFound          = errors.New("not found")
	ErrStoreUnavailable  = errors.New("store unavailable")
)

// ValidationError is a client mistake caught before any store access.
// It matches both ErrValidation and its specific Kind with errors.Is.
type ValidationError struct {
	Kind    error
	Param   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() []error { return []error{ErrValidation, e.Kind} }

// KindName is a snake_case label for metrics, e.g. "invalid_count".
func (e *ValidationError) KindName() string {
	return strings.ReplaceAll(e.Kind.Error(), " ", "_")
}

func invalid(kind error, param, msg string) *ValidationError {
	return &ValidationError{Kind: kind, Param: param, Message: msg}
}
