package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrUnknownBreakerState = errors.New("metrics: unknown breaker state")
)
