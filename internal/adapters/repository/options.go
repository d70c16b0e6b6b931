package repository

import (
	"time"

	"github.com/CurryTPH/all-sports-api/pkg/logger"
)

// BreakerOption configures a BreakerStore.
type BreakerOption func(*breakerConfig)

type breakerConfig struct {
	name        string
	failures    uint32
	timeout     time.Duration
	interval    time.Duration
	maxRequests uint32
	log         logger.Logger
}

// WithBreakerName names the breaker in logs and metrics.
func WithBreakerName(name string) BreakerOption {
	return func(c *breakerConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithFailureThreshold trips the breaker after n consecutive failures.
func WithFailureThreshold(n int) BreakerOption {
	return func(c *breakerConfig) {
		if n > 0 {
			c.failures = uint32(n)
		}
	}
}

// WithOpenTimeout sets how long the breaker stays open before probing.
func WithOpenTimeout(d time.Duration) BreakerOption {
	return func(c *breakerConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreakerLogger sets the logger used for state transitions.
func WithBreakerLogger(l logger.Logger) BreakerOption {
	return func(c *breakerConfig) {
		if l != nil {
			c.log = l
		}
	}
}

// BadgerOption configures a BadgerStore.
type BadgerOption func(*badgerConfig)

type badgerConfig struct {
	inMemory  bool
	bandwidth uint64
}

// WithInMemory keeps all badger data in memory. Used by tests.
func WithInMemory() BadgerOption {
	return func(c *badgerConfig) { c.inMemory = true }
}

// WithSequenceBandwidth sets how many sequence numbers are leased at once.
func WithSequenceBandwidth(n uint64) BadgerOption {
	return func(c *badgerConfig) {
		if n > 0 {
			c.bandwidth = n
		}
	}
}
