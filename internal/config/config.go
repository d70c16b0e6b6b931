// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New builds a Config with defaults; Load layers file and env on top.
// - Durations are stored as integer units and exposed through accessors.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"time"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects json or console log output.
	LogFormat string `koanf:"log_format" validate:"oneof=json console"`

	// Addr configures the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr" validate:"required"`

	// RateLimitWindowSeconds is the fixed window length per client.
	RateLimitWindowSeconds int `koanf:"rate_limit_window_seconds" validate:"gte=1"`

	// RateLimitMax is the number of admitted requests per window.
	RateLimitMax int `koanf:"rate_limit_max" validate:"gte=1"`

	// RateLimitSweepSeconds is how often expired windows are dropped.
	RateLimitSweepSeconds int `koanf:"rate_limit_sweep_seconds" validate:"gte=1"`

	// TrustProxy keys clients on the address appended by one trusted proxy
	// (the rightmost X-Forwarded-For entry).
	TrustProxy bool `koanf:"trust_proxy"`

	// BroadcastIntervalMS is the live event cadence.
	BroadcastIntervalMS int `koanf:"broadcast_interval_ms" validate:"gte=10"`

	// SubscriberBuffer bounds each websocket subscriber outbox.
	SubscriberBuffer int `koanf:"subscriber_buffer" validate:"gte=1"`

	// StoreDriver picks the record store: memory or badger.
	StoreDriver string `koanf:"store_driver" validate:"oneof=memory badger"`

	// StorePath is the badger data directory.
	StorePath string `koanf:"store_path" validate:"required_if=StoreDriver badger"`

	// SeedOnStart inserts the built-in seed fixtures at startup.
	SeedOnStart bool `koanf:"seed_on_start"`

	// BreakerFailureThreshold trips the store breaker after N consecutive failures.
	BreakerFailureThreshold int `koanf:"breaker_failure_threshold" validate:"gte=1"`

	// BreakerTimeoutSeconds is how long the breaker stays open.
	BreakerTimeoutSeconds int `koanf:"breaker_timeout_seconds" validate:"gte=1"`

	// CORSAllowedOrigins is passed to the CORS middleware.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"min=1"`
}

// New creates a Config with defaults. Context is accepted first to follow
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "json",
		Addr:                    ":3000",
		RateLimitWindowSeconds:  60,
		RateLimitMax:            30,
		RateLimitSweepSeconds:   60,
		TrustProxy:              false,
		BroadcastIntervalMS:     1000,
		SubscriberBuffer:        16,
		StoreDriver:             StoreMemory,
		StorePath:               "data/badger",
		SeedOnStart:             true,
		BreakerFailureThreshold: 5,
		BreakerTimeoutSeconds:   30,
		CORSAllowedOrigins:      []string{"*"},
	}
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c *Config) RateLimitSweep() time.Duration {
	return time.Duration(c.RateLimitSweepSeconds) * time.Second
}

func (c *Config) BroadcastInterval() time.Duration {
	return time.Duration(c.BroadcastIntervalMS) * time.Millisecond
}

func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutSeconds) * time.Second
}
