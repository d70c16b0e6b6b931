package query

import (
	"time"

	"github.com/CurryTPH/all-sports-api/pkg/logger"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock replaces time.Now for submission timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithoutFallback disables the fixtures fallback dataset.
func WithoutFallback() Option {
	return func(r *Resolver) { r.fallback = false }
}
