package broadcast

import (
	"time"

	"github.com/CurryTPH/all-sports-api/pkg/logger"
)

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithInterval sets the tick cadence. Defaults to one second.
func WithInterval(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithGenerator replaces the event generator.
func WithGenerator(g *Generator) Option {
	return func(b *Broadcaster) {
		if g != nil {
			b.gen = g
		}
	}
}

// WithLogger sets the broadcaster logger.
func WithLogger(l logger.Logger) Option {
	return func(b *Broadcaster) {
		if l != nil {
			b.log = l
		}
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Broadcaster) {
		if now != nil {
			b.now = now
		}
	}
}
