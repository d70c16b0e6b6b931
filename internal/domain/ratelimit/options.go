package ratelimit

import "time"

// Option configures a Governor.
type Option func(*Governor)

// WithWindow sets the fixed window length. Non-positive values are ignored.
func WithWindow(d time.Duration) Option {
	return func(g *Governor) {
		if d > 0 {
			g.window = d
		}
	}
}

// WithMax sets the number of requests admitted per window.
func WithMax(n int) Option {
	return func(g *Governor) {
		if n > 0 {
			g.max = n
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Governor) {
		if now != nil {
			g.now = now
		}
	}
}
