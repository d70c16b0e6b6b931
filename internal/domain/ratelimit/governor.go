// Package ratelimit implements the per-client fixed-window request governor.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CurryTPH/all-sports-api/pkg/logger"
	"github.com/CurryTPH/all-sports-api/pkg/metrics"
)

const (
	DefaultWindow = 60 * time.Second
	DefaultMax    = 30

	// UnknownIdentity is the shared bucket for requests without an address.
	UnknownIdentity = "unknown"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed           bool
	RetryAfterSeconds int
	Limit             int
	Remaining         int
}

type window struct {
	start time.Time
	count int
}

// Governor admits or rejects requests per client identity using fixed windows.
// Denied requests still count against the window.
//
// tracked and limited mirror the map under mu so readers never take the lock.
type Governor struct {
	mu      sync.Mutex
	windows map[string]*window
	tracked atomic.Int64
	limited atomic.Int64

	window time.Duration
	max    int
	now    func() time.Time
}

// New creates a Governor with a 60s window and 30 requests per window.
func New(opts ...Option) *Governor {
	g := &Governor{
		windows: make(map[string]*window),
		window:  DefaultWindow,
		max:     DefaultMax,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit records one request for identity and reports whether it may proceed.
func (g *Governor) Admit(identity string) Decision {
	if identity == "" {
		identity = UnknownIdentity
	}
	now := g.now()

	g.mu.Lock()
	w, ok := g.windows[identity]
	switch {
	case !ok:
		w = &window{start: now}
		g.windows[identity] = w
		g.tracked.Add(1)
	case now.Sub(w.start) >= g.window:
		if w.count > g.max {
			g.limited.Add(-1)
		}
		w.start, w.count = now, 0
	}
	w.count++
	if w.count == g.max+1 {
		g.limited.Add(1)
	}
	count, start := w.count, w.start
	g.mu.Unlock()

	d := Decision{
		Allowed:   count <= g.max,
		Limit:     g.max,
		Remaining: max(g.max-count, 0),
	}
	if !d.Allowed {
		left := g.window - now.Sub(start)
		d.RetryAfterSeconds = max(int(math.Ceil(left.Seconds())), 1)
	}
	metrics.RecordRateDecision(d.Allowed)
	return d
}

// Sweep drops windows that have expired and returns how many were removed.
func (g *Governor) Sweep() int {
	now := g.now()
	g.mu.Lock()
	removed := 0
	for id, w := range g.windows {
		if now.Sub(w.start) >= g.window {
			if w.count > g.max {
				g.limited.Add(-1)
			}
			delete(g.windows, id)
			removed++
		}
	}
	g.tracked.Store(int64(len(g.windows)))
	g.mu.Unlock()
	metrics.UpdateRateTrackedClients(int(g.tracked.Load()))
	return removed
}

// Tracked returns the number of identities with a window in memory. It does
// not block Admit.
func (g *Governor) Tracked() int {
	return int(g.tracked.Load())
}

// Limited returns how many identities have exceeded the limit in their
// current window. It does not block Admit. A window that expired without
// further requests is counted until the next Sweep.
func (g *Governor) Limited() int {
	return int(g.limited.Load())
}

// Janitor periodically sweeps expired windows. It implements suture.Service.
type Janitor struct {
	gov      *Governor
	interval time.Duration
	log      logger.Logger
}

// NewJanitor returns a sweeper for gov running every interval.
func NewJanitor(gov *Governor, interval time.Duration, log logger.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultWindow
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Janitor{gov: gov, interval: interval, log: log}
}

// Serve runs until ctx is cancelled.
func (j *Janitor) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := j.gov.Sweep(); n > 0 {
				j.log.Debug(ctx, "swept expired rate windows", logger.Int("removed", n), logger.Int("tracked", j.gov.Tracked()))
			}
		}
	}
}

func (j *Janitor) String() string { return "rate-janitor" }
