// Package broadcast generates one synthetic live event per tick and fans it
// out to every registered subscriber.
package broadcast

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/CurryTPH/all-sports-api/internal/domain/model"
	"github.com/CurryTPH/all-sports-api/pkg/logger"
	"github.com/CurryTPH/all-sports-api/pkg/metrics"
)

const DefaultInterval = time.Second

// Subscriber receives serialized events. Send must not block; an error
// closes the subscriber for good.
type Subscriber interface {
	Send(frame []byte) error
	Close() error
}

// Handle identifies a registration.
type Handle = uuid.UUID

type entry struct {
	sub    Subscriber
	closed atomic.Bool
	once   sync.Once
}

// close marks the entry closed and closes the subscriber exactly once.
func (e *entry) close() {
	e.closed.Store(true)
	e.once.Do(func() { _ = e.sub.Close() })
}

// Broadcaster owns the subscriber registry and the tick loop.
type Broadcaster struct {
	mu    sync.RWMutex
	subs  map[Handle]*entry
	count atomic.Int64

	interval time.Duration
	gen      *Generator
	log      logger.Logger
	now      func() time.Time

	events  atomic.Uint64
	serving atomic.Bool

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a stopped Broadcaster.
func New(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		subs:     make(map[Handle]*entry),
		interval: DefaultInterval,
		log:      logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.gen == nil {
		b.gen = NewGenerator(nil)
	}
	return b
}

// Subscribe registers sub. It receives events from the next tick on.
func (b *Broadcaster) Subscribe(sub Subscriber) Handle {
	h := uuid.New()
	b.mu.Lock()
	b.subs[h] = &entry{sub: sub}
	n := b.count.Add(1)
	b.mu.Unlock()
	metrics.UpdateSubscribers(int(n))
	return h
}

// Unsubscribe closes and removes a subscriber. It reports whether h was registered.
func (b *Broadcaster) Unsubscribe(h Handle) bool {
	b.mu.Lock()
	e, ok := b.subs[h]
	if ok {
		delete(b.subs, h)
		b.count.Add(-1)
	}
	n := b.count.Load()
	b.mu.Unlock()
	if !ok {
		return false
	}
	e.close()
	metrics.UpdateSubscribers(int(n))
	return true
}

// Count is a lock-free, best-effort registry size.
func (b *Broadcaster) Count() int64 {
	return b.count.Load()
}

// Events returns how many events have been generated.
func (b *Broadcaster) Events() uint64 {
	return b.events.Load()
}

// Tick generates one event stamped now and broadcasts it. It returns the
// number of subscribers that accepted it.
func (b *Broadcaster) Tick(now time.Time) int {
	ev := b.gen.Next(now)
	b.events.Add(1)
	metrics.RecordBroadcastTick()
	return b.Broadcast(ev)
}

// Broadcast sends ev to a snapshot of open subscribers and removes every
// subscriber whose Send fails.
func (b *Broadcaster) Broadcast(ev model.LiveEvent) int {
	start := time.Now()
	frame, err := json.Marshal(ev)
	if err != nil {
		b.log.Error(context.Background(), "encode live event", logger.Error(err))
		return 0
	}

	b.mu.RLock()
	snapshot := make(map[Handle]*entry, len(b.subs))
	for h, e := range b.subs {
		snapshot[h] = e
	}
	b.mu.RUnlock()

	delivered := 0
	var failed []Handle
	for h, e := range snapshot {
		if e.closed.Load() {
			continue
		}
		if err := e.sub.Send(frame); err != nil {
			failed = append(failed, h)
			b.log.Debug(context.Background(), "dropping live subscriber",
				logger.String("handle", h.String()),
				logger.Error(err),
			)
			metrics.RecordBroadcastFailure()
			continue
		}
		delivered++
	}
	for _, h := range failed {
		b.Unsubscribe(h)
	}

	for range delivered {
		metrics.RecordBroadcastDelivery()
	}
	metrics.RecordBroadcastLatency(float64(time.Since(start).Microseconds()) / 1000)
	return delivered
}

// Serve runs the tick loop until ctx is cancelled, then closes every
// subscriber. It implements suture.Service.
func (b *Broadcaster) Serve(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.serving.Store(true)
	defer b.serving.Store(false)

	b.log.Info(ctx, "live broadcaster started", logger.Duration("interval", b.interval))
	defer b.closeAll()

	for {
		select {
		case <-ctx.Done():
			b.log.Info(ctx, "live broadcaster stopped", logger.Int64("subscribers", b.Count()))
			return ctx.Err()
		case <-ticker.C:
			b.Tick(b.now())
		}
	}
}

// Start runs Serve in the background. Use either Start/Stop or a supervisor
// calling Serve, not both.
func (b *Broadcaster) Start(ctx context.Context) error {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.cancel != nil {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	b.cancel, b.done = cancel, done
	go func() {
		defer close(done)
		if err := b.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			b.log.Error(ctx, "live broadcaster exited", logger.Error(err))
		}
	}()
	return nil
}

// Stop cancels a loop started with Start and waits for it to exit.
func (b *Broadcaster) Stop() error {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.cancel == nil {
		return ErrNotRunning
	}
	b.cancel()
	<-b.done
	b.cancel, b.done = nil, nil
	return nil
}

// Running reports whether the tick loop is active.
func (b *Broadcaster) Running() bool {
	return b.serving.Load()
}

func (b *Broadcaster) String() string { return "live-broadcaster" }

func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[Handle]*entry)
	b.count.Store(0)
	b.mu.Unlock()
	for _, e := range subs {
		e.close()
	}
	metrics.UpdateSubscribers(0)
}
