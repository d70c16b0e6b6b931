// Package queue provides a bounded, non-blocking in-memory queue used for
// websocket outboxes and import jobs.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/CurryTPH/all-sports-api/pkg/metrics"
)

const defaultCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds an item. It returns ErrFull or ErrClosed instead of blocking.
	Enqueue(ctx context.Context, item T) error

	// Dequeue returns a channel that receives items until the queue is closed
	// and drained, or ctx is done.
	Dequeue(ctx context.Context) <-chan T

	// Len returns the current number of queued items.
	Len() int

	// Close stops new items. Buffered items can still be dequeued.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	items chan T
	cfg   config

	mu     sync.RWMutex
	closed bool
}

// New creates a queue. The default capacity is 1024.
func New[T any](opts ...Option) *InMemoryQueue[T] {
	cfg := config{capacity: defaultCapacity, name: "queue"}
	for _, opt := range opts {
		opt(&cfg)
	}
	q := &InMemoryQueue[T]{
		items: make(chan T, cfg.capacity),
		cfg:   cfg,
	}
	q.report()
	return q
}

// Enqueue adds item without blocking.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent(q.cfg.name, "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}

	select {
	case q.items <- item:
		q.report()
		return nil
	default:
		metrics.RecordErrorByComponent(q.cfg.name, "queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel fed from the queue.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case item, ok := <-q.items:
				if !ok {
					return
				}
				q.report()
				select {
				case out <- item:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Items exposes the underlying channel for a single consumer loop.
func (q *InMemoryQueue[T]) Items() <-chan T {
	return q.items
}

func (q *InMemoryQueue[T]) Len() int {
	return len(q.items)
}

// Close is idempotent.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *InMemoryQueue[T]) report() {
	if q.cfg.onSize != nil {
		q.cfg.onSize(len(q.items))
	}
}
