package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/CurryTPH/all-sports-api/internal/domain/model"
	"github.com/CurryTPH/all-sports-api/pkg/logger"
	"github.com/CurryTPH/all-sports-api/pkg/metrics"
)

// BreakerStore guards another Store with a circuit breaker. While the
// breaker is open every call fails fast with ErrUnavailable.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

var _ Store = (*BreakerStore)(nil)

// NewBreakerStore wraps next.
func NewBreakerStore(next Store, opts ...BreakerOption) *BreakerStore {
	cfg := breakerConfig{
		name:        "store",
		failures:    5,
		timeout:     30 * time.Second,
		interval:    time.Minute,
		maxRequests: 1,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	_ = metrics.UpdateBreakerState(cfg.name, gobreaker.StateClosed.String())

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.name,
		MaxRequests: cfg.maxRequests,
		Interval:    cfg.interval,
		Timeout:     cfg.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.failures
		},
		// Caller mistakes and cancellations say nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrInvalidRecord) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			cfg.log.Warn(context.Background(), "store breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			_ = metrics.UpdateBreakerState(name, to.String())
		},
	})
	return &BreakerStore{next: next, cb: cb, name: cfg.name}
}

// Find implements Store.
func (b *BreakerStore) Find(ctx context.Context, collection string, f Filter, s Sort, limit int) ([]model.Record, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.Find(ctx, collection, f, s, limit)
	})
	if err != nil {
		return nil, b.translate(collection, err)
	}
	recs, _ := res.([]model.Record)
	return recs, nil
}

// Insert implements Store.
func (b *BreakerStore) Insert(ctx context.Context, collection string, rec model.Record) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Insert(ctx, collection, rec)
	})
	return b.translate(collection, err)
}

// Count implements Store.
func (b *BreakerStore) Count(ctx context.Context, collection string) (int, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.Count(ctx, collection)
	})
	if err != nil {
		return 0, b.translate(collection, err)
	}
	n, _ := res.(int)
	return n, nil
}

// State reports the breaker state: closed, half-open or open.
func (b *BreakerStore) State() string {
	return b.cb.State().String()
}

// Close closes the wrapped store when it holds resources.
func (b *BreakerStore) Close() error {
	if c, ok := b.next.(Closer); ok {
		return c.Close()
	}
	return nil
}

func (b *BreakerStore) translate(collection string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.RecordErrorByComponent("store", "breaker_open")
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, collection, err)
	}
	return err
}
