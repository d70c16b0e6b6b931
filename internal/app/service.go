// Package service wires the store, rate governor, query resolver and live
// broadcaster together and supervises the background loops.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/CurryTPH/all-sports-api/internal/adapters/repository"
	"github.com/CurryTPH/all-sports-api/internal/config"
	"github.com/CurryTPH/all-sports-api/internal/domain/broadcast"
	"github.com/CurryTPH/all-sports-api/internal/domain/model"
	"github.com/CurryTPH/all-sports-api/internal/domain/query"
	"github.com/CurryTPH/all-sports-api/internal/domain/ratelimit"
	"github.com/CurryTPH/all-sports-api/internal/domain/types"
	"github.com/CurryTPH/all-sports-api/internal/importer"
	"github.com/CurryTPH/all-sports-api/pkg/logger"
	"github.com/CurryTPH/all-sports-api/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// Service owns the API's components.
type Service struct {
	mu  sync.RWMutex
	cfg *config.Config

	base        repository.Store
	ownsBase    bool
	store       *repository.BreakerStore
	governor    *ratelimit.Governor
	resolver    *query.Resolver
	broadcaster *broadcast.Broadcaster
	generator   *broadcast.Generator

	supervisor *suture.Supervisor
	cancel     context.CancelFunc
	done       <-chan error

	started   bool
	startedAt time.Time

	logger logger.Logger
}

// New constructs a Service. Components are built by Start.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store, builds the components, optionally seeds and starts
// the supervised loops. Calling Start twice is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.logger.Info(ctx, "starting all sports service...", logger.String("store", s.cfg.StoreDriver))

	if s.base == nil {
		base, err := openBase(s.cfg)
		if err != nil {
			return err
		}
		s.base, s.ownsBase = base, true
	}
	s.store = wrapStore(s.cfg, s.base, s.logger.Named("store"))

	s.governor = ratelimit.New(
		ratelimit.WithWindow(s.cfg.RateLimitWindow()),
		ratelimit.WithMax(s.cfg.RateLimitMax),
	)
	s.resolver = query.New(s.store, query.WithLogger(s.logger.Named("query")))

	bopts := []broadcast.Option{
		broadcast.WithInterval(s.cfg.BroadcastInterval()),
		broadcast.WithLogger(s.logger.Named("live")),
	}
	if s.generator != nil {
		bopts = append(bopts, broadcast.WithGenerator(s.generator))
	}
	s.broadcaster = broadcast.New(bopts...)

	if s.cfg.SeedOnStart {
		n, err := importer.Seed(ctx, s.store)
		if err != nil {
			_ = s.closeStore()
			return fmt.Errorf("seed store: %w", err)
		}
		s.logger.Info(ctx, "seed data loaded", logger.Int("records", n))
	}

	s.supervisor = suture.New("all-sports", suture.Spec{
		EventHook: s.supervisorEvent,
		Timeout:   shutdownTimeout,
	})
	s.supervisor.Add(s.broadcaster)
	s.supervisor.Add(ratelimit.NewJanitor(s.governor, s.cfg.RateLimitSweep(), s.logger.Named("rate")))
	s.supervisor.Add(&systemSampler{interval: sampleInterval})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = s.supervisor.ServeBackground(runCtx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "all sports service started",
		logger.Duration("broadcastInterval", s.cfg.BroadcastInterval()),
		logger.Int("rateLimitMax", s.cfg.RateLimitMax),
	)
	return nil
}

// Stop cancels the supervised loops, which closes every live subscriber, and
// closes the store if Start opened it. A later Start opens it again; a store
// passed with WithStore stays open and is reused.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping all sports service...")

	s.cancel()
	select {
	case err := <-s.done:
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn(ctx, "supervisor exited with error", logger.Error(err))
		}
	case <-ctx.Done():
		s.logger.Warn(ctx, "supervisor shutdown timed out")
	}

	err := s.closeStore()
	s.started = false
	s.logger.Info(ctx, "all sports service stopped")
	return err
}

func (s *Service) closeStore() error {
	if !s.ownsBase || s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.base, s.ownsBase = nil, false
	if err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

func (s *Service) supervisorEvent(e suture.Event) {
	s.logger.Warn(context.Background(), "supervisor event",
		logger.String("type", fmt.Sprint(e.Type())),
		logger.String("event", e.String()),
	)
	metrics.RecordErrorByComponent("supervisor", fmt.Sprint(e.Type()))
}

// Governor returns the rate governor. Nil before Start.
func (s *Service) Governor() *ratelimit.Governor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.governor
}

// Resolver returns the query resolver. Nil before Start.
func (s *Service) Resolver() *query.Resolver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolver
}

// Broadcaster returns the live broadcaster. Nil before Start.
func (s *Service) Broadcaster() *broadcast.Broadcaster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.broadcaster
}

// Health is the cheap liveness summary served without touching the store.
func (s *Service) Health() types.Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := types.Health{Status: "ok"}
	if !s.started {
		h.Status = "starting"
		return h
	}
	h.Subscribers = s.broadcaster.Count()
	h.RateLimitedClients = s.governor.Limited()
	return h
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) (types.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return types.Stats{}, ErrNotStarted
	}

	stats := types.Stats{
		Subscribers:      s.broadcaster.Count(),
		TrackedClients:   s.governor.Tracked(),
		Records:          make(map[string]int, len(model.Collections)),
		StoreDriver:      s.cfg.StoreDriver,
		BreakerState:     s.store.State(),
		EventsBroadcast:  s.broadcaster.Events(),
		UptimeSeconds:    int64(time.Since(s.startedAt).Seconds()),
		BroadcastRunning: s.broadcaster.Running(),
	}
	for _, coll := range model.Collections {
		n, err := s.store.Count(ctx, coll)
		if err != nil {
			return stats, fmt.Errorf("count %s: %w", coll, err)
		}
		stats.Records[coll] = n
		metrics.UpdateStoreRecords(coll, n)
	}
	metrics.UpdateRateTrackedClients(stats.TrackedClients)
	return stats, nil
}
