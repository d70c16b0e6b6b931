// Package importer loads fixtures into the record store: the built-in seed
// data and the college football games feed.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/CurryTPH/all-sports-api/internal/adapters/mq/queue"
	"github.com/CurryTPH/all-sports-api/internal/adapters/mq/worker"
	"github.com/CurryTPH/all-sports-api/internal/domain/dedupe"
	"github.com/CurryTPH/all-sports-api/internal/domain/model"
	"github.com/CurryTPH/all-sports-api/pkg/logger"
	"github.com/CurryTPH/all-sports-api/pkg/metrics"
)

// Config holds one import run's settings.
type Config struct {
	Source  string        // feed URL or file path; empty skips the feed
	APIKey  string        // bearer token for URL sources
	Seed    bool          // insert the built-in seed data first
	Workers int           // import workers; non-positive uses the CPU count
	Timeout time.Duration // feed request timeout
}

// Summary reports what a run did.
type Summary struct {
	Seeded     int
	Read       int
	Duplicates int
	Stored     int64
	Failed     int64
	Duration   time.Duration
}

// Run seeds and imports according to cfg.
func Run(ctx context.Context, cfg Config, store Inserter, log logger.Logger) (Summary, error) {
	if log == nil {
		log = logger.Nop()
	}
	start := time.Now()
	var sum Summary

	if cfg.Source == "" && !cfg.Seed {
		return sum, ErrNothingToDo
	}

	if cfg.Seed {
		n, err := Seed(ctx, store)
		sum.Seeded = n
		if err != nil {
			return sum, err
		}
		log.Info(ctx, "seed data inserted", logger.Int("records", n))
	}

	if cfg.Source != "" {
		games, err := LoadGames(ctx, cfg.Source, cfg.APIKey, cfg.Timeout)
		if err != nil {
			return sum, fmt.Errorf("load games from %s: %w", cfg.Source, err)
		}
		sum.Read = len(games)
		log.Info(ctx, "games feed loaded", logger.Int("games", len(games)))

		dup, stored, failed, err := importGames(ctx, games, cfg.Workers, store, log)
		sum.Duplicates, sum.Stored, sum.Failed = dup, stored, failed
		if err != nil {
			return sum, err
		}
	}

	sum.Duration = time.Since(start)
	log.Info(ctx, "import finished",
		logger.Int("seeded", sum.Seeded),
		logger.Int("read", sum.Read),
		logger.Int("duplicates", sum.Duplicates),
		logger.Int64("stored", sum.Stored),
		logger.Int64("failed", sum.Failed),
		logger.Duration("duration", sum.Duration),
	)
	return sum, nil
}

// importGames fans the games out to a worker pool, skipping repeated ids.
func importGames(ctx context.Context, games []model.Game, workers int, store Inserter, log logger.Logger) (int, int64, int64, error) {
	jobs := queue.New[worker.Job](
		queue.WithCapacity(max(len(games), 1)),
		queue.WithName("import_queue"),
		queue.WithSizeGauge(metrics.UpdateQueueSize),
	)
	pool := worker.NewPool(workers, jobs, store, log)
	pool.Start(ctx)

	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	duplicates := 0
	for _, g := range games {
		id := g.FixtureID()
		if seen.SeenAndRecord(ctx, id) {
			duplicates++
			metrics.RecordImport("duplicate")
			continue
		}
		if err := jobs.Enqueue(ctx, worker.Job{Collection: model.Fixtures, Record: g.Fixture()}); err != nil {
			seen.Unrecord(ctx, id)
			_ = pool.Shutdown(ctx)
			return duplicates, pool.Counters().Stored(), pool.Counters().Failed(), fmt.Errorf("enqueue %s: %w", id, err)
		}
	}
	if duplicates > 0 {
		log.Warn(ctx, "duplicate games skipped", logger.Int("duplicates", duplicates))
	}

	err := pool.Shutdown(ctx)
	return duplicates, pool.Counters().Stored(), pool.Counters().Failed(), err
}
