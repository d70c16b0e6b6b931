package service

import (
	"fmt"

	"github.com/CurryTPH/all-sports-api/internal/adapters/repository"
	"github.com/CurryTPH/all-sports-api/internal/config"
	"github.com/CurryTPH/all-sports-api/pkg/logger"
)

// OpenStore opens the configured store driver and wraps it in a circuit
// breaker. The caller closes the returned store.
func OpenStore(cfg *config.Config, log logger.Logger) (*repository.BreakerStore, error) {
	base, err := openBase(cfg)
	if err != nil {
		return nil, err
	}
	return wrapStore(cfg, base, log), nil
}

func openBase(cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return repository.NewMemoryStore(), nil
	case config.StoreBadger:
		st, err := repository.OpenBadgerStore(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("open badger store at %s: %w", cfg.StorePath, err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.StoreDriver)
	}
}

func wrapStore(cfg *config.Config, base repository.Store, log logger.Logger) *repository.BreakerStore {
	return repository.NewBreakerStore(base,
		repository.WithBreakerName("store"),
		repository.WithFailureThreshold(cfg.BreakerFailureThreshold),
		repository.WithOpenTimeout(cfg.BreakerTimeout()),
		repository.WithBreakerLogger(log),
	)
}
