package service

import (
	"github.com/CurryTPH/all-sports-api/internal/adapters/repository"
	"github.com/CurryTPH/all-sports-api/internal/domain/broadcast"
	"github.com/CurryTPH/all-sports-api/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore injects the backing store instead of opening the configured one.
// The store is still wrapped by the circuit breaker. The caller closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.base = store
	}
}

// WithGenerator sets the live event generator.
func WithGenerator(g *broadcast.Generator) Option {
	return func(s *Service) {
		s.generator = g
	}
}
