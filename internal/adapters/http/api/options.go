package api

import (
	"github.com/go-chi/httprate"

	"github.com/CurryTPH/all-sports-api/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTrustProxy keys clients on the address appended by one trusted proxy
// (see KeyByProxyHop) instead of the peer address.
func WithTrustProxy(trust bool) Option {
	return func(s *Server) {
		if trust {
			s.keyFunc = KeyByProxyHop
		} else {
			s.keyFunc = httprate.KeyByIP
		}
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.corsOrigins = origins
		}
	}
}

// WithOutboxSize bounds each live subscriber's pending frames.
func WithOutboxSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.outboxSize = n
		}
	}
}
