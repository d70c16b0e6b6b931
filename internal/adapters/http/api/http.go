// Package api wires the HTTP routes of the All Sports API.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/CurryTPH/all-sports-api/internal/adapters/http/swagger"
	"github.com/CurryTPH/all-sports-api/internal/domain/broadcast"
	"github.com/CurryTPH/all-sports-api/internal/domain/model"
	"github.com/CurryTPH/all-sports-api/internal/domain/query"
	"github.com/CurryTPH/all-sports-api/internal/domain/types"
	"github.com/CurryTPH/all-sports-api/pkg/logger"
	"github.com/CurryTPH/all-sports-api/pkg/metrics"
)

const defaultOutboxSize = 16

// Resolver answers collection queries.
type Resolver interface {
	Resolve(ctx context.Context, collection string, params query.Params) (query.Result, error)
	Lookup(ctx context.Context, collection, id string) (model.Record, error)
	Submit(ctx context.Context, collection string, stat query.FanStat) (model.Record, error)
}

// Hub registers live subscribers.
type Hub interface {
	Subscribe(sub broadcast.Subscriber) broadcast.Handle
	Unsubscribe(h broadcast.Handle) bool
}

// StatsProvider reports service health and statistics.
type StatsProvider interface {
	Health() types.Health
	GetStats(ctx context.Context) (types.Stats, error)
}

// Dependencies are the components the handlers call into.
type Dependencies struct {
	Governor Admitter
	Resolver Resolver
	Live     Hub
	Stats    StatsProvider
}

// collectionRoutes maps list paths onto collections.
var collectionRoutes = []struct { //nolint:gochecknoglobals // static route table
	path       string
	collection string
	metric     string
}{
	{"/sports", model.Sports, "sports"},
	{"/leagues", model.Leagues, "leagues"},
	{"/fixtures", model.Fixtures, "fixtures"},
	{"/teams", model.Teams, "teams"},
	{"/players", model.Players, "players"},
	{"/fan-stats", model.FanStats, "fan_stats"},
}

// Server holds the HTTP handlers.
type Server struct {
	deps        Dependencies
	keyFunc     httprate.KeyFunc
	corsOrigins []string
	outboxSize  int
	upgrader    websocket.Upgrader
	logger      logger.Logger
}

// NewServer creates a Server. Client identity defaults to the peer address.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:        deps,
		keyFunc:     httprate.KeyByIP,
		corsOrigins: []string{"*"},
		outboxSize:  defaultOutboxSize,
		logger:      logger.Nop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The stream is public and read-only.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the router. /healthz and /metrics bypass the rate gate.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Fallback-Data", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/healthz", MetricsMiddleware(s.handleHealth, "healthz"))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(RateGate(s.deps.Governor, s.keyFunc))

		r.Get("/", MetricsMiddleware(s.handleWelcome, "root"))
		r.Get("/docs", MetricsMiddleware(s.handleDocs, "docs"))
		swagger.Register(r)

		for _, cr := range collectionRoutes {
			r.Get(cr.path, MetricsMiddleware(s.listHandler(cr.collection), cr.metric))
		}
		r.Get("/fixtures/{id}", MetricsMiddleware(s.handleFixture, "fixture"))
		r.Post("/fan-stats", MetricsMiddleware(s.handleSubmitFanStat, "fan_stats"))

		r.Get("/live", s.handleLive)
		r.Get("/dashboard", MetricsMiddleware(handleDashboard, "dashboard"))
		r.Get("/stats", MetricsMiddleware(s.handleStats, "stats"))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}

// writeQueryError maps resolver errors onto status codes.
func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *query.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, query.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, query.ErrReadOnly), errors.Is(err, query.ErrUnknownCollection):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		// Client went away; nothing to write.
	default:
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("requestID", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
		metrics.RecordErrorByComponent("api", "store_unavailable")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
