// Package server provides the HTTP API for diachron.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/diachron/internal/comparison"
	"github.com/hyperjump/diachron/internal/config"
	"github.com/hyperjump/diachron/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server is the HTTP server for the diachron API.
type Server struct {
	engine  *comparison.Engine
	config  *config.ServerConfig
	limits  models.Limits
	metrics *Metrics
	drift   *rate.Limiter
	logger  *zap.Logger
	server  *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics shares a metrics instance, for example with the aligner observer.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *comparison.Engine,
	cfg *config.ServerConfig,
	limits models.Limits,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine: engine,
		config: cfg,
		limits: limits,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	limit := rate.Inf
	if cfg.DriftRatePerSecond > 0 {
		limit = rate.Limit(cfg.DriftRatePerSecond)
	}
	s.drift = rate.NewLimiter(limit, max(cfg.DriftBurst, 1))
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	m := s.metrics
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/synonyms", m.instrument("synonyms", s.handleSynonyms))
		r.Post("/similarity", m.instrument("similarity", s.handleSimilarity))
		r.With(s.rateLimit).Post("/drift", m.instrument("drift", s.handleDrift))
		r.Get("/drift", m.instrument("drift_list", s.handleListDrift))
		r.Get("/drift/{id}", m.instrument("drift_get", s.handleGetDrift))
		r.Get("/periods", m.instrument("periods", s.handlePeriods))
		r.Get("/status", m.instrument("status", s.handleStatus))
	})
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.drift.Allow() {
			s.metrics.rejected.Inc()
			w.Header().Set("Retry-After", "1")
			s.respondError(w, http.StatusTooManyRequests, "too many drift requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
