package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"skywatch/internal/config"
	"skywatch/internal/engine"
	"skywatch/pkg/logger"
)

// Server hosts the batch query API.
type Server struct {
	cfg    *config.Config
	engine *engine.Engine
	logger *logger.Logger
	http   *http.Server
}

// NewServer creates the HTTP server with all routes mounted.
func NewServer(cfg *config.Config, eng *engine.Engine, log *logger.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		engine: eng,
		logger: log.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/intelligence", s.handleIntelligence)
		r.Get("/traffic", s.handleTraffic)
		r.Get("/safety", s.handleSafety)
		r.Get("/anomaly-dna/{flight_id}", s.handleAnomalyDNA)
		r.Get("/trajectory/{flight_id}", s.handleTrajectory)
		r.Get("/hostile-intent/{flight_id}", s.handleHostileIntent)
		r.Get("/health", s.handleHealth)
		r.Get("/config", s.handleConfig)
	})

	s.http = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
	}

	return s
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start begins serving requests and blocks until the listener fails.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", logger.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := time.Duration(s.cfg.Server.ShutdownTimeoutSec) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
