// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects the store, service, handlers,
// middleware and routes, and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on every request
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it testable (tests build a Server
// on the in-memory store and drive Handler() with httptest) and keeps main.go down
// to "load config, start the server".
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → OpenStore(STORE_URL) → SnippetService → SnippetHandler → routes
//
// This is the "composition root" pattern: all dependencies are wired in one place
// (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/code-capsule/internal/config"
	"github.com/sakif/code-capsule/internal/handler"
	"github.com/sakif/code-capsule/internal/middleware"
	"github.com/sakif/code-capsule/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store connection. It is closed in Close(), which Start()
// defers, so pending writes are flushed and file locks released on shutdown.
type Server struct {
	router   *chi.Mux
	config   *config.Config
	logger   *slog.Logger
	store    *Store
	registry *prometheus.Registry
}

// New opens the store named by cfg.StoreURL and wires every route.
//
// Each layer only receives what it needs:
// - Service gets the repository interface (not the concrete store)
// - Handler gets the service (not the repository)
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := OpenStore(ctx, cfg.StoreURL, cfg.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	// A private registry, not prometheus.DefaultRegisterer: two Servers in one
	// process (tests) would otherwise panic on duplicate registration.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		registry: registry,
	}
	s.setupRoutes()

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// POST   /code        → create snippet
// GET    /code        → list snippets (?tags=a,b filters, OR semantics)
// PATCH  /code        → partial update
// DELETE /code?id=    → delete snippet
// PATCH  /tags        → add/remove tags
// GET    /healthz     → liveness + store ping
// GET    /metrics     → Prometheus exposition
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (the logger prints it)
// 2. RealIP: extracts the client IP from proxy headers
// 3. Recoverer: catches panics and returns 500 instead of crashing
// 4. Logger: logs each request with timing info
// 5. CORS: answers preflights before they reach the router
// 6. Metrics: counts requests per route pattern
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)

	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.CORS(s.config.CORSOrigins))
	s.router.Use(middleware.NewMetrics(s.registry).Handler)

	snippetService := service.NewSnippetService(s.store.Repo, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)

	s.router.Post("/code", snippetHandler.HandleCreate)
	s.router.Get("/code", snippetHandler.HandleList)
	s.router.Patch("/code", snippetHandler.HandleUpdate)
	s.router.Delete("/code", snippetHandler.HandleDelete)
	s.router.Patch("/tags", snippetHandler.HandleUpdateTags)

	var ping handler.Pinger
	if s.store.Ping != nil {
		ping = pinger(s.store.Ping)
	}
	healthHandler := handler.NewHealthHandler(ping, s.logger)
	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (SHUTDOWN_TIMEOUT)
// 3. Close the store (flushes the SQLite WAL, drains the pgx pool, disconnects Mongo)
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("store", s.store.Kind),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
