package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/eshaffer321/finance-reconciler/internal/api/handlers"
	"github.com/eshaffer321/finance-reconciler/internal/api/middleware"
	"github.com/eshaffer321/finance-reconciler/internal/application/service"
	"github.com/eshaffer321/finance-reconciler/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	svc        *service.ReconciliationService
}

// NewServer creates a new API server.
// If svc is nil, a service with default profiles is built over repo.
func NewServer(cfg Config, repo storage.Repository, svc *service.ReconciliationService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if svc == nil {
		svc = service.NewReconciliationService(repo, repo, service.Options{Logger: logger})
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		logger: logger,
		repo:   repo,
		svc:    svc,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.Recoverer)

	// CORS
	corsConfig := middleware.DefaultCORSConfig()
	if len(s.config.AllowedOrigins) > 0 {
		corsConfig.AllowedOrigins = s.config.AllowedOrigins
	}
	s.router.Use(middleware.CORS(corsConfig))

	// Request logging
	s.router.Use(middleware.Logging(s.logger))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check (no /api prefix - for load balancers)
	healthHandler := handlers.NewHealthHandler(s.repo)
	s.router.Get("/health", healthHandler.ServeHTTP)

	s.router.Route("/api", func(r chi.Router) {
		// Transactions
		transactionsHandler := handlers.NewTransactionsHandler(s.repo, s.svc)
		r.Get("/transactions", transactionsHandler.List)
		r.Get("/transactions/{id}/history", transactionsHandler.History)

		// Candidate scans and match application
		reconcileHandler := handlers.NewReconcileHandler(s.repo, s.svc)
		r.Get("/reconcile/summary", reconcileHandler.Summary)
		r.Route("/reconcile/{flavor}", func(r chi.Router) {
			r.Get("/candidates", reconcileHandler.Candidates)
			r.Post("/apply", reconcileHandler.Apply)
			r.Post("/auto", reconcileHandler.Auto)
		})

		// Match ledger
		matchesHandler := handlers.NewMatchesHandler(s.repo, s.svc)
		r.Get("/matches", matchesHandler.List)
		r.Get("/matches/{id}", matchesHandler.Get)
		r.Delete("/matches/{id}", matchesHandler.Unmatch)
	})
}

// Start starts the HTTP server and blocks until it is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}
