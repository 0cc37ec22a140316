// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — the composition root where the whole
// dependency chain is assembled in one place:
//
//	sqlite.DB → PollService / ReportService → handlers → routes
//
// Keeping it out of main.go makes the server testable (tests can build one
// without running main) and keeps main minimal.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/datepoll/internal/auth"
	"github.com/sakif/datepoll/internal/handler"
	"github.com/sakif/datepoll/internal/middleware"
	"github.com/sakif/datepoll/internal/notify"
	sqliteRepo "github.com/sakif/datepoll/internal/repository/sqlite"
	"github.com/sakif/datepoll/internal/service"
)

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port   int
	DBPath string

	// JWTSecret signs voter tokens. Required — without an identity there is
	// no poll.
	JWTSecret string

	// CoordinatorID is the user id of the single fixed coordinator.
	// CoordinatorKeyHash is the optional bcrypt hash of the shared report
	// key (empty disables header access to the reports).
	CoordinatorID      string
	CoordinatorKeyHash string

	// NotifyWebhookURL receives finalize confirmations. Empty means
	// confirmations only go to the log.
	NotifyWebhookURL string

	// GitHub OAuth login is enabled only when the client id is set.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the database connection; the connection is
// closed during graceful shutdown to flush the WAL and release the file lock.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server and wires the entire dependency graph.
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services — nothing skips a layer.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware, builds the services, and mounts routes.
//
// MIDDLEWARE ORDER MATTERS — it executes in the order added:
//  1. RequestID — unique id per request, for tracing
//  2. RealIP — real client IP from proxy headers
//  3. Recoverer — panics become 500s instead of crashes
//  4. Logger — structured request log
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// The Notifier hook: webhook when configured, otherwise log-only.
	var notifier notify.Notifier = notify.NewLogNotifier(s.logger)
	if s.config.NotifyWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(s.config.NotifyWebhookURL, nil)
	}

	// Services share the one SQLite store; *sqliteRepo.DB satisfies both
	// repository interfaces.
	pollService := service.NewPollService(s.db, s.db, notifier, s.logger)
	reportService := service.NewReportService(s.db, s.logger)

	pollHandler := handler.NewPollHandler(pollService, s.logger)
	reportHandler := handler.NewReportHandler(reportService, s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}
	authHandler := handler.NewAuthHandler(github, tokens, s.db, s.logger)

	// === Identity routes ===
	s.router.Post("/auth/token", authHandler.HandleToken)
	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	// === Voter routes ===
	s.router.Route("/api/poll", func(r chi.Router) {
		r.Use(auth.RequireVoter(tokens))
		r.Post("/start", pollHandler.HandleStart)
		r.Post("/toggle", pollHandler.HandleToggle)
		r.Get("/page", pollHandler.HandlePage)
		r.Post("/done", pollHandler.HandleDone)
		r.Post("/reset", pollHandler.HandleReset)
		r.Get("/status", pollHandler.HandleStatus)
	})

	// === Coordinator routes ===
	// The gate answers 404 to anyone but the coordinator; the report
	// endpoints are invisible to ordinary voters.
	gate := auth.NewCoordinatorGate(
		s.config.CoordinatorID,
		s.config.CoordinatorKeyHash,
		tokens,
		s.logger,
	)
	s.router.Route("/api/reports", func(r chi.Router) {
		r.Use(gate.Require)
		r.Get("/votes", reportHandler.HandleVotes)
		r.Get("/results", reportHandler.HandleResults)
		r.Get("/results.csv", reportHandler.HandleResultsCSV)
		r.Get("/not-voted", reportHandler.HandleNotVoted)
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown:
//  1. Stop accepting new connections
//  2. Wait for in-flight requests (30s timeout)
//  3. Close the database connection
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
