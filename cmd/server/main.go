// Package main is the entry point for the date-poll server.
//
// main's job is deliberately small:
//  1. Read configuration from the environment
//  2. Create the logger
//  3. Hand both to internal/server and start
//
// All actual logic lives in imported packages. The cmd/ directory is the Go
// convention for executable entry points; a second binary (say, cmd/hashkey
// for provisioning the coordinator key) would get its own directory.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sakif/datepoll/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// PORT, defaulting to 8080.
	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	// DB_PATH overrides the default database location.
	// Example: DB_PATH=/var/lib/datepoll/votes.db
	dbPath := "data/votes.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}

	// Ensure the data directory exists (like `mkdir -p`).
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// JWT_SECRET signs voter tokens and is required. Use:
	//   JWT_SECRET=$(openssl rand -hex 32)
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET not set — voters cannot be identified without it")
		os.Exit(1)
	}

	// COORDINATOR_ID names the single identity allowed to read reports;
	// COORDINATOR_KEY_HASH optionally allows header access with the shared
	// key (store only the bcrypt hash, never the key).
	coordinatorID := os.Getenv("COORDINATOR_ID")
	if coordinatorID == "" {
		logger.Warn("COORDINATOR_ID not set — report routes will refuse everyone without the key header")
	}
	coordinatorKeyHash := os.Getenv("COORDINATOR_KEY_HASH")

	// NOTIFY_WEBHOOK_URL receives finalize confirmations; unset means
	// confirmations only appear in the log.
	notifyWebhookURL := os.Getenv("NOTIFY_WEBHOOK_URL")

	// GitHub OAuth is optional — login routes appear only when configured.
	githubClientID := os.Getenv("GITHUB_CLIENT_ID")
	githubClientSecret := os.Getenv("GITHUB_CLIENT_SECRET")
	githubCallbackURL := os.Getenv("GITHUB_CALLBACK_URL")
	if githubCallbackURL == "" {
		githubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", port)
	}

	cfg := server.Config{
		Port:               port,
		DBPath:             dbPath,
		JWTSecret:          jwtSecret,
		CoordinatorID:      coordinatorID,
		CoordinatorKeyHash: coordinatorKeyHash,
		NotifyWebhookURL:   notifyWebhookURL,
		GitHubClientID:     githubClientID,
		GitHubClientSecret: githubClientSecret,
		GitHubCallbackURL:  githubCallbackURL,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until shutdown (Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
