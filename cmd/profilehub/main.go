// ProfileHub - user profile and session backend
//
// This is the main entry point for the ProfileHub API server. ProfileHub
// provides:
//   - Account registration with photo upload to an S3-compatible media host
//   - Credential login issuing short-lived access and long-lived refresh JWTs
//   - Persisted single-session refresh flow via an HTTP-only cookie
//   - Role-gated profile management endpoints
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "profilehub/migrations"

	"profilehub/internal/api"
	"profilehub/internal/audit"
	"profilehub/internal/auth"
	"profilehub/internal/infrastructure/config"
	"profilehub/internal/infrastructure/database"
	"profilehub/internal/infrastructure/logging"
	"profilehub/internal/infrastructure/media"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ProfileHub",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Wire the auth layer
	users := auth.NewUserRepository(db.DB)
	tokens := auth.NewTokenService(
		cfg.Security.JWT.AccessTokenSecret,
		cfg.Security.JWT.RefreshTokenSecret,
		cfg.Security.JWT.GetAccessTokenTTL(),
		cfg.Security.JWT.GetRefreshTokenTTL(),
	)
	sessions := auth.NewSessionManager(users, tokens, log.Logger)

	// Seed the initial admin account on first boot
	if _, seedErr := auth.SeedAdmin(ctx, users, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// Connect to the media host (optional)
	var mediaStore media.Store
	if cfg.Media.Endpoint != "" {
		s3Store, mediaErr := media.NewS3Store(ctx, cfg.Media)
		if mediaErr != nil {
			return fmt.Errorf("connecting to media host: %w", mediaErr)
		}
		mediaStore = s3Store
		log.Info("media host connected",
			"endpoint", cfg.Media.Endpoint,
			"bucket", cfg.Media.Bucket,
		)
	} else {
		log.Warn("media host not configured, photo uploads disabled")
	}

	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Start the API server
	srv, err := api.New(api.Deps{
		Config:    cfg.API,
		Logger:    log,
		Users:     users,
		Sessions:  sessions,
		Tokens:    tokens,
		AuditRepo: auditRepo,
		Media:     mediaStore,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Database

	log.Info("ProfileHub stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses PROFILEHUB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PROFILEHUB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
