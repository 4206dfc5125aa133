// Package cli provides common CLI initialization utilities shared by
// cmd/txdash, cmd/txdash-worker and cmd/txdash-import.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"txdash/internal/config"
	"txdash/internal/dashboard"
	"txdash/internal/log"
	"txdash/internal/normalize"
	"txdash/internal/storage"
)

// SetupLogger initializes structured logging from LOG_LEVEL and LOG_FORMAT
// (text or json) and sets it as the default logger. Unknown levels fall back
// to info with a warning.
func SetupLogger(level, format string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentApp,
		Writer:    os.Stdout,
		JSON:      strings.EqualFold(strings.TrimSpace(format), "json"),
	})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Invalid log level, using info", log.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// NewNormalizer builds the normalizer for the configured time buckets.
func NewNormalizer(cfg *config.Config) *normalize.Normalizer {
	return normalize.New(normalize.Options{Intervals: cfg.TimeBuckets})
}

// BuildDashboards registers the fraud and approval dashboards with the
// configured amount buckets. Both default to the smallest time bucket.
func BuildDashboards(cfg *config.Config) (*dashboard.Registry, error) {
	interval := 10 * time.Minute
	if iv := NewNormalizer(cfg).Intervals(); len(iv) > 0 {
		interval = iv[0]
	}
	reg, err := dashboard.NewRegistry(
		dashboard.FraudVariant(cfg.FraudAmountBucket, interval),
		dashboard.ApprovalVariant(cfg.ApprovalAmountBucket, interval),
	)
	if err != nil {
		return nil, fmt.Errorf("build dashboards: %w", err)
	}
	return reg, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs before cancellation and gets at most timeout to finish.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		}
		cancel()
	}()

	return ctx
}
