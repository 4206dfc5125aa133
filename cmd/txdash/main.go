package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"txdash/internal/backend"
	"txdash/internal/cli"
	apphttp "txdash/internal/http"
	"txdash/internal/log"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	ctx := context.Background()
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	dashboards, err := cli.BuildDashboards(cfg)
	if err != nil {
		logger.Error("Failed to build dashboards", log.FieldError, err)
		os.Exit(1)
	}

	loader := backend.NewDatasetLoader(result.Source, cli.NewNormalizer(cfg), logger)
	srv := apphttp.NewServer(apphttp.Config{
		Addr:       ":" + cfg.Port,
		CacheSize:  cfg.CacheSize,
		CacheTTL:   cfg.CacheTTL,
		ReadyCheck: result.Ping,
		Logger:     logger,
	}, dashboards, loader)

	shutdownCtx := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := result.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	// A failed first load leaves the API answering 503 until a reload succeeds.
	if _, err := srv.Reload(ctx); err != nil {
		logger.Error("Initial dataset load failed", log.FieldError, err, log.FieldSource, loader.SourceName())
	}
	srv.StartAutoReload(shutdownCtx, cfg.ReloadInterval)

	logger.Info("Starting txdash server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		log.FieldSource, loader.SourceName(),
		"reload_interval", cfg.ReloadInterval.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-shutdownCtx.Done()
	logger.Info("Server stopped gracefully")
}
