package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"contracts/internal/auth"
	"contracts/internal/cache"
	"contracts/internal/cli"
	apphttp "contracts/internal/http"
	applog "contracts/internal/log"
)

func main() {
	bootLogger := cli.SetupLogger(os.Stdout, "info", "text")
	if err := cli.LoadEnvFile(); err != nil {
		cli.Exit(bootLogger, "Failed to load .env file", err)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Exit(bootLogger, "Invalid configuration", err)
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	svc, closeSource, err := cli.NewReportService(context.Background(), cfg, logger)
	if err != nil {
		cli.Exit(logger, "Failed to initialize contracts source", err)
	}
	defer closeSource()

	sessions := auth.NewSessions(0, cfg.SessionTTL)

	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	cacheManager.Register("dataset", svc.Cache())
	cacheManager.Register("sessions", sessions.Cache())
	if err := cacheManager.StartCleanup(cfg.CacheSweepSchedule); err != nil {
		cli.Exit(logger, "Failed to schedule cache cleanup", err)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:                 logger,
		Authenticator:          auth.NewStaticPassphrase(cfg.Passphrase),
		Sessions:               sessions,
		LoginAttemptsPerMinute: cfg.LoginAttemptsPerMinute,
		TrustedProxies:         cfg.TrustedProxies,
		CacheManager:           cacheManager,
	})
	if err != nil {
		cli.Exit(logger, "Failed to create HTTP server", err)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, srv.Shutdown)

	// Warm the dataset so the first page does not wait on the download.
	go func() {
		if _, err := svc.Dataset(ctx); err != nil {
			logger.Warn("Initial dataset load failed", applog.FieldError, err, "source", svc.Source())
		}
	}()

	logger.Info("Starting contracts server",
		"port", cfg.Port,
		"source", svc.Source(),
		"dataset_ttl", cfg.DatasetTTL.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Exit(logger, "Server error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
