package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetconv/internal/cache"
	"budgetconv/internal/cli"
	apphttp "budgetconv/internal/http"
	applog "budgetconv/internal/log"
	"budgetconv/internal/services"
	"budgetconv/internal/workbook"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	sheets := cli.InitBackend(context.Background(), logger, cfg)
	defer sheets.Close()

	conv := services.NewConversionService(sheets.Source(), sheets.Sink(), logger)

	artifacts := cache.NewArtifactStore(cfg.ArtifactCacheSize, cfg.ArtifactTTL)
	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	caches.Register(artifacts)
	caches.StartCleanup(time.Minute)

	format, _ := workbook.ParseFormat(cfg.OutputFormat)
	srv := apphttp.NewServer(apphttp.Options{
		Addr:               cfg.Addr(),
		MaxUploadBytes:     cfg.MaxUploadBytes,
		DefaultFormat:      format,
		KeepSuffix:         cfg.KeepSuffix,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SheetsEnabled:      sheets.Source() != nil,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	}, conv, artifacts)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
	})

	logger.Info("Starting budgetconv server",
		"port", cfg.Port,
		"sheets_backend", cfg.SheetsBackend,
		"default_format", format)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
