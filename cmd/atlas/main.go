package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-atlas/internal/adapter/archive"
	"github.com/couchcryptid/hazard-atlas/internal/adapter/eonet"
	"github.com/couchcryptid/hazard-atlas/internal/adapter/feed"
	"github.com/couchcryptid/hazard-atlas/internal/adapter/firms"
	"github.com/couchcryptid/hazard-atlas/internal/adapter/httpadapter"
	"github.com/couchcryptid/hazard-atlas/internal/adapter/usgs"
	"github.com/couchcryptid/hazard-atlas/internal/config"
	"github.com/couchcryptid/hazard-atlas/internal/ingest"
	"github.com/couchcryptid/hazard-atlas/internal/observability"
	"github.com/couchcryptid/hazard-atlas/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	store, err := storage.Open(cfg.DBPath, cfg.Retention(), clock, logger, metrics)
	if err != nil {
		logger.Error("failed to open storage", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer store.Close()

	client := feed.NewClient(cfg.SourceTimeout, logger)

	sources := []ingest.Source{
		usgs.New(client, cfg.USGSFeedURL, logger),
		eonet.New(client, cfg.EONETFeedURL, logger),
	}
	if cfg.FIRMSEnabled() {
		sources = append(sources, firms.New(client, cfg.FIRMSFeedURL, cfg.FIRMSMapKey, logger))
	} else {
		logger.Info("firms source disabled, no FIRMS_MAP_KEY configured")
	}

	var archiver ingest.Archiver
	if cfg.ArchiveEnabled() {
		kafkaArchiver := archive.NewKafkaArchiver(cfg.KafkaBrokers, cfg.KafkaArchiveTopic, logger)
		defer kafkaArchiver.Close()
		archiver = kafkaArchiver
		logger.Info("raw payload archive enabled", "topic", cfg.KafkaArchiveTopic)
	}

	cache := ingest.NewCache(cfg.CacheTTL, clock)
	orchestrator := ingest.New(sources, store, archiver, cache, cfg.SourceTimeout, logger, metrics)
	scheduler := ingest.NewScheduler(orchestrator, cfg.IngestInterval, logger)

	srv := httpadapter.NewServer(cfg.HTTPAddr, orchestrator, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
