package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/opencare/facility-finder-service/internal/adapter/httpapi"
	kafkaadapter "github.com/opencare/facility-finder-service/internal/adapter/kafka"
	"github.com/opencare/facility-finder-service/internal/adapter/mapbox"
	"github.com/opencare/facility-finder-service/internal/adapter/registry"
	"github.com/opencare/facility-finder-service/internal/config"
	"github.com/opencare/facility-finder-service/internal/domain"
	"github.com/opencare/facility-finder-service/internal/observability"
	"github.com/opencare/facility-finder-service/internal/search"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	warmupCenter := domain.Geo{Lat: cfg.WarmupLat, Lon: cfg.WarmupLon}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, &warmupCenter, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	// Initialize audit publisher (feature-flagged via AUDIT_ENABLED).
	var publisher *kafkaadapter.Publisher
	var audit search.AuditPublisher
	if cfg.AuditEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, metrics, logger)
		audit = publisher
		logger.Info("search audit publishing enabled", "topic", cfg.KafkaAuditTopic)
	} else {
		logger.Info("search audit publishing disabled")
	}

	fetcher := registry.NewClient(cfg, metrics, logger)

	svc := search.New(fetcher, audit, search.Options{
		CacheTTL:        cfg.CacheTTL,
		CacheMaxEntries: cfg.CacheMaxEntries,
	}, metrics, logger)

	srv := httpapi.NewServer(cfg.HTTPAddr, svc, geocoder, cfg.DefaultRadiusKm, cfg.MaxRadiusKm, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Warm the cache so readiness flips without waiting for live traffic.
	go svc.WarmUp(ctx, warmupCenter)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
