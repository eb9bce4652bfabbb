package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/forecast-parser/internal/adapter/cache"
	"github.com/couchcryptid/forecast-parser/internal/adapter/filesystem"
	httpadapter "github.com/couchcryptid/forecast-parser/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/forecast-parser/internal/adapter/kafka"
	"github.com/couchcryptid/forecast-parser/internal/adapter/reference"
	"github.com/couchcryptid/forecast-parser/internal/config"
	"github.com/couchcryptid/forecast-parser/internal/domain"
	"github.com/couchcryptid/forecast-parser/internal/mockdata"
	"github.com/couchcryptid/forecast-parser/internal/observability"
	"github.com/couchcryptid/forecast-parser/internal/pipeline"
	"github.com/couchcryptid/forecast-parser/internal/store"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	stations, err := reference.LoadStations(cfg.GridPointPath)
	if err != nil {
		logger.Error("failed to load grid points", "error", err)
		os.Exit(1)
	}
	if len(stations) == 0 {
		logger.Error("grid point file has no stations", "path", cfg.GridPointPath)
		os.Exit(1)
	}
	lookup, err := reference.LoadParameterLookup(cfg.ParameterLookupPath)
	if err != nil {
		logger.Error("failed to load parameter lookup", "error", err)
		os.Exit(1)
	}
	logger.Info("reference tables loaded", "stations", len(stations), "parameter_labels", len(lookup))

	clock := clockwork.NewRealClock()
	resolver := cache.NewCachedResolver(domain.NewStationTable(stations), cfg.StationCacheSize, metrics)
	folder := filesystem.NewFolder(cfg.ForecastPath, cfg.FileFilter, cfg.QuarantinePath, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	latest := store.NewLatest()
	transformer := pipeline.NewTransformer(lookup, resolver)

	p := pipeline.New(folder, transformer, writer, latest, clock, cfg.ScanInterval, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, latest, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start synthetic input generation.
	if cfg.UseMockData {
		planner := mockdata.NewPlanner(cfg.TemplatePath, cfg.ForecastPath, mockdata.DefaultFamilies, clock, logger, metrics)
		go func() {
			if err := planner.Run(ctx); err != nil {
				logger.Error("mock data error", "error", err)
			}
		}()
	}

	// Start folder pipeline. A fatal pipeline error shuts the service down.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
