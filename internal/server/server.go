// Package server wires the service together: storage backend, event bus,
// engine initialization, job orchestration, and the HTTP surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vitalratel/resumewright-sub005/internal/api"
	"github.com/vitalratel/resumewright-sub005/internal/config"
	"github.com/vitalratel/resumewright-sub005/internal/core/checkpoint"
	"github.com/vitalratel/resumewright-sub005/internal/core/engine"
	"github.com/vitalratel/resumewright-sub005/internal/core/engine/render"
	"github.com/vitalratel/resumewright-sub005/internal/core/event"
	"github.com/vitalratel/resumewright-sub005/internal/core/job"
	"github.com/vitalratel/resumewright-sub005/internal/core/progress"
	"github.com/vitalratel/resumewright-sub005/internal/storage"
	"github.com/vitalratel/resumewright-sub005/internal/storage/postgres"
	"github.com/vitalratel/resumewright-sub005/internal/storage/sqlite"
)

func Run(ctx context.Context, cfg *config.Config) error {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Debug().Str("level", cfg.Logging.Level).Msg("log level configured")

	backend, closeBackend, err := OpenBackend(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage backend: %w", err)
	}
	defer closeBackend()

	bus := event.NewBus()
	notifier := progress.NewNotifier(bus)
	checkpoints := checkpoint.NewStore(backend)

	// Startup orphan scan: report work lost to the previous process before
	// accepting new work.
	scanner := checkpoint.NewScanner(checkpoints, cfg.Jobs.FreshnessThreshold)
	scanner.GC = cfg.Jobs.GCStale
	report := scanner.Scan(ctx)
	if len(report.Orphans) > 0 {
		log.Warn().Int("orphans", len(report.Orphans)).Int("stale", report.Stale).Msg("found checkpoints from interrupted conversions")
	}

	renderEngine := render.New(cfg.Engine.Binary)
	initializer := engine.NewInitializer(renderEngine, backend, bus, engine.LogIndicator{})
	if err := initializer.Initialize(ctx); err != nil {
		// The server still comes up so the engine can be retried over HTTP.
		log.Error().Err(err).Msg("engine initialization failed, conversions will be rejected until retried")
	}

	orchestrator := job.NewOrchestrator(renderEngine, checkpoints, notifier, bus)
	orchestrator.KeepRawInput = cfg.Jobs.KeepRawInput

	e := echo.New()
	e.HideBanner = true

	api.SetupRouter(e, api.RouterConfig{
		Handler: &api.Handler{
			Orchestrator: orchestrator,
			Checkpoints:  checkpoints,
			Notifier:     notifier,
			Initializer:  initializer,
		},
		Bus: bus,
	})

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info().Str("addr", addr).Msg("HTTP server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	return nil
}

// OpenBackend builds the configured key-value backend. The returned close
// func is a no-op for the memory backend.
func OpenBackend(ctx context.Context, cfg config.StorageConfig) (storage.Backend, func(), error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemory(), func() {}, nil
	case "sqlite":
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "postgres":
		store, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxConnections)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
