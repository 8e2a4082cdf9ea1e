// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

// Package main is the entry point for the Aural server.
//
// Aural is the recommendation core of a personal music application. The
// server wraps the scoring engine in an HTTP API and supervises the
// background work around it:
//
//  1. Configuration: layered defaults + YAML file + AURAL_* environment
//     variables (Koanf v2)
//  2. Storage: embedded Badger database for the model store and the
//     feedback event log
//  3. Library: optional JSON snapshot of tracks, features, and user
//     state exported by the music player
//  4. Core: the hybrid scorer, preference classifier, trainer, and
//     radio generator
//  5. Supervision: a suture tree with data (storage GC), engine
//     (training scheduler), and api (HTTP server) layers
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (AURAL_SERVER_PORT, AURAL_STORAGE_PATH, ...)
//   - Config file (-config flag, AURAL_CONFIG, or config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the HTTP
// server drains in-flight requests, the training scheduler finishes or
// aborts its round, and the database closes cleanly.
//
// # Example Usage
//
//	export AURAL_STORAGE_PATH=/data/aural
//	export AURAL_LIBRARY_PATH=/data/aural/library.json
//	./aural
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/aural/internal/api"
	"github.com/tomtom215/aural/internal/config"
	"github.com/tomtom215/aural/internal/library"
	"github.com/tomtom215/aural/internal/logging"
	"github.com/tomtom215/aural/internal/recommend"
	"github.com/tomtom215/aural/internal/storage"
	"github.com/tomtom215/aural/internal/supervisor"
	"github.com/tomtom215/aural/internal/supervisor/services"
)

func main() {
	configPath := flag.String("config", "", "path to config file (overrides search paths)")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.Logger()

	logging.Info().
		Str("storage_path", cfg.Storage.Path).
		Str("library_path", cfg.Library.Path).
		Msg("Starting Aural")

	store, err := storage.Open(cfg.Storage.Path, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()

	// The library serves the feature, user, and catalog collaborators.
	// Without a snapshot the server still scores (rule components that
	// need features simply drop out) but radio has no candidate pool.
	var lib *library.Library
	if cfg.Library.Path != "" {
		lib, err = library.Load(cfg.Library.Path, logger)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to load library snapshot")
		}
	} else {
		logging.Warn().Msg("No library snapshot configured - scoring will run without features")
		lib = library.New(&library.Snapshot{}, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := recommend.Deps{
		Features: storage.NewBreakerFeatureStore(lib, logger),
		Users:    lib,
		Catalog:  lib,
		Training: store.TrainingLog(),
		Models:   store.Models(),
	}

	core, err := recommend.New(ctx, cfg.ToEngineConfig(), deps, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize recommendation core")
	}

	handler := api.NewHandler(core, &eventSink{log: store.TrainingLog(), lib: lib}, logger)
	router := api.NewRouter(handler, api.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		RateLimitRequests:  cfg.Server.RateLimit,
		RateLimitDisabled:  cfg.Server.RateLimitDisabled,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Supervisor tree: zerolog is bridged to slog for sutureslog.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Value log GC only applies to on-disk databases.
	if cfg.Storage.Path != "" {
		tree.AddDataService(services.NewGCService(store, services.GCServiceConfig{
			Interval:     cfg.Storage.GCInterval,
			DiscardRatio: cfg.Storage.GCDiscardRatio,
		}, logger))
	}

	tree.AddEngineService(services.NewTrainingService(core, services.TrainingServiceConfig{
		CheckInterval:  cfg.Training.CheckInterval,
		TrainTimeout:   cfg.Training.TrainTimeout,
		TrainOnStartup: cfg.Training.TrainOnStartup,
	}, logger))

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	// Persist classifier state before the storage handle closes.
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()
	if err := core.Close(closeCtx); err != nil {
		logging.Error().Err(err).Msg("Error closing recommendation core")
	}

	logging.Info().Msg("Aural stopped gracefully")
}

// eventSink fans a feedback event out to the durable training log and
// the in-memory library state.
type eventSink struct {
	log *storage.TrainingLog
	lib *library.Library
}

func (s *eventSink) RecordEvent(ctx context.Context, event recommend.UserEvent) error {
	if err := s.log.RecordEvent(ctx, event); err != nil {
		return err
	}
	s.lib.Apply(event)
	return nil
}

func (s *eventSink) NewEventCount(ctx context.Context) (int, error) {
	return s.log.NewEventCount(ctx)
}
