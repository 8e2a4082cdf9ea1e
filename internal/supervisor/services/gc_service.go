// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package services

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/aural/internal/metrics"
)

// GarbageCollector is the slice of the storage layer the GC service
// needs.
type GarbageCollector interface {
	// RunGC runs one round of value log garbage collection. Returns
	// badger.ErrNoRewrite when there was nothing to collect.
	RunGC(discardRatio float64) error
}

// GCServiceConfig holds configuration for the storage GC service.
type GCServiceConfig struct {
	// Interval is how often to run a GC round. Default: 10m.
	Interval time.Duration

	// DiscardRatio is the minimum fraction of discardable data required
	// to rewrite a value log file. Default: 0.5.
	DiscardRatio float64
}

// GCService periodically reclaims Badger value log space. Badger does
// not run value log GC on its own; without this service the event log's
// disk footprint only grows.
type GCService struct {
	store  GarbageCollector
	config GCServiceConfig
	logger zerolog.Logger
	name   string
}

// NewGCService creates a new storage GC service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewGCService(store GarbageCollector, cfg GCServiceConfig, logger zerolog.Logger) *GCService {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.DiscardRatio <= 0 || cfg.DiscardRatio > 1 {
		cfg.DiscardRatio = 0.5
	}
	return &GCService{
		store:  store,
		config: cfg,
		logger: logger.With().Str("service", "storage_gc").Logger(),
		name:   "storage-gc",
	}
}

// Serve implements the suture.Service interface.
func (s *GCService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.config.Interval).
		Float64("discard_ratio", s.config.DiscardRatio).
		Msg("storage gc starting")

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("storage gc shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.collect()
		}
	}
}

// collect runs GC rounds until badger reports nothing left to rewrite.
func (s *GCService) collect() {
	rounds := 0
	for {
		err := s.store.RunGC(s.config.DiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("value log gc failed")
			return
		}
		metrics.StorageGCRounds.Inc()
		rounds++
	}
	if rounds > 0 {
		s.logger.Debug().Int("rounds", rounds).Msg("value log gc complete")
	}
}

// String returns the service name for logging.
func (s *GCService) String() string {
	return s.name
}
