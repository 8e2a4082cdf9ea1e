// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/aural/internal/metrics"
	"github.com/tomtom215/aural/internal/recommend"
)

// TrainingEngine is the slice of the recommendation core the scheduler
// needs. Defined here so the service does not depend on the concrete
// core type.
type TrainingEngine interface {
	// NeedsTraining reports whether a retraining round is due.
	NeedsTraining(ctx context.Context) (bool, error)

	// Train runs one training round. Failures are reported inside the
	// result; the error return covers rejection and dataset access.
	Train(ctx context.Context) (*recommend.TrainingResult, error)
}

// TrainingServiceConfig holds configuration for the training scheduler.
type TrainingServiceConfig struct {
	// CheckInterval is how often to poll NeedsTraining. Default: 15m.
	CheckInterval time.Duration

	// TrainTimeout bounds a single training round. Default: 30m.
	TrainTimeout time.Duration

	// TrainOnStartup runs an immediate check when the service starts.
	TrainOnStartup bool
}

// TrainingService polls the core's training trigger on a ticker and runs
// training rounds when due. It is supervised by the engine layer; a
// panic in a round restarts the scheduler without touching the scoring
// path.
type TrainingService struct {
	engine TrainingEngine
	config TrainingServiceConfig
	logger zerolog.Logger
	name   string
}

// NewTrainingService creates a new training scheduler service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainingService(engine TrainingEngine, cfg TrainingServiceConfig, logger zerolog.Logger) *TrainingService {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 15 * time.Minute
	}
	if cfg.TrainTimeout <= 0 {
		cfg.TrainTimeout = 30 * time.Minute
	}
	return &TrainingService{
		engine: engine,
		config: cfg,
		logger: logger.With().Str("service", "training").Logger(),
		name:   "training-scheduler",
	}
}

// Serve implements the suture.Service interface. It runs the check loop
// until the context is canceled.
func (s *TrainingService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("check_interval", s.config.CheckInterval).
		Bool("train_on_startup", s.config.TrainOnStartup).
		Msg("training scheduler starting")

	if s.config.TrainOnStartup {
		s.check(ctx)
	}

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("training scheduler shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.check(ctx)
		}
	}
}

// check polls the training trigger and runs a round if due. Errors are
// logged and absorbed so a flaky provider does not crash the scheduler.
func (s *TrainingService) check(ctx context.Context) {
	due, err := s.engine.NeedsTraining(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("training trigger check failed")
		return
	}
	if !due {
		s.logger.Debug().Msg("training not due")
		return
	}

	trainCtx, cancel := context.WithTimeout(ctx, s.config.TrainTimeout)
	defer cancel()

	start := time.Now()
	s.logger.Info().Msg("starting training round")

	result, err := s.engine.Train(trainCtx)
	if err != nil {
		metrics.RecordTraining("rejected", time.Since(start))
		s.logger.Warn().Err(err).Msg("training round rejected")
		return
	}
	if !result.Success {
		metrics.RecordTraining("failure", time.Since(start))
		s.logger.Warn().
			Str("reason", result.Error).
			Dur("duration", time.Since(start)).
			Msg("training round failed")
		return
	}

	metrics.RecordTraining("success", result.Duration)
	metrics.RecordModel(result.Model.Version, result.Metrics.Accuracy)
	s.logger.Info().
		Int("version", result.Model.Version).
		Float64("accuracy", result.Metrics.Accuracy).
		Dur("duration", time.Since(start)).
		Msg("training round complete")
}

// String returns the service name for logging.
func (s *TrainingService) String() string {
	return s.name
}
