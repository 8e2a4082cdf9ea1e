// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package recommend

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Deps collects the external collaborators the core consumes. All fields
// are required except Catalog, which only radio generation needs.
type Deps struct {
	Features FeatureStore
	Users    UserStore
	Catalog  Catalog
	Training TrainingLog
	Models   ModelStorage
}

func (d *Deps) validate() error {
	switch {
	case d.Features == nil:
		return fmt.Errorf("feature store is required")
	case d.Users == nil:
		return fmt.Errorf("user store is required")
	case d.Training == nil:
		return fmt.Errorf("training log is required")
	case d.Models == nil:
		return fmt.Errorf("model storage is required")
	}
	return nil
}

// Core is the host-facing surface of the recommendation engine. It wires
// the scorer, classifier, trainer, and radio generator together over one
// set of collaborators and one configuration.
type Core struct {
	cfg        *Config
	classifier *Classifier
	scorer     *Scorer
	trainer    *Trainer
	radio      *Generator
	logger     zerolog.Logger
}

// New creates and initializes a core. The classifier restores its
// persisted model if one exists; a missing model leaves it untrained and
// scoring purely rule-based until the first training run.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(ctx context.Context, cfg *Config, deps Deps, logger zerolog.Logger) (*Core, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := deps.validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}

	log := logger.With().Str("component", "recommend").Logger()

	classifier := NewClassifier(cfg, deps.Models, log)
	if err := classifier.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize classifier: %w", err)
	}

	scorer := NewScorer(cfg, classifier, deps.Features, deps.Users, log)
	core := &Core{
		cfg:        cfg,
		classifier: classifier,
		scorer:     scorer,
		trainer:    NewTrainer(cfg, classifier, deps.Training, deps.Features, log),
		logger:     log,
	}
	if deps.Catalog != nil {
		core.radio = NewGenerator(cfg, scorer, deps.Catalog, log)
	}
	return core, nil
}

// Score computes the blended score for one track. Pass nil features to
// have the core fetch them.
func (c *Core) Score(ctx context.Context, track Track, feats *AggregatedFeatures, sctx ScoringContext) (*TrackScore, error) {
	return c.scorer.Score(ctx, track, feats, sctx)
}

// ScoreBatch scores tracks concurrently, preserving input order.
func (c *Core) ScoreBatch(ctx context.Context, tracks []Track, sctx ScoringContext) ([]*TrackScore, error) {
	return c.scorer.ScoreBatch(ctx, tracks, sctx)
}

// RankCandidates scores and sorts tracks by final score descending.
func (c *Core) RankCandidates(ctx context.Context, tracks []Track, sctx ScoringContext) ([]*TrackScore, error) {
	return c.scorer.RankCandidates(ctx, tracks, sctx)
}

// Train runs a training cycle from the training log's event history.
// Failures, including a run already in progress, are reported in the
// result rather than as an error.
func (c *Core) Train(ctx context.Context) (*TrainingResult, error) {
	return c.trainer.Train(ctx)
}

// TrainDataset runs a training cycle with a caller-supplied dataset.
func (c *Core) TrainDataset(ctx context.Context, dataset *TrainingDataset) (*TrainingResult, error) {
	return c.trainer.TrainDataset(ctx, dataset)
}

// GetTrainingStatus returns the trainer's current status snapshot.
func (c *Core) GetTrainingStatus() TrainingStatus {
	return c.trainer.Status()
}

// NeedsTraining reports whether a training run is warranted.
func (c *Core) NeedsTraining(ctx context.Context) (bool, error) {
	return c.trainer.NeedsTraining(ctx)
}

// GenerateRadio produces the next batch of radio tracks for a seed.
func (c *Core) GenerateRadio(ctx context.Context, seed RadioSeed, count int, sctx ScoringContext) ([]Track, error) {
	if c.radio == nil {
		return nil, fmt.Errorf("%w: no catalog configured", ErrProviderUnavailable)
	}
	return c.radio.Generate(ctx, seed, count, sctx)
}

// ResetRadioSession discards a seed's session state.
func (c *Core) ResetRadioSession(seed RadioSeed) {
	if c.radio != nil {
		c.radio.ResetSession(seed)
	}
}

// ExplainScore returns the explanation of the most recent cached score
// for a track, or ErrNoRecentScore if none is cached.
func (c *Core) ExplainScore(trackID string) ([]string, error) {
	return c.scorer.Explain(trackID)
}

// OnUserEvent feeds a feedback event into the core. Explicit feedback
// invalidates the cached preference snapshot; recording the event for
// training is the host's training log responsibility.
func (c *Core) OnUserEvent(event UserEvent) {
	c.scorer.HandleEvent(event)
}

// ModelInfo describes the current classifier model.
func (c *Core) ModelInfo() ModelInfo {
	return c.classifier.ModelInfo()
}

// Close releases the classifier's in-memory model. The core must not be
// used after Close.
func (c *Core) Close(ctx context.Context) error {
	return c.classifier.Dispose(ctx)
}
