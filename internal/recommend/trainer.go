// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Progress band boundaries for the trainer state machine. Preparation
// covers the first tenth, fitting the middle, persistence the last tenth.
const (
	progressPreparingEnd = 0.1
	progressTrainingEnd  = 0.9
	progressComplete     = 1.0
)

// Trainer drives training runs through the preparing, training, and saving
// phases and exposes their progress. It serializes runs with a TryLock
// guard: a run arriving while one is active is rejected with a failure
// result instead of queueing behind it.
type Trainer struct {
	cfg        *Config
	classifier *Classifier
	log        TrainingLog
	features   FeatureStore
	logger     zerolog.Logger

	// running guards the whole run; statusMu only the status snapshot.
	running  sync.Mutex
	statusMu sync.RWMutex
	status   TrainingStatus
}

// NewTrainer creates a trainer around the classifier.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainer(cfg *Config, classifier *Classifier, log TrainingLog, features FeatureStore, logger zerolog.Logger) *Trainer {
	return &Trainer{
		cfg:        cfg,
		classifier: classifier,
		log:        log,
		features:   features,
		logger:     logger.With().Str("component", "trainer").Logger(),
	}
}

// Train loads the full dataset from the training log and runs a training
// cycle with it.
func (t *Trainer) Train(ctx context.Context) (*TrainingResult, error) {
	if !t.running.TryLock() {
		return t.rejectedResult(), nil
	}
	defer t.running.Unlock()

	t.setStatus(TrainerPreparing, 0, 0)

	dataset, err := t.log.FullDataset(ctx)
	if err != nil {
		result := t.failRun(fmt.Sprintf("load training dataset: %v", err))
		return result, nil
	}
	return t.run(ctx, dataset), nil
}

// TrainDataset runs a training cycle with a caller-supplied dataset,
// bypassing the training log's event history. The log is still marked
// complete on success so incremental counters reset.
func (t *Trainer) TrainDataset(ctx context.Context, dataset *TrainingDataset) (*TrainingResult, error) {
	if !t.running.TryLock() {
		return t.rejectedResult(), nil
	}
	defer t.running.Unlock()

	t.setStatus(TrainerPreparing, 0, 0)
	return t.run(ctx, dataset), nil
}

// run executes the phases against an already-locked trainer.
func (t *Trainer) run(ctx context.Context, dataset *TrainingDataset) *TrainingResult {
	enriched := t.enrich(ctx, dataset)
	t.setProgress(progressPreparingEnd, 0)

	if total := enriched.Total(); total < t.cfg.Training.MinSamples {
		return t.failRun(fmt.Sprintf("%s: %d usable samples, need %d",
			ErrInsufficientData.Error(), total, t.cfg.Training.MinSamples))
	}

	t.setStatus(TrainerTraining, progressPreparingEnd, 0)
	t.classifier.SetProgressFunc(func(epoch, total int) {
		frac := float64(epoch) / float64(total)
		t.setProgress(progressPreparingEnd+(progressTrainingEnd-progressPreparingEnd)*frac, epoch)
	})
	defer t.classifier.SetProgressFunc(nil)

	result := t.classifier.Train(ctx, enriched)
	if !result.Success {
		return t.failRunWith(&result)
	}

	t.setStatus(TrainerSaving, progressTrainingEnd, t.cfg.Training.Epochs)
	if err := t.log.MarkTrainingComplete(ctx, result.Model.Version); err != nil {
		// The model itself persisted; losing the log marker only delays
		// the incremental counter reset, so the run still succeeds.
		t.logger.Warn().Err(err).Msg("failed to mark training complete in log")
	}

	t.completeRun(&result)
	t.logger.Info().
		Int("version", result.Model.Version).
		Float64("accuracy", result.Metrics.Accuracy).
		Dur("duration", result.Duration).
		Msg("training run complete")
	return &result
}

// Status returns a copy of the current training status.
func (t *Trainer) Status() TrainingStatus {
	t.statusMu.RLock()
	defer t.statusMu.RUnlock()
	return t.status
}

// NeedsTraining reports whether a training run is warranted: enough events
// for a cold start when the model has never been trained, enough new
// events since the last run, or a model past its maximum age.
func (t *Trainer) NeedsTraining(ctx context.Context) (bool, error) {
	info, err := t.log.LastTrainingInfo(ctx)
	if err != nil {
		return false, fmt.Errorf("last training info: %w", err)
	}
	count, err := t.log.NewEventCount(ctx)
	if err != nil {
		return false, fmt.Errorf("new event count: %w", err)
	}

	if info == nil || info.Version == 0 {
		return count >= t.cfg.Training.ColdStartEvents, nil
	}
	if count >= t.cfg.Training.IncrementalEvents {
		return true, nil
	}
	return time.Since(info.TrainedAt) >= t.cfg.Training.MaxModelAge, nil
}

// enrich fills in missing feature vectors by fetching each sample's track
// features. Samples whose features cannot be resolved are dropped. The
// input dataset is never mutated.
func (t *Trainer) enrich(ctx context.Context, dataset *TrainingDataset) *TrainingDataset {
	out := &TrainingDataset{
		Positive: t.enrichClass(ctx, dataset.Positive),
		Negative: t.enrichClass(ctx, dataset.Negative),
		Partial:  t.enrichClass(ctx, dataset.Partial),
	}
	dropped := dataset.Total() - out.Total()
	if dropped > 0 {
		t.logger.Debug().Int("dropped", dropped).Msg("samples dropped during feature enrichment")
	}
	return out
}

func (t *Trainer) enrichClass(ctx context.Context, samples []TrainingSample) []TrainingSample {
	out := make([]TrainingSample, 0, len(samples))
	for _, s := range samples {
		if len(s.Features) > 0 {
			out = append(out, s)
			continue
		}
		feats, err := t.features.Get(ctx, s.TrackID)
		if err != nil || feats == nil {
			continue
		}
		s.Features = FeatureVector(feats)
		out = append(out, s)
	}
	return out
}

// rejectedResult is the failure result returned when a run is already
// active. It never touches the status, which belongs to the active run.
func (t *Trainer) rejectedResult() *TrainingResult {
	t.logger.Warn().Msg("training request rejected, run already in progress")
	return &TrainingResult{
		Success:   false,
		Model:     t.classifier.ModelInfo(),
		Timestamp: time.Now(),
		Error:     ErrTrainingInProgress.Error(),
	}
}

func (t *Trainer) setStatus(state TrainerState, progress float64, epoch int) {
	t.statusMu.Lock()
	t.status.State = state
	t.status.Progress = progress
	t.status.CurrentEpoch = epoch
	t.status.TotalEpochs = t.cfg.Training.Epochs
	t.statusMu.Unlock()
}

// setProgress advances progress without regressing it.
func (t *Trainer) setProgress(progress float64, epoch int) {
	t.statusMu.Lock()
	if progress > t.status.Progress {
		t.status.Progress = progress
	}
	if epoch > 0 {
		t.status.CurrentEpoch = epoch
	}
	t.statusMu.Unlock()
}

func (t *Trainer) failRun(reason string) *TrainingResult {
	result := &TrainingResult{
		Success:   false,
		Model:     t.classifier.ModelInfo(),
		Timestamp: time.Now(),
		Error:     reason,
	}
	return t.failRunWith(result)
}

func (t *Trainer) failRunWith(result *TrainingResult) *TrainingResult {
	t.statusMu.Lock()
	t.status.State = TrainerError
	t.status.LastResult = result
	t.statusMu.Unlock()
	t.logger.Warn().Str("reason", result.Error).Msg("training run failed")
	return result
}

func (t *Trainer) completeRun(result *TrainingResult) {
	t.statusMu.Lock()
	t.status.State = TrainerComplete
	t.status.Progress = progressComplete
	t.status.LastResult = result
	t.statusMu.Unlock()
}
