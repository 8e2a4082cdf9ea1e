// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package recommend

import "errors"

// Error taxonomy for the scoring core. Training-phase conditions
// (ErrModelNotReady, ErrTrainingInProgress, ErrInsufficientData) are
// reported inside TrainingResult.Error rather than returned, so callers
// always receive partial metrics. ErrNoRecentScore propagates as a hard
// failure because it indicates caller misuse: a track must be scored
// before it can be explained.
var (
	// ErrModelNotReady means the classifier has no initialized model.
	ErrModelNotReady = errors.New("model not initialized")

	// ErrTrainingInProgress means another training run holds the guard.
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrInsufficientData means the dataset is below the sample floor.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrNoRecentScore means Explain was called for a track with no score
	// in the bounded result cache.
	ErrNoRecentScore = errors.New("no recent score for track")

	// ErrProviderUnavailable means a feature or candidate provider call
	// failed. Callers degrade gracefully: a missing feature bundle omits
	// dependent components, a failed candidate source shrinks the pool.
	ErrProviderUnavailable = errors.New("provider unavailable")
)
