// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package recommend

import (
	"context"
	"strings"
	"testing"
)

func newTestClassifier(t *testing.T, storage ModelStorage) *Classifier {
	t.Helper()
	c := NewClassifier(DefaultConfig(), storage, testLogger())
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return c
}

// --- Test: untrained behavior ---

func TestClassifier_UntrainedNeutral(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, newMockModelStorage())

	if c.IsReady() {
		t.Error("IsReady() = true for untrained classifier, want false")
	}
	if got := c.Version(); got != 0 {
		t.Errorf("Version() = %d, want 0", got)
	}
	if got := c.Confidence(); got != 0 {
		t.Errorf("Confidence() = %f, want 0", got)
	}
	if got := c.MLWeight(); got != 0 {
		t.Errorf("MLWeight() = %f for untrained classifier, want 0", got)
	}

	vec := make([]float64, featureVectorSize)
	if got := c.PredictSingle(vec); got != 0.5 {
		t.Errorf("PredictSingle() = %f for untrained classifier, want 0.5", got)
	}
	preds := c.Predict([][]float64{vec, vec})
	for i, p := range preds {
		if p != 0.5 {
			t.Errorf("Predict()[%d] = %f for untrained classifier, want 0.5", i, p)
		}
	}
}

// --- Test: MLWeight bounds and monotonicity ---

func TestClassifier_MLWeightBounds(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, newMockModelStorage())

	// Sweep accuracy and version upward; the weight must stay in
	// [0.1, 0.6] once trained and never decrease as confidence grows.
	prev := 0.0
	for version := 1; version <= 12; version++ {
		for _, accuracy := range []float64{0.5, 0.7, 0.9, 1.0} {
			c.mu.Lock()
			c.version = version
			c.lastAccuracy = accuracy
			c.mu.Unlock()

			conf := c.Confidence()
			w := c.MLWeight()
			if w < mlBaseWeight || w > mlMaxWeight {
				t.Fatalf("MLWeight() = %f at version %d accuracy %f, want in [%f, %f]",
					w, version, accuracy, mlBaseWeight, mlMaxWeight)
			}
			if conf > prev && w < mlBaseWeight {
				t.Fatalf("MLWeight() decreased below base as confidence grew")
			}
			prev = conf
		}
	}
}

func TestClassifier_MLWeightMonotonicInConfidence(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, newMockModelStorage())

	type point struct {
		conf   float64
		weight float64
	}
	var points []point
	for _, accuracy := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		c.mu.Lock()
		c.version = 5
		c.lastAccuracy = accuracy
		c.mu.Unlock()
		points = append(points, point{conf: c.Confidence(), weight: c.MLWeight()})
	}
	for i := 1; i < len(points); i++ {
		if points[i].conf > points[i-1].conf && points[i].weight < points[i-1].weight {
			t.Errorf("MLWeight not monotonic: conf %f -> %f but weight %f -> %f",
				points[i-1].conf, points[i].conf, points[i-1].weight, points[i].weight)
		}
	}
}

// --- Test: Train rejections ---

func TestClassifier_TrainInsufficientData(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, newMockModelStorage())

	// 10 positive + 20 negative + 10 partial = 40 samples, below the
	// 50-sample minimum.
	result := c.Train(context.Background(), separableDataset(10, 20, 10))

	if result.Success {
		t.Fatal("Train() success = true with 40 samples, want false")
	}
	if !strings.Contains(result.Error, "insufficient") {
		t.Errorf("Train() error = %q, want insufficient-data error", result.Error)
	}
	if got := c.Version(); got != 0 {
		t.Errorf("Version() = %d after rejected train, want 0", got)
	}
}

func TestClassifier_TrainWhileBusy(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, newMockModelStorage())

	// Hold the run guard to simulate an in-flight training run.
	c.busy.Lock()
	result := c.Train(context.Background(), separableDataset(30, 30, 10))
	c.busy.Unlock()

	if result.Success {
		t.Fatal("Train() success = true while busy, want false")
	}
	if !strings.Contains(result.Error, ErrTrainingInProgress.Error()) {
		t.Errorf("Train() error = %q, want concurrency-conflict error", result.Error)
	}
	if got := c.Version(); got != 0 {
		t.Errorf("Version() = %d after rejected train, want 0", got)
	}
}

// --- Test: Train success ---

func TestClassifier_TrainSuccess(t *testing.T) {
	t.Parallel()

	storage := newMockModelStorage()
	c := newTestClassifier(t, storage)

	result := c.Train(context.Background(), separableDataset(30, 30, 20))
	if !result.Success {
		t.Fatalf("Train() success = false, error = %q", result.Error)
	}
	if result.Model.Version != 1 {
		t.Errorf("result.Model.Version = %d, want 1", result.Model.Version)
	}
	if c.Version() != 1 {
		t.Errorf("Version() = %d after training, want 1", c.Version())
	}
	if !c.IsReady() {
		t.Error("IsReady() = false after successful training, want true")
	}
	if len(result.Metrics.LossHistory) == 0 {
		t.Error("result.Metrics.LossHistory is empty, want per-epoch losses")
	}
	if result.Metrics.Accuracy < 0 || result.Metrics.Accuracy > 1 {
		t.Errorf("result.Metrics.Accuracy = %f, want in [0, 1]", result.Metrics.Accuracy)
	}

	// Loss over a separable dataset should improve during fitting.
	history := result.Metrics.LossHistory
	if history[len(history)-1] >= history[0] {
		t.Errorf("final loss %f >= initial loss %f, want improvement",
			history[len(history)-1], history[0])
	}

	// The model must have been persisted.
	storage.mu.Lock()
	_, persisted := storage.models[classifierModelKey]
	storage.mu.Unlock()
	if !persisted {
		t.Error("trained model was not persisted to storage")
	}

	// Predictions must now separate the classes.
	pos := separableDataset(1, 0, 0).Positive[0].Features
	neg := separableDataset(0, 1, 0).Negative[0].Features
	if pp, np := c.PredictSingle(pos), c.PredictSingle(neg); pp <= np {
		t.Errorf("PredictSingle(positive) = %f <= PredictSingle(negative) = %f, want separation", pp, np)
	}
}

// --- Test: model restore round trip ---

func TestClassifier_RestorePersistedModel(t *testing.T) {
	t.Parallel()

	storage := newMockModelStorage()
	first := newTestClassifier(t, storage)
	result := first.Train(context.Background(), separableDataset(30, 30, 20))
	if !result.Success {
		t.Fatalf("Train() success = false, error = %q", result.Error)
	}

	second := newTestClassifier(t, storage)
	if second.Version() != 1 {
		t.Fatalf("restored Version() = %d, want 1", second.Version())
	}
	if !second.IsReady() {
		t.Fatal("restored classifier IsReady() = false, want true")
	}

	// Restored weights must reproduce the original predictions.
	vec := separableDataset(1, 0, 0).Positive[0].Features
	if a, b := first.PredictSingle(vec), second.PredictSingle(vec); a != b {
		t.Errorf("restored prediction = %f, original = %f, want identical", b, a)
	}
}

// --- Test: prediction range ---

func TestClassifier_PredictionRange(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, newMockModelStorage())
	result := c.Train(context.Background(), separableDataset(30, 30, 0))
	if !result.Success {
		t.Fatalf("Train() success = false, error = %q", result.Error)
	}

	for _, energy := range []float64{-10, 0, 0.3, 0.9, 10} {
		vec := make([]float64, featureVectorSize)
		for j := 0; j < 12; j++ {
			vec[j] = energy
		}
		if p := c.PredictSingle(vec); p < 0 || p > 1 {
			t.Errorf("PredictSingle() = %f for input %f, want in [0, 1]", p, energy)
		}
	}
}

// --- Test: Dispose ---

func TestClassifier_Dispose(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, newMockModelStorage())
	if err := c.Dispose(context.Background()); err != nil {
		t.Fatalf("Dispose() error = %v", err)
	}
	// A disposed classifier predicts neutrally instead of panicking.
	if got := c.PredictSingle(make([]float64, featureVectorSize)); got != 0.5 {
		t.Errorf("PredictSingle() after Dispose = %f, want 0.5", got)
	}
}
