// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package recommend

import (
	"math"
	"testing"
)

// --- Test: DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() error = %v, want nil", err)
	}
	if cfg.Training.MinSamples != 50 {
		t.Errorf("Training.MinSamples = %d, want 50", cfg.Training.MinSamples)
	}
	if cfg.Radio.SeedWeightStart != 0.7 {
		t.Errorf("Radio.SeedWeightStart = %f, want 0.7", cfg.Radio.SeedWeightStart)
	}
	if cfg.ScoreCacheSize != 100 {
		t.Errorf("ScoreCacheSize = %d, want 100", cfg.ScoreCacheSize)
	}
}

// --- Test: Validate ---

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "ml weight factor above one", mutate: func(c *Config) { c.MLWeightFactor = 1.1 }, wantErr: true},
		{name: "ml weight factor negative", mutate: func(c *Config) { c.MLWeightFactor = -0.1 }, wantErr: true},
		{name: "unknown exploration level", mutate: func(c *Config) { c.Exploration = "wild" }, wantErr: true},
		{name: "zero snapshot ttl", mutate: func(c *Config) { c.SnapshotTTL = 0 }, wantErr: true},
		{name: "zero cache size", mutate: func(c *Config) { c.ScoreCacheSize = 0 }, wantErr: true},
		{name: "zero min samples", mutate: func(c *Config) { c.Training.MinSamples = 0 }, wantErr: true},
		{name: "zero epochs", mutate: func(c *Config) { c.Training.Epochs = 0 }, wantErr: true},
		{name: "validation split out of range", mutate: func(c *Config) { c.Training.ValidationSplit = 1 }, wantErr: true},
		{name: "negative learning rate", mutate: func(c *Config) { c.Training.LearningRate = -1 }, wantErr: true},
		{name: "zero candidate multiplier", mutate: func(c *Config) { c.Radio.CandidateMultiplier = 0 }, wantErr: true},
		{name: "zero max per artist", mutate: func(c *Config) { c.Radio.MaxPerArtist = 0 }, wantErr: true},
		{name: "seed weight floor above start", mutate: func(c *Config) { c.Radio.SeedWeightFloor = 0.9 }, wantErr: true},
		{name: "negative decay", mutate: func(c *Config) { c.Radio.SeedWeightDecay = -0.01 }, wantErr: true},
		{name: "shuffle fractions exceed one", mutate: func(c *Config) {
			c.Radio.ShuffleHead = 0.8
			c.Radio.ShuffleTail = 0.3
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() = nil error, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
		})
	}
}

// --- Test: weight normalization ---

func TestComponentWeights_Normalize(t *testing.T) {
	t.Parallel()

	normalized := DefaultConfig().Weights.Normalize()
	var sum float64
	for comp, share := range normalized.ToMap() {
		if comp.IsPenalty() {
			continue
		}
		sum += share
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("normalized shares sum = %f, want 1", sum)
	}

	// Penalty multipliers pass through normalization untouched.
	if normalized.DislikePenalty != 1.5 {
		t.Errorf("DislikePenalty = %f after normalize, want 1.5", normalized.DislikePenalty)
	}
	if normalized.RecentPlayPenalty != 1.0 {
		t.Errorf("RecentPlayPenalty = %f after normalize, want 1.0", normalized.RecentPlayPenalty)
	}
}

func TestConfig_EffectiveWeights(t *testing.T) {
	t.Parallel()

	relaxed := DefaultConfig()
	strict := DefaultConfig()
	strict.StrictTimeOfDay = true

	relaxedShare := relaxed.effectiveWeights().ToMap()[ComponentTemporalFit]
	strictShare := strict.effectiveWeights().ToMap()[ComponentTemporalFit]
	if strictShare <= relaxedShare {
		t.Errorf("strict temporal share = %f <= relaxed %f, want larger", strictShare, relaxedShare)
	}

	// Both modes stay normalized.
	for name, cfg := range map[string]*Config{"relaxed": relaxed, "strict": strict} {
		var sum float64
		for comp, share := range cfg.effectiveWeights().ToMap() {
			if !comp.IsPenalty() {
				sum += share
			}
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("%s shares sum = %f, want 1", name, sum)
		}
	}
}

// --- Test: exploration epsilon ---

func TestExplorationLevel_Epsilon(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level ExplorationLevel
		want  float64
	}{
		{level: ExplorationLow, want: 0.05},
		{level: ExplorationBalanced, want: 0.15},
		{level: ExplorationHigh, want: 0.25},
		{level: ExplorationLevel("bogus"), want: 0.15},
	}
	for _, tt := range tests {
		if got := tt.level.Epsilon(); got != tt.want {
			t.Errorf("Epsilon(%q) = %f, want %f", tt.level, got, tt.want)
		}
	}
}

// --- Test: Clone ---

func TestConfig_Clone(t *testing.T) {
	t.Parallel()

	original := DefaultConfig()
	clone := original.Clone()
	clone.MLWeightFactor = 0.9
	clone.Weights.BasePreference = 0.99

	if original.MLWeightFactor == clone.MLWeightFactor {
		t.Error("mutating clone changed original MLWeightFactor")
	}
	if original.Weights.BasePreference == clone.Weights.BasePreference {
		t.Error("mutating clone changed original weights")
	}
}
