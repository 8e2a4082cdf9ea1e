// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package recommend

import (
	"fmt"
	"time"
)

// ExplorationLevel controls how strongly unfamiliar music is rewarded.
type ExplorationLevel string

// Supported exploration levels.
const (
	ExplorationLow      ExplorationLevel = "low"
	ExplorationBalanced ExplorationLevel = "balanced"
	ExplorationHigh     ExplorationLevel = "high"
)

// Epsilon returns the exploration factor for the level.
func (l ExplorationLevel) Epsilon() float64 {
	switch l {
	case ExplorationLow:
		return 0.05
	case ExplorationHigh:
		return 0.25
	default:
		return 0.15
	}
}

// Config contains all configuration for the recommendation core.
type Config struct {
	// Weights defines each rule-based component's share of the rule
	// weight. Shares are normalized at runtime, so they don't need to sum
	// to 1.0.
	Weights ComponentWeights `json:"weights"`

	// MLWeightFactor scales the classifier's maturity-derived weight.
	// Default: 0.5.
	MLWeightFactor float64 `json:"ml_weight_factor"`

	// Exploration sets the exploration level (low/balanced/high).
	// Default: balanced.
	Exploration ExplorationLevel `json:"exploration"`

	// TemporalFitEnabled controls the time-of-day component. When false
	// the component returns a neutral 50 instead of being omitted.
	// Default: true.
	TemporalFitEnabled bool `json:"temporal_fit_enabled"`

	// StrictTimeOfDay raises the temporal fit share from 0.08 to 0.12.
	// Default: false.
	StrictTimeOfDay bool `json:"strict_time_of_day"`

	// SnapshotTTL is how long the cached user preference/temporal snapshot
	// stays fresh before the next score call refreshes it.
	// Default: 5m.
	SnapshotTTL time.Duration `json:"snapshot_ttl"`

	// ScoreCacheSize is the FIFO cap on retained recent scores.
	// Default: 100.
	ScoreCacheSize int `json:"score_cache_size"`

	// Training contains classifier training parameters.
	Training TrainingConfig `json:"training"`

	// Radio contains radio session parameters.
	Radio RadioConfig `json:"radio"`

	// Seed is the random seed for deterministic radio perturbation.
	// If zero, a fixed default seed is used.
	Seed int64 `json:"seed"`
}

// ComponentWeights defines each rule-based component's share of the rule
// weight. Penalty multipliers are absolute and applied regardless of
// classifier maturity.
type ComponentWeights struct {
	BasePreference   float64 `json:"base_preference"`
	AudioMatch       float64 `json:"audio_match"`
	MoodMatch        float64 `json:"mood_match"`
	HarmonicFlow     float64 `json:"harmonic_flow"`
	TemporalFit      float64 `json:"temporal_fit"`
	SessionFlow      float64 `json:"session_flow"`
	ActivityMatch    float64 `json:"activity_match"`
	ExplorationBonus float64 `json:"exploration_bonus"`
	Serendipity      float64 `json:"serendipity"`
	Diversity        float64 `json:"diversity"`

	// RecentPlayPenalty is the absolute multiplier for the recent-play
	// penalty. Default: 1.0.
	RecentPlayPenalty float64 `json:"recent_play_penalty"`

	// DislikePenalty is the absolute multiplier for the dislike penalty.
	// Default: 1.5.
	DislikePenalty float64 `json:"dislike_penalty"`

	// RepetitionPenalty is the absolute multiplier for the in-session
	// repetition penalty. Default: 1.0.
	RepetitionPenalty float64 `json:"repetition_penalty"`
}

// Normalize returns a copy with the non-penalty shares normalized to sum
// to 1.0. Penalty multipliers are passed through unchanged.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w ComponentWeights) Normalize() ComponentWeights {
	sum := w.BasePreference + w.AudioMatch + w.MoodMatch + w.HarmonicFlow +
		w.TemporalFit + w.SessionFlow + w.ActivityMatch +
		w.ExplorationBonus + w.Serendipity + w.Diversity

	if sum == 0 {
		const equalShare = 1.0 / 10.0
		return ComponentWeights{
			BasePreference: equalShare, AudioMatch: equalShare, MoodMatch: equalShare,
			HarmonicFlow: equalShare, TemporalFit: equalShare, SessionFlow: equalShare,
			ActivityMatch: equalShare, ExplorationBonus: equalShare,
			Serendipity: equalShare, Diversity: equalShare,
			RecentPlayPenalty: w.RecentPlayPenalty,
			DislikePenalty:    w.DislikePenalty,
			RepetitionPenalty: w.RepetitionPenalty,
		}
	}

	return ComponentWeights{
		BasePreference:    w.BasePreference / sum,
		AudioMatch:        w.AudioMatch / sum,
		MoodMatch:         w.MoodMatch / sum,
		HarmonicFlow:      w.HarmonicFlow / sum,
		TemporalFit:       w.TemporalFit / sum,
		SessionFlow:       w.SessionFlow / sum,
		ActivityMatch:     w.ActivityMatch / sum,
		ExplorationBonus:  w.ExplorationBonus / sum,
		Serendipity:       w.Serendipity / sum,
		Diversity:         w.Diversity / sum,
		RecentPlayPenalty: w.RecentPlayPenalty,
		DislikePenalty:    w.DislikePenalty,
		RepetitionPenalty: w.RepetitionPenalty,
	}
}

// ToMap returns the normalized shares keyed by component.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (w ComponentWeights) ToMap() map[Component]float64 {
	return map[Component]float64{
		ComponentBasePreference:    w.BasePreference,
		ComponentAudioMatch:        w.AudioMatch,
		ComponentMoodMatch:         w.MoodMatch,
		ComponentHarmonicFlow:      w.HarmonicFlow,
		ComponentTemporalFit:       w.TemporalFit,
		ComponentSessionFlow:       w.SessionFlow,
		ComponentActivityMatch:     w.ActivityMatch,
		ComponentExplorationBonus:  w.ExplorationBonus,
		ComponentSerendipity:       w.Serendipity,
		ComponentDiversity:         w.Diversity,
		ComponentRecentPlayPenalty: w.RecentPlayPenalty,
		ComponentDislikePenalty:    w.DislikePenalty,
		ComponentRepetitionPenalty: w.RepetitionPenalty,
	}
}

// TrainingConfig contains classifier training parameters.
type TrainingConfig struct {
	// MinSamples is the combined sample floor below which training is
	// rejected. Default: 50.
	MinSamples int `json:"min_samples"`

	// Epochs is the fixed epoch budget per run. Default: 50.
	Epochs int `json:"epochs"`

	// ValidationSplit is the held-out fraction. Default: 0.2.
	ValidationSplit float64 `json:"validation_split"`

	// LearningRate is the SGD step size. Default: 0.01.
	LearningRate float64 `json:"learning_rate"`

	// ColdStartEvents triggers training when this many events exist and
	// the model has never been trained. Default: 50.
	ColdStartEvents int `json:"cold_start_events"`

	// IncrementalEvents triggers retraining after this many new events.
	// Default: 10.
	IncrementalEvents int `json:"incremental_events"`

	// MaxModelAge triggers retraining when the model is older than this.
	// Default: 168h (7 days).
	MaxModelAge time.Duration `json:"max_model_age"`
}

// RadioConfig contains radio session parameters.
type RadioConfig struct {
	// CandidateMultiplier is how many raw candidates to fetch per
	// requested track. Default: 3.
	CandidateMultiplier int `json:"candidate_multiplier"`

	// MaxPerArtist caps tracks per artist in one batch before the cap is
	// relaxed to fill. Default: 2.
	MaxPerArtist int `json:"max_per_artist"`

	// SeedWeightStart is the seed influence at drift zero. Default: 0.7.
	SeedWeightStart float64 `json:"seed_weight_start"`

	// SeedWeightFloor is the minimum seed influence. Default: 0.3.
	SeedWeightFloor float64 `json:"seed_weight_floor"`

	// SeedWeightDecay is the influence lost per served track.
	// Default: 0.02.
	SeedWeightDecay float64 `json:"seed_weight_decay"`

	// ShuffleHead is the leading fraction kept in sorted order.
	// Default: 0.3.
	ShuffleHead float64 `json:"shuffle_head"`

	// ShuffleTail is the trailing fraction kept in sorted order.
	// Default: 0.1.
	ShuffleTail float64 `json:"shuffle_tail"`

	// PlaylistExpansion is how many leading playlist tracks get a
	// per-track similarity expansion. Default: 5.
	PlaylistExpansion int `json:"playlist_expansion"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		Weights: ComponentWeights{
			BasePreference:    0.25,
			AudioMatch:        0.10,
			MoodMatch:         0.08,
			HarmonicFlow:      0.05,
			TemporalFit:       0.08,
			SessionFlow:       0.07,
			ActivityMatch:     0.05,
			ExplorationBonus:  0.10,
			Serendipity:       0.10,
			Diversity:         0.10,
			RecentPlayPenalty: 1.0,
			DislikePenalty:    1.5,
			RepetitionPenalty: 1.0,
		},
		MLWeightFactor:     0.5,
		Exploration:        ExplorationBalanced,
		TemporalFitEnabled: true,
		StrictTimeOfDay:    false,
		SnapshotTTL:        5 * time.Minute,
		ScoreCacheSize:     100,
		Training: TrainingConfig{
			MinSamples:        50,
			Epochs:            50,
			ValidationSplit:   0.2,
			LearningRate:      0.01,
			ColdStartEvents:   50,
			IncrementalEvents: 10,
			MaxModelAge:       7 * 24 * time.Hour,
		},
		Radio: RadioConfig{
			CandidateMultiplier: 3,
			MaxPerArtist:        2,
			SeedWeightStart:     0.7,
			SeedWeightFloor:     0.3,
			SeedWeightDecay:     0.02,
			ShuffleHead:         0.3,
			ShuffleTail:         0.1,
			PlaylistExpansion:   5,
		},
		Seed: 42, // Default seed for determinism
	}
}

// effectiveWeights returns the normalized shares with the time-of-day mode
// applied. In strict mode the temporal fit share rises to 0.12 before
// normalization.
func (c *Config) effectiveWeights() ComponentWeights {
	w := c.Weights
	if c.StrictTimeOfDay {
		w.TemporalFit = 0.12
	}
	return w.Normalize()
}

// Validate checks the configuration for errors.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.MLWeightFactor < 0 || c.MLWeightFactor > 1 {
		return fmt.Errorf("ml_weight_factor must be in [0, 1], got %f", c.MLWeightFactor)
	}
	switch c.Exploration {
	case ExplorationLow, ExplorationBalanced, ExplorationHigh:
	default:
		return fmt.Errorf("exploration must be low, balanced, or high, got %q", c.Exploration)
	}
	if c.SnapshotTTL <= 0 {
		return fmt.Errorf("snapshot_ttl must be positive, got %v", c.SnapshotTTL)
	}
	if c.ScoreCacheSize < 1 {
		return fmt.Errorf("score_cache_size must be positive, got %d", c.ScoreCacheSize)
	}

	if c.Training.MinSamples < 1 {
		return fmt.Errorf("training.min_samples must be positive, got %d", c.Training.MinSamples)
	}
	if c.Training.Epochs < 1 {
		return fmt.Errorf("training.epochs must be positive, got %d", c.Training.Epochs)
	}
	if c.Training.ValidationSplit < 0 || c.Training.ValidationSplit >= 1 {
		return fmt.Errorf("training.validation_split must be in [0, 1), got %f", c.Training.ValidationSplit)
	}
	if c.Training.LearningRate <= 0 {
		return fmt.Errorf("training.learning_rate must be positive, got %f", c.Training.LearningRate)
	}

	if c.Radio.CandidateMultiplier < 1 {
		return fmt.Errorf("radio.candidate_multiplier must be positive, got %d", c.Radio.CandidateMultiplier)
	}
	if c.Radio.MaxPerArtist < 1 {
		return fmt.Errorf("radio.max_per_artist must be positive, got %d", c.Radio.MaxPerArtist)
	}
	if c.Radio.SeedWeightFloor < 0 || c.Radio.SeedWeightFloor > c.Radio.SeedWeightStart {
		return fmt.Errorf("radio.seed_weight_floor must be in [0, seed_weight_start], got %f", c.Radio.SeedWeightFloor)
	}
	if c.Radio.SeedWeightStart > 1 {
		return fmt.Errorf("radio.seed_weight_start must be <= 1, got %f", c.Radio.SeedWeightStart)
	}
	if c.Radio.SeedWeightDecay < 0 {
		return fmt.Errorf("radio.seed_weight_decay must be non-negative, got %f", c.Radio.SeedWeightDecay)
	}
	if c.Radio.ShuffleHead < 0 || c.Radio.ShuffleTail < 0 || c.Radio.ShuffleHead+c.Radio.ShuffleTail > 1 {
		return fmt.Errorf("radio shuffle fractions must be non-negative and sum to <= 1, got head %f tail %f",
			c.Radio.ShuffleHead, c.Radio.ShuffleTail)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// Direct field copy - all nested structs contain only value types
	out := *c
	return &out
}
