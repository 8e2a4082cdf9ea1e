// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

// Package config provides layered application configuration using
// Koanf v2: built-in defaults, then an optional YAML file, then
// environment variables, each layer overriding the previous.
package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/aural/internal/recommend"
	"github.com/tomtom215/aural/internal/validation"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Library  LibraryConfig  `koanf:"library"`
	Logging  LoggingConfig  `koanf:"logging"`
	Training TrainingConfig `koanf:"training"`
	Engine   EngineConfig   `koanf:"engine"`
}

// LibraryConfig locates the music library snapshot. An empty Path runs
// the server without a catalog; scoring works, radio does not.
type LibraryConfig struct {
	Path string `koanf:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimit         int           `koanf:"rate_limit" validate:"min=1"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// StorageConfig holds the embedded database settings. An empty Path
// opens an in-memory database.
type StorageConfig struct {
	Path           string        `koanf:"path"`
	GCInterval     time.Duration `koanf:"gc_interval" validate:"gt=0"`
	GCDiscardRatio float64       `koanf:"gc_discard_ratio" validate:"gt=0,lte=1"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// TrainingConfig holds the training scheduler settings.
type TrainingConfig struct {
	CheckInterval  time.Duration `koanf:"check_interval" validate:"gt=0"`
	TrainTimeout   time.Duration `koanf:"train_timeout" validate:"gt=0"`
	TrainOnStartup bool          `koanf:"train_on_startup"`
}

// EngineConfig holds the recommendation core knobs exposed through the
// application config. Remaining core parameters keep their built-in
// defaults.
type EngineConfig struct {
	MLWeightFactor     float64       `koanf:"ml_weight_factor" validate:"gte=0,lte=1"`
	Exploration        string        `koanf:"exploration" validate:"oneof=low balanced high"`
	TemporalFitEnabled bool          `koanf:"temporal_fit_enabled"`
	StrictTimeOfDay    bool          `koanf:"strict_time_of_day"`
	SnapshotTTL        time.Duration `koanf:"snapshot_ttl" validate:"gt=0"`
	ScoreCacheSize     int           `koanf:"score_cache_size" validate:"min=1"`
	Seed               int64         `koanf:"seed"`

	MinSamples        int           `koanf:"min_samples" validate:"min=1"`
	Epochs            int           `koanf:"epochs" validate:"min=1"`
	ColdStartEvents   int           `koanf:"cold_start_events" validate:"min=1"`
	IncrementalEvents int           `koanf:"incremental_events" validate:"min=1"`
	MaxModelAge       time.Duration `koanf:"max_model_age" validate:"gt=0"`

	MaxPerArtist int `koanf:"max_per_artist" validate:"min=1"`
}

// Default returns a Config with production defaults.
func Default() *Config {
	engine := recommend.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8745,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{},
			RateLimit:       300,
		},
		Storage: StorageConfig{
			Path:           "/data/aural",
			GCInterval:     10 * time.Minute,
			GCDiscardRatio: 0.5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Training: TrainingConfig{
			CheckInterval:  15 * time.Minute,
			TrainTimeout:   30 * time.Minute,
			TrainOnStartup: false,
		},
		Engine: EngineConfig{
			MLWeightFactor:     engine.MLWeightFactor,
			Exploration:        string(engine.Exploration),
			TemporalFitEnabled: engine.TemporalFitEnabled,
			StrictTimeOfDay:    engine.StrictTimeOfDay,
			SnapshotTTL:        engine.SnapshotTTL,
			ScoreCacheSize:     engine.ScoreCacheSize,
			Seed:               engine.Seed,
			MinSamples:         engine.Training.MinSamples,
			Epochs:             engine.Training.Epochs,
			ColdStartEvents:    engine.Training.ColdStartEvents,
			IncrementalEvents:  engine.Training.IncrementalEvents,
			MaxModelAge:        engine.Training.MaxModelAge,
			MaxPerArtist:       engine.Radio.MaxPerArtist,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("invalid configuration: %w", verr)
	}
	return nil
}

// ToEngineConfig maps the exposed knobs onto a full core configuration.
func (c *Config) ToEngineConfig() *recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.MLWeightFactor = c.Engine.MLWeightFactor
	cfg.Exploration = recommend.ExplorationLevel(c.Engine.Exploration)
	cfg.TemporalFitEnabled = c.Engine.TemporalFitEnabled
	cfg.StrictTimeOfDay = c.Engine.StrictTimeOfDay
	cfg.SnapshotTTL = c.Engine.SnapshotTTL
	cfg.ScoreCacheSize = c.Engine.ScoreCacheSize
	cfg.Seed = c.Engine.Seed
	cfg.Training.MinSamples = c.Engine.MinSamples
	cfg.Training.Epochs = c.Engine.Epochs
	cfg.Training.ColdStartEvents = c.Engine.ColdStartEvents
	cfg.Training.IncrementalEvents = c.Engine.IncrementalEvents
	cfg.Training.MaxModelAge = c.Engine.MaxModelAge
	cfg.Radio.MaxPerArtist = c.Engine.MaxPerArtist
	return cfg
}
