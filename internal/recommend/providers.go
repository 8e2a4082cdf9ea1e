// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package recommend

import (
	"context"
	"time"
)

// Note: these interfaces define the boundary to the external feature access
// layer and catalog. The core consumes them without knowing the transport;
// implementations live in internal/storage or in the host.

// FeatureStore supplies per-track aggregated features.
type FeatureStore interface {
	// Get returns the aggregated feature bundle for a track. Sub-records
	// may be nil when the corresponding analysis has not run.
	Get(ctx context.Context, trackID string) (*AggregatedFeatures, error)

	// GetAudio returns only the audio features for a track, or nil when
	// none exist.
	GetAudio(ctx context.Context, trackID string) (*AudioFeatures, error)

	// Prefetch hints that features for the given tracks will be needed
	// shortly. Implementations may batch-load; errors are advisory.
	Prefetch(ctx context.Context, trackIDs []string) error
}

// UserStore supplies user-state aggregates.
type UserStore interface {
	// ArtistAffinity returns the user's affinity for an artist in [-1, 1].
	ArtistAffinity(ctx context.Context, artistID string) (float64, error)

	// GenreAffinity returns the user's affinity for a genre in [-1, 1].
	GenreAffinity(ctx context.Context, genre string) (float64, error)

	// Preferences returns the user's top-artist/top-genre snapshot.
	Preferences(ctx context.Context) (*Preferences, error)

	// TemporalPatterns returns the learned hour-of-day energy history.
	TemporalPatterns(ctx context.Context) (*TemporalPatterns, error)

	// LastPlayed returns when the track was last played, or nil if never.
	LastPlayed(ctx context.Context, trackID string) (*time.Time, error)

	// DislikedTracks returns the IDs of explicitly disliked tracks.
	DislikedTracks(ctx context.Context) ([]string, error)
}

// CandidateQuery describes a candidate fetch against the catalog.
type CandidateQuery struct {
	// SimilarTo requests tracks similar to the given track ID.
	SimilarTo string

	// Mood restricts candidates to a mood category.
	Mood Mood

	// Discovery requests tracks outside the user's established taste.
	Discovery bool

	// Limit caps the number of returned tracks.
	Limit int
}

// Catalog supplies candidate tracks from the library and queue.
type Catalog interface {
	// TracksByArtist returns the catalog tracks for an artist.
	TracksByArtist(ctx context.Context, artistID string) ([]Track, error)

	// TracksByGenre returns the catalog tracks for a genre.
	TracksByGenre(ctx context.Context, genre string) ([]Track, error)

	// PlaylistTracks returns the tracks of a playlist in order.
	PlaylistTracks(ctx context.Context, playlistID string) ([]Track, error)

	// Candidates returns tracks matching the query descriptor.
	Candidates(ctx context.Context, q CandidateQuery) ([]Track, error)
}

// TrainingLog records feedback events and training completions.
type TrainingLog interface {
	// NewEventCount returns the number of feedback events recorded since
	// the last completed training.
	NewEventCount(ctx context.Context) (int, error)

	// LastTrainingInfo returns metadata for the last completed training,
	// or nil if the model has never been trained.
	LastTrainingInfo(ctx context.Context) (*TrainingInfo, error)

	// MarkTrainingComplete records a completed training at the given
	// model version and resets the new-event counter.
	MarkTrainingComplete(ctx context.Context, version int) error

	// FullDataset assembles the complete labeled dataset from the
	// recorded event history.
	FullDataset(ctx context.Context) (*TrainingDataset, error)
}

// ModelStorage persists serialized models and small metadata values.
type ModelStorage interface {
	// LoadModel returns the serialized model stored under key, or
	// ErrModelNotFound-like sentinel from the implementation if absent.
	LoadModel(ctx context.Context, key string) ([]byte, error)

	// SaveModel atomically stores the serialized model under key.
	SaveModel(ctx context.Context, key string, data []byte) error

	// Get returns a metadata value, or nil if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a metadata value.
	Set(ctx context.Context, key string, value []byte) error
}
