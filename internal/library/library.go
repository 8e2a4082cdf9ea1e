// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

// Package library provides an in-memory implementation of the core's
// feature, user, and catalog collaborators, loaded from a JSON snapshot
// exported by the music player. Play and dislike state is kept live as
// feedback events arrive; everything else is read-only until the next
// snapshot load.
package library

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/aural/internal/recommend"
)

// TrackEntry is one track in the snapshot file.
type TrackEntry struct {
	ID         string                        `json:"id"`
	Title      string                        `json:"title"`
	ArtistID   string                        `json:"artist_id"`
	Genre      string                        `json:"genre"`
	DurationMS int64                         `json:"duration_ms"`
	Features   *recommend.AggregatedFeatures `json:"features,omitempty"`
	LastPlayed *time.Time                    `json:"last_played,omitempty"`
}

// UserSnapshot is the user-state section of the snapshot file.
type UserSnapshot struct {
	TopArtists     []string           `json:"top_artists,omitempty"`
	TopGenres      []string           `json:"top_genres,omitempty"`
	ArtistAffinity map[string]float64 `json:"artist_affinity,omitempty"`
	GenreAffinity  map[string]float64 `json:"genre_affinity,omitempty"`
	EnergyByHour   [24]float64        `json:"energy_by_hour,omitempty"`
	DislikedTracks []string           `json:"disliked_tracks,omitempty"`
}

// Snapshot is the on-disk library export format.
type Snapshot struct {
	Tracks    []TrackEntry        `json:"tracks"`
	Playlists map[string][]string `json:"playlists,omitempty"`
	User      UserSnapshot        `json:"user"`
}

// Library serves catalog, feature, and user-state queries from a loaded
// snapshot. All methods are safe for concurrent use.
type Library struct {
	mu sync.RWMutex

	tracks    map[string]recommend.Track
	features  map[string]*recommend.AggregatedFeatures
	byArtist  map[string][]string
	byGenre   map[string][]string
	playlists map[string][]string

	artistAffinity map[string]float64
	genreAffinity  map[string]float64
	prefs          recommend.Preferences
	temporal       recommend.TemporalPatterns

	lastPlayed map[string]time.Time
	disliked   map[string]struct{}

	logger zerolog.Logger
}

// New builds a library from a snapshot.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(snap *Snapshot, logger zerolog.Logger) *Library {
	lib := &Library{
		tracks:         make(map[string]recommend.Track, len(snap.Tracks)),
		features:       make(map[string]*recommend.AggregatedFeatures),
		byArtist:       make(map[string][]string),
		byGenre:        make(map[string][]string),
		playlists:      snap.Playlists,
		artistAffinity: snap.User.ArtistAffinity,
		genreAffinity:  snap.User.GenreAffinity,
		prefs: recommend.Preferences{
			TopArtists: snap.User.TopArtists,
			TopGenres:  snap.User.TopGenres,
		},
		temporal:   recommend.TemporalPatterns{EnergyByHour: snap.User.EnergyByHour},
		lastPlayed: make(map[string]time.Time),
		disliked:   make(map[string]struct{}, len(snap.User.DislikedTracks)),
		logger:     logger.With().Str("component", "library").Logger(),
	}
	if lib.artistAffinity == nil {
		lib.artistAffinity = map[string]float64{}
	}
	if lib.genreAffinity == nil {
		lib.genreAffinity = map[string]float64{}
	}
	if lib.playlists == nil {
		lib.playlists = map[string][]string{}
	}

	for _, entry := range snap.Tracks {
		if entry.ID == "" {
			continue
		}
		lib.tracks[entry.ID] = recommend.Track{
			ID:       entry.ID,
			Title:    entry.Title,
			ArtistID: entry.ArtistID,
			Genre:    entry.Genre,
			Duration: time.Duration(entry.DurationMS) * time.Millisecond,
		}
		if entry.Features != nil {
			lib.features[entry.ID] = entry.Features
		}
		if entry.LastPlayed != nil {
			lib.lastPlayed[entry.ID] = *entry.LastPlayed
		}
		if entry.ArtistID != "" {
			lib.byArtist[entry.ArtistID] = append(lib.byArtist[entry.ArtistID], entry.ID)
		}
		if entry.Genre != "" {
			lib.byGenre[entry.Genre] = append(lib.byGenre[entry.Genre], entry.ID)
		}
	}
	for _, id := range snap.User.DislikedTracks {
		lib.disliked[id] = struct{}{}
	}

	lib.logger.Info().
		Int("tracks", len(lib.tracks)).
		Int("playlists", len(lib.playlists)).
		Msg("library snapshot loaded")
	return lib
}

// Load reads and parses a snapshot file.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Load(path string, logger zerolog.Logger) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read library snapshot %s: %w", path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse library snapshot %s: %w", path, err)
	}
	return New(&snap, logger), nil
}

// Size returns the number of tracks in the library.
func (l *Library) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tracks)
}

// Apply folds a feedback event into the live user state: plays stamp
// last-played, dislikes join the disliked set, likes clear it.
func (l *Library) Apply(event recommend.UserEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch event.Type {
	case recommend.EventPlay, recommend.EventSkip:
		l.lastPlayed[event.TrackID] = event.Timestamp
	case recommend.EventDislike:
		l.disliked[event.TrackID] = struct{}{}
	case recommend.EventLike:
		delete(l.disliked, event.TrackID)
	}
}

// Get implements recommend.FeatureStore.
func (l *Library) Get(_ context.Context, trackID string) (*recommend.AggregatedFeatures, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.features[trackID], nil
}

// GetAudio implements recommend.FeatureStore.
func (l *Library) GetAudio(_ context.Context, trackID string) (*recommend.AudioFeatures, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if f := l.features[trackID]; f != nil {
		return f.Audio, nil
	}
	return nil, nil
}

// Prefetch implements recommend.FeatureStore. Everything is already in
// memory, so it only validates the context.
func (l *Library) Prefetch(ctx context.Context, _ []string) error {
	return ctx.Err()
}

// ArtistAffinity implements recommend.UserStore.
func (l *Library) ArtistAffinity(_ context.Context, artistID string) (float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.artistAffinity[artistID], nil
}

// GenreAffinity implements recommend.UserStore.
func (l *Library) GenreAffinity(_ context.Context, genre string) (float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.genreAffinity[genre], nil
}

// Preferences implements recommend.UserStore.
func (l *Library) Preferences(context.Context) (*recommend.Preferences, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	prefs := l.prefs
	return &prefs, nil
}

// TemporalPatterns implements recommend.UserStore.
func (l *Library) TemporalPatterns(context.Context) (*recommend.TemporalPatterns, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	temporal := l.temporal
	return &temporal, nil
}

// LastPlayed implements recommend.UserStore.
func (l *Library) LastPlayed(_ context.Context, trackID string) (*time.Time, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if ts, ok := l.lastPlayed[trackID]; ok {
		return &ts, nil
	}
	return nil, nil
}

// DislikedTracks implements recommend.UserStore.
func (l *Library) DislikedTracks(context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.disliked))
	for id := range l.disliked {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// TracksByArtist implements recommend.Catalog.
func (l *Library) TracksByArtist(_ context.Context, artistID string) ([]recommend.Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collect(l.byArtist[artistID]), nil
}

// TracksByGenre implements recommend.Catalog.
func (l *Library) TracksByGenre(_ context.Context, genre string) ([]recommend.Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.collect(l.byGenre[genre]), nil
}

// PlaylistTracks implements recommend.Catalog.
func (l *Library) PlaylistTracks(_ context.Context, playlistID string) ([]recommend.Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids, ok := l.playlists[playlistID]
	if !ok {
		return nil, fmt.Errorf("unknown playlist %q", playlistID)
	}
	return l.collect(ids), nil
}

// moodTargets approximates each mood as a valence/arousal point for
// candidate filtering. Scoring applies its own, finer mood matching.
var moodTargets = map[recommend.Mood][2]float64{
	recommend.MoodHappy:       {0.85, 0.65},
	recommend.MoodSad:         {0.2, 0.3},
	recommend.MoodEnergetic:   {0.7, 0.9},
	recommend.MoodCalm:        {0.6, 0.2},
	recommend.MoodAngry:       {0.2, 0.85},
	recommend.MoodRomantic:    {0.75, 0.4},
	recommend.MoodMelancholic: {0.3, 0.25},
	recommend.MoodFocused:     {0.5, 0.45},
}

// moodRadius is the max valence/arousal distance for a mood candidate.
const moodRadius = 0.4

// Candidates implements recommend.Catalog.
func (l *Library) Candidates(_ context.Context, q recommend.CandidateQuery) ([]recommend.Track, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.tracks))
	for id := range l.tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	topArtists := make(map[string]struct{}, len(l.prefs.TopArtists))
	for _, a := range l.prefs.TopArtists {
		topArtists[a] = struct{}{}
	}
	topGenres := make(map[string]struct{}, len(l.prefs.TopGenres))
	for _, g := range l.prefs.TopGenres {
		topGenres[g] = struct{}{}
	}

	var anchor recommend.Track
	if q.SimilarTo != "" {
		anchor = l.tracks[q.SimilarTo]
	}

	out := make([]recommend.Track, 0, q.Limit)
	for _, id := range ids {
		track := l.tracks[id]

		if q.SimilarTo != "" {
			if id == q.SimilarTo {
				continue
			}
			if track.ArtistID != anchor.ArtistID && track.Genre != anchor.Genre {
				continue
			}
		}
		if q.Mood != "" && !l.matchesMood(id, q.Mood) {
			continue
		}
		if q.Discovery {
			_, knownArtist := topArtists[track.ArtistID]
			_, knownGenre := topGenres[track.Genre]
			if knownArtist || knownGenre {
				continue
			}
		}

		out = append(out, track)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}

func (l *Library) matchesMood(trackID string, mood recommend.Mood) bool {
	target, ok := moodTargets[mood]
	if !ok {
		return false
	}
	f := l.features[trackID]
	if f == nil || f.Emotion == nil {
		return false
	}

	dv := f.Emotion.Valence - target[0]
	da := f.Emotion.Arousal - target[1]
	return dv*dv+da*da <= moodRadius*moodRadius
}

// collect resolves track IDs to tracks, skipping unknown IDs. Callers
// hold the read lock.
func (l *Library) collect(ids []string) []recommend.Track {
	out := make([]recommend.Track, 0, len(ids))
	for _, id := range ids {
		if track, ok := l.tracks[id]; ok {
			out = append(out, track)
		}
	}
	return out
}
