// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/aural/internal/recommend"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		Tracks: []TrackEntry{
			{
				ID: "t1", Title: "Blue in Green", ArtistID: "a1", Genre: "jazz", DurationMS: 337000,
				Features: &recommend.AggregatedFeatures{
					Audio:   &recommend.AudioFeatures{Energy: 0.3, Tempo: 110},
					Emotion: &recommend.EmotionFeatures{Valence: 0.35, Arousal: 0.25},
				},
			},
			{ID: "t2", Title: "So What", ArtistID: "a1", Genre: "jazz"},
			{
				ID: "t3", Title: "Hey Nineteen", ArtistID: "a2", Genre: "rock",
				Features: &recommend.AggregatedFeatures{
					Emotion: &recommend.EmotionFeatures{Valence: 0.8, Arousal: 0.6},
				},
			},
			{ID: "t4", Title: "Tezeta", ArtistID: "a3", Genre: "ethio-jazz"},
		},
		Playlists: map[string][]string{
			"pl1": {"t3", "t1"},
		},
		User: UserSnapshot{
			TopArtists:     []string{"a1"},
			TopGenres:      []string{"jazz"},
			ArtistAffinity: map[string]float64{"a1": 0.9, "a2": -0.2},
			GenreAffinity:  map[string]float64{"jazz": 0.8},
			DislikedTracks: []string{"t3"},
		},
	}
}

func testLibrary() *Library {
	return New(testSnapshot(), zerolog.Nop())
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	data := `{
		"tracks": [{"id": "t1", "artist_id": "a1", "genre": "jazz", "duration_ms": 200000}],
		"user": {"top_artists": ["a1"]}
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	lib, err := Load(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if lib.Size() != 1 {
		t.Errorf("Size() = %d, want 1", lib.Size())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/library.json", zerolog.Nop()); err == nil {
		t.Error("Load() = nil error for missing file")
	}
}

func TestFeatureStore(t *testing.T) {
	lib := testLibrary()
	ctx := context.Background()

	feats, err := lib.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if feats == nil || feats.Audio == nil || feats.Audio.Tempo != 110 {
		t.Errorf("Get(t1) = %+v, want audio with tempo 110", feats)
	}

	// Track without features yields nil, not an error.
	feats, err = lib.Get(ctx, "t2")
	if err != nil || feats != nil {
		t.Errorf("Get(t2) = %+v, %v, want nil, nil", feats, err)
	}

	audio, err := lib.GetAudio(ctx, "t3")
	if err != nil || audio != nil {
		t.Errorf("GetAudio(t3) = %+v, %v, want nil, nil", audio, err)
	}

	if err := lib.Prefetch(ctx, []string{"t1", "t2"}); err != nil {
		t.Errorf("Prefetch() error = %v", err)
	}
}

func TestUserStore(t *testing.T) {
	lib := testLibrary()
	ctx := context.Background()

	if aff, _ := lib.ArtistAffinity(ctx, "a1"); aff != 0.9 {
		t.Errorf("ArtistAffinity(a1) = %v, want 0.9", aff)
	}
	if aff, _ := lib.ArtistAffinity(ctx, "unknown"); aff != 0 {
		t.Errorf("ArtistAffinity(unknown) = %v, want 0", aff)
	}

	prefs, err := lib.Preferences(ctx)
	if err != nil {
		t.Fatalf("Preferences() error = %v", err)
	}
	if len(prefs.TopArtists) != 1 || prefs.TopArtists[0] != "a1" {
		t.Errorf("TopArtists = %v, want [a1]", prefs.TopArtists)
	}

	disliked, err := lib.DislikedTracks(ctx)
	if err != nil {
		t.Fatalf("DislikedTracks() error = %v", err)
	}
	if len(disliked) != 1 || disliked[0] != "t3" {
		t.Errorf("DislikedTracks() = %v, want [t3]", disliked)
	}

	if ts, _ := lib.LastPlayed(ctx, "t1"); ts != nil {
		t.Errorf("LastPlayed(t1) = %v, want nil before any play", ts)
	}
}

func TestApply_UpdatesLiveState(t *testing.T) {
	lib := testLibrary()
	ctx := context.Background()
	now := time.Now()

	lib.Apply(recommend.UserEvent{Type: recommend.EventPlay, TrackID: "t1", Timestamp: now})
	lib.Apply(recommend.UserEvent{Type: recommend.EventDislike, TrackID: "t2", Timestamp: now})
	lib.Apply(recommend.UserEvent{Type: recommend.EventLike, TrackID: "t3", Timestamp: now})

	ts, _ := lib.LastPlayed(ctx, "t1")
	if ts == nil || !ts.Equal(now) {
		t.Errorf("LastPlayed(t1) = %v, want %v", ts, now)
	}

	disliked, _ := lib.DislikedTracks(ctx)
	if len(disliked) != 1 || disliked[0] != "t2" {
		t.Errorf("DislikedTracks() = %v, want [t2] after dislike and like", disliked)
	}
}

func TestCatalog_Lookups(t *testing.T) {
	lib := testLibrary()
	ctx := context.Background()

	byArtist, err := lib.TracksByArtist(ctx, "a1")
	if err != nil {
		t.Fatalf("TracksByArtist() error = %v", err)
	}
	if len(byArtist) != 2 {
		t.Errorf("TracksByArtist(a1) = %d tracks, want 2", len(byArtist))
	}

	byGenre, err := lib.TracksByGenre(ctx, "rock")
	if err != nil {
		t.Fatalf("TracksByGenre() error = %v", err)
	}
	if len(byGenre) != 1 || byGenre[0].ID != "t3" {
		t.Errorf("TracksByGenre(rock) = %+v, want [t3]", byGenre)
	}

	playlist, err := lib.PlaylistTracks(ctx, "pl1")
	if err != nil {
		t.Fatalf("PlaylistTracks() error = %v", err)
	}
	if len(playlist) != 2 || playlist[0].ID != "t3" || playlist[1].ID != "t1" {
		t.Errorf("PlaylistTracks(pl1) = %+v, want [t3 t1] in order", playlist)
	}

	if _, err := lib.PlaylistTracks(ctx, "nope"); err == nil {
		t.Error("PlaylistTracks(nope) = nil error, want error")
	}
}

func TestCandidates(t *testing.T) {
	lib := testLibrary()
	ctx := context.Background()

	tests := []struct {
		name    string
		query   recommend.CandidateQuery
		wantIDs map[string]bool
	}{
		{
			name:    "similar shares artist or genre, excludes anchor",
			query:   recommend.CandidateQuery{SimilarTo: "t1"},
			wantIDs: map[string]bool{"t2": true},
		},
		{
			name:    "mood filters on emotion distance",
			query:   recommend.CandidateQuery{Mood: recommend.MoodHappy},
			wantIDs: map[string]bool{"t3": true},
		},
		{
			name:    "discovery excludes known artists and genres",
			query:   recommend.CandidateQuery{Discovery: true},
			wantIDs: map[string]bool{"t3": true, "t4": true},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := lib.Candidates(ctx, tt.query)
			if err != nil {
				t.Fatalf("Candidates() error = %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Candidates() = %+v, want IDs %v", got, tt.wantIDs)
			}
			for _, track := range got {
				if !tt.wantIDs[track.ID] {
					t.Errorf("unexpected candidate %s", track.ID)
				}
			}
		})
	}
}

func TestCandidates_Limit(t *testing.T) {
	lib := testLibrary()

	got, err := lib.Candidates(context.Background(), recommend.CandidateQuery{Limit: 2})
	if err != nil {
		t.Fatalf("Candidates() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Candidates(limit=2) = %d tracks, want 2", len(got))
	}
}
