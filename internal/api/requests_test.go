// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package api

import (
	"testing"
	"time"

	"github.com/tomtom215/aural/internal/recommend"
)

func TestContextPayload_DefaultsFromNow(t *testing.T) {
	// Wednesday 14:00.
	now := time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)

	var p *ContextPayload
	sctx := p.toScoringContext(now)

	if sctx.Hour != 14 {
		t.Errorf("Hour = %d, want 14", sctx.Hour)
	}
	if sctx.Day != 3 {
		t.Errorf("Day = %d, want 3", sctx.Day)
	}
	if sctx.Weekend {
		t.Error("Weekend = true for a Wednesday")
	}
}

func TestContextPayload_ExplicitFields(t *testing.T) {
	now := time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)
	hour, day := 23, 6

	p := &ContextPayload{
		Hour:            &hour,
		Day:             &day,
		Mood:            "calm",
		SessionTrackIDs: []string{"t1", "t2"},
		Current:         &TrackPayload{ID: "t2", DurationMS: 180000},
	}
	sctx := p.toScoringContext(now)

	if sctx.Hour != 23 || sctx.Day != 6 {
		t.Errorf("Hour/Day = %d/%d, want 23/6", sctx.Hour, sctx.Day)
	}
	if !sctx.Weekend {
		t.Error("Weekend = false for Saturday")
	}
	if sctx.Mood != recommend.MoodCalm {
		t.Errorf("Mood = %q, want calm", sctx.Mood)
	}
	if sctx.Current == nil || sctx.Current.Duration != 3*time.Minute {
		t.Errorf("Current = %+v, want 3m duration", sctx.Current)
	}
}

func TestParseSeed(t *testing.T) {
	tests := []struct {
		name     string
		seedType string
		want     recommend.SeedType
		wantErr  bool
	}{
		{"track", "track", recommend.SeedTrack, false},
		{"artist", "artist", recommend.SeedArtist, false},
		{"genre", "genre", recommend.SeedGenre, false},
		{"mood", "mood", recommend.SeedMood, false},
		{"playlist", "playlist", recommend.SeedPlaylist, false},
		{"unknown", "album", 0, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			seed, err := parseSeed(tt.seedType, "id-1")
			if tt.wantErr {
				if err == nil {
					t.Error("parseSeed() = nil error, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseSeed() error = %v", err)
			}
			if seed.Type != tt.want || seed.ID != "id-1" {
				t.Errorf("seed = %+v, want type %v", seed, tt.want)
			}
		})
	}
}
