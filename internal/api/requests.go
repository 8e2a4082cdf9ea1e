// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/tomtom215/aural/internal/recommend"
	"github.com/tomtom215/aural/internal/validation"
)

// TrackPayload is the wire form of a candidate track.
type TrackPayload struct {
	ID         string `json:"id" validate:"required"`
	Title      string `json:"title"`
	ArtistID   string `json:"artist_id"`
	Genre      string `json:"genre"`
	DurationMS int64  `json:"duration_ms" validate:"min=0"`
}

func (p TrackPayload) toTrack() recommend.Track {
	return recommend.Track{
		ID:       p.ID,
		Title:    p.Title,
		ArtistID: p.ArtistID,
		Genre:    p.Genre,
		Duration: time.Duration(p.DurationMS) * time.Millisecond,
	}
}

// ContextPayload is the wire form of a scoring context. When omitted from
// a request, the current local time fills the temporal fields.
type ContextPayload struct {
	Hour             *int          `json:"hour,omitempty" validate:"omitempty,min=0,max=23"`
	Day              *int          `json:"day,omitempty" validate:"omitempty,min=0,max=6"`
	SessionTrackIDs  []string      `json:"session_track_ids,omitempty"`
	SessionArtistIDs []string      `json:"session_artist_ids,omitempty"`
	SessionGenres    []string      `json:"session_genres,omitempty"`
	Current          *TrackPayload `json:"current,omitempty"`
	Mood             string        `json:"mood,omitempty" validate:"omitempty,oneof=happy sad energetic calm angry romantic melancholic focused"`
	Activity         string        `json:"activity,omitempty" validate:"omitempty,oneof=workout study sleep party commute cooking relax work"`
}

// toScoringContext builds a core scoring context, defaulting temporal
// fields from now when the payload omits them.
func (p *ContextPayload) toScoringContext(now time.Time) recommend.ScoringContext {
	sctx := recommend.ScoringContext{
		Hour: now.Hour(),
		Day:  int(now.Weekday()),
	}
	if p != nil {
		if p.Hour != nil {
			sctx.Hour = *p.Hour
		}
		if p.Day != nil {
			sctx.Day = *p.Day
		}
		sctx.SessionTrackIDs = p.SessionTrackIDs
		sctx.SessionArtistIDs = p.SessionArtistIDs
		sctx.SessionGenres = p.SessionGenres
		sctx.Mood = recommend.Mood(p.Mood)
		sctx.Activity = recommend.Activity(p.Activity)
		if p.Current != nil {
			current := p.Current.toTrack()
			sctx.Current = &current
		}
	}
	sctx.Weekend = sctx.Day == 0 || sctx.Day == 6
	return sctx
}

// ScoreRequest is the body of POST /score.
type ScoreRequest struct {
	Track   TrackPayload    `json:"track" validate:"required"`
	Context *ContextPayload `json:"context,omitempty"`
}

// ScoreBatchRequest is the body of POST /score/batch and POST /rank.
type ScoreBatchRequest struct {
	Tracks  []TrackPayload  `json:"tracks" validate:"required,min=1,max=1000,dive"`
	Context *ContextPayload `json:"context,omitempty"`
}

// RadioRequest is the body of POST /radio.
type RadioRequest struct {
	SeedType string          `json:"seed_type" validate:"required,oneof=track artist genre mood playlist"`
	SeedID   string          `json:"seed_id" validate:"required"`
	Count    int             `json:"count" validate:"omitempty,min=1,max=500"`
	Context  *ContextPayload `json:"context,omitempty"`
}

// RadioResetRequest is the body of POST /radio/reset.
type RadioResetRequest struct {
	SeedType string `json:"seed_type" validate:"required,oneof=track artist genre mood playlist"`
	SeedID   string `json:"seed_id" validate:"required"`
}

// FeedbackRequest is the body of POST /feedback.
type FeedbackRequest struct {
	Type      string    `json:"type" validate:"required,oneof=like dislike play skip"`
	TrackID   string    `json:"track_id" validate:"required"`
	ArtistID  string    `json:"artist_id,omitempty"`
	Genre     string    `json:"genre,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

func (r FeedbackRequest) toEvent() recommend.UserEvent {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return recommend.UserEvent{
		Type:      recommend.EventType(r.Type),
		TrackID:   r.TrackID,
		ArtistID:  r.ArtistID,
		Genre:     r.Genre,
		Timestamp: ts,
	}
}

// seedTypes maps wire names to core seed types. Keep in sync with the
// oneof tags above.
var seedTypes = map[string]recommend.SeedType{
	"track":    recommend.SeedTrack,
	"artist":   recommend.SeedArtist,
	"genre":    recommend.SeedGenre,
	"mood":     recommend.SeedMood,
	"playlist": recommend.SeedPlaylist,
}

func parseSeed(seedType, seedID string) (recommend.RadioSeed, error) {
	st, ok := seedTypes[seedType]
	if !ok {
		return recommend.RadioSeed{}, fmt.Errorf("unknown seed type %q", seedType)
	}
	return recommend.RadioSeed{Type: st, ID: seedID}, nil
}

// decodeAndValidate decodes the request body into dst and runs struct
// validation. On failure it writes the error response and returns false.
func decodeAndValidate(rw *ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		rw.BadRequest("Invalid JSON body: " + err.Error())
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		rw.ValidationError("Request validation failed", verr.Fields())
		return false
	}
	return true
}
