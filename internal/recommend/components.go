// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package recommend

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Calculator computes the rule-based score components for a (track,
// context) pair. Each component has an independent formula and an
// independent missing-data policy: when an input is absent the component
// is omitted from the result instead of defaulting to a biased value.
// A fresh ScoreComponents record is built per call and never mutated.
type Calculator struct {
	cfg    *Config
	users  UserStore
	logger zerolog.Logger
}

// NewCalculator creates a component calculator.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCalculator(cfg *Config, users UserStore, logger zerolog.Logger) *Calculator {
	return &Calculator{
		cfg:    cfg,
		users:  users,
		logger: logger.With().Str("component", "calculator").Logger(),
	}
}

// componentInputs bundles the per-request data the calculator works from.
// The scorer assembles it once per call so the component formulas stay
// pure functions.
type componentInputs struct {
	track   Track
	feats   *AggregatedFeatures
	current *AggregatedFeatures
	sctx    ScoringContext
	snap    *userSnapshot

	// recentEnergies holds energies of the last few session tracks,
	// most recent last, for the session flow component.
	recentEnergies []float64
}

// Compute evaluates all available components. Store lookup failures omit
// the dependent component; they never fail the whole computation.
func (c *Calculator) Compute(ctx context.Context, in componentInputs) ScoreComponents {
	out := make(ScoreComponents, 14)

	c.computeBasePreference(ctx, in, out)

	if in.feats != nil {
		if v, ok := audioMatchScore(in.feats.Audio, currentAudio(in.current)); ok {
			out[ComponentAudioMatch] = v
		}
		if v, ok := moodMatchScore(in.feats.Emotion, in.sctx.Mood); ok {
			out[ComponentMoodMatch] = v
		}
		if v, ok := harmonicFlowScore(in.feats.Audio, currentAudio(in.current)); ok {
			out[ComponentHarmonicFlow] = v
		}
		if v, ok := c.temporalFitScore(in.feats.Audio, in.sctx, in.snap); ok {
			out[ComponentTemporalFit] = v
		}
		if v, ok := sessionFlowScore(in.feats.Audio, in.recentEnergies); ok {
			out[ComponentSessionFlow] = v
		}
		if v, ok := activityMatchScore(in.feats.Audio, in.sctx.Activity); ok {
			out[ComponentActivityMatch] = v
		}
	}

	if in.snap != nil {
		epsilon := c.cfg.Exploration.Epsilon()
		out[ComponentExplorationBonus] = explorationBonusScore(in.track, in.snap, epsilon)
		out[ComponentSerendipity] = serendipityScore(in.track, in.snap)
		if in.snap.isDisliked(in.track.ID) {
			out[ComponentDislikePenalty] = dislikePenaltyMagnitude
		}
	}

	out[ComponentDiversity] = diversityScore(in.track, in.sctx)

	c.computeRecentPlayPenalty(ctx, in, out)

	if p := repetitionPenalty(in.track.ArtistID, in.sctx.SessionArtistIDs); p > 0 {
		out[ComponentRepetitionPenalty] = p
	}

	return out
}

// computeBasePreference looks up affinities and computes the preference
// blend. Either lookup failing omits the component.
func (c *Calculator) computeBasePreference(ctx context.Context, in componentInputs, out ScoreComponents) {
	artistAff, err := c.users.ArtistAffinity(ctx, in.track.ArtistID)
	if err != nil {
		c.logger.Debug().Err(err).Str("artist_id", in.track.ArtistID).Msg("artist affinity unavailable")
		return
	}
	genreAff, err := c.users.GenreAffinity(ctx, in.track.Genre)
	if err != nil {
		c.logger.Debug().Err(err).Str("genre", in.track.Genre).Msg("genre affinity unavailable")
		return
	}
	out[ComponentBasePreference] = basePreferenceScore(artistAff, genreAff)
}

// computeRecentPlayPenalty looks up the last-played timestamp. A lookup
// failure or a never-played track omits the penalty.
func (c *Calculator) computeRecentPlayPenalty(ctx context.Context, in componentInputs, out ScoreComponents) {
	last, err := c.users.LastPlayed(ctx, in.track.ID)
	if err != nil {
		c.logger.Debug().Err(err).Str("track_id", in.track.ID).Msg("last played unavailable")
		return
	}
	if last == nil {
		return
	}
	if p := recentPlayPenalty(time.Since(*last)); p > 0 {
		out[ComponentRecentPlayPenalty] = p
	}
}

// currentAudio extracts the audio sub-record of the currently playing
// track's features, if any.
func currentAudio(current *AggregatedFeatures) *AudioFeatures {
	if current == nil {
		return nil
	}
	return current.Audio
}

// basePreferenceScore blends artist and genre affinity (each in [-1, 1])
// into [0, 100]. Artist affinity contributes up to 60 points, genre up
// to 40.
func basePreferenceScore(artistAff, genreAff float64) float64 {
	a := (clamp(artistAff, -1, 1) + 1) / 2
	g := (clamp(genreAff, -1, 1) + 1) / 2
	return a*60 + g*40
}

// audioMatchScore measures similarity between a candidate's audio features
// and the currently playing track's, only when both are present.
func audioMatchScore(a, b *AudioFeatures) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	dist := (math.Abs(a.Energy-b.Energy) +
		math.Abs(a.Valence-b.Valence) +
		math.Abs(a.Danceability-b.Danceability) +
		math.Abs(NormalizeTempo(a.Tempo)-NormalizeTempo(b.Tempo))) / 4
	return (1 - clamp01(dist)) * 100, true
}

// moodMatchScore is the inverse mean absolute distance between the track's
// (valence, arousal) and the fixed anchor for the named mood.
func moodMatchScore(em *EmotionFeatures, mood Mood) (float64, bool) {
	if em == nil || mood == "" {
		return 0, false
	}
	target, ok := moodTargets[mood]
	if !ok {
		return 0, false
	}
	dist := (math.Abs(em.Valence-target.valence) + math.Abs(em.Arousal-target.arousal)) / 2
	return (1 - clamp01(dist)) * 100, true
}

// pitchClass folds any key value into [0, 11]. Library snapshots are not
// trusted to deliver normalized keys.
func pitchClass(key int) int {
	return ((key % 12) + 12) % 12
}

// circleOfFifthsDistance returns the minimal number of fifths between two
// pitch classes, in [0, 6].
func circleOfFifthsDistance(keyA, keyB int) int {
	// Position on the circle of fifths: C G D A E B F# C# G# D# A# F
	posA := (pitchClass(keyA) * 7) % 12
	posB := (pitchClass(keyB) * 7) % 12
	d := posA - posB
	if d < 0 {
		d = -d
	}
	if d > 6 {
		d = 12 - d
	}
	return d
}

// harmonicFlowScore rates key/mode compatibility between the candidate and
// the currently playing track. Adjacent keys on the circle of fifths score
// nearly as well as identical keys; matching modality adds the remainder.
func harmonicFlowScore(a, b *AudioFeatures) (float64, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	d := circleOfFifthsDistance(a.Key, b.Key)
	score := (1 - float64(d)/6) * 80
	if a.Mode == b.Mode {
		score += 20
	}
	return score, true
}

// defaultEnergyCurve is the fallback hour-of-day energy expectation used
// until the user has enough listening history: quiet nights, a morning
// ramp, an evening peak.
var defaultEnergyCurve = [24]float64{
	0.20, 0.15, 0.12, 0.10, 0.12, 0.20, // 00-05
	0.35, 0.50, 0.60, 0.62, 0.62, 0.60, // 06-11
	0.58, 0.55, 0.55, 0.58, 0.62, 0.68, // 12-17
	0.72, 0.75, 0.70, 0.55, 0.40, 0.28, // 18-23
}

// temporalFitScore rates closeness of the track's energy to the expected
// energy for the current hour, using the user's learned per-hour history
// when present and the default curve otherwise.
//
// When the component is disabled it returns a neutral 50 instead of being
// omitted. This deviates from every other component's missing-data policy
// and is kept deliberately: hosts depend on the neutral value to keep
// stored weight profiles comparable across the setting.
func (c *Calculator) temporalFitScore(a *AudioFeatures, sctx ScoringContext, snap *userSnapshot) (float64, bool) {
	if !c.cfg.TemporalFitEnabled {
		return 50, true
	}
	if a == nil {
		return 0, false
	}
	hour := sctx.Hour
	if hour < 0 || hour > 23 {
		return 0, false
	}

	target := defaultEnergyCurve[hour]
	if snap != nil && snap.hasTemporal && snap.energyByHour[hour] > 0 {
		target = snap.energyByHour[hour]
	}
	return (1 - clamp01(math.Abs(a.Energy-target))) * 100, true
}

// sessionFlowScore penalizes energy jumps relative to the last few session
// tracks. With no session history the component is omitted.
func sessionFlowScore(a *AudioFeatures, recentEnergies []float64) (float64, bool) {
	if a == nil || len(recentEnergies) == 0 {
		return 0, false
	}
	var sum float64
	for _, e := range recentEnergies {
		sum += e
	}
	mean := sum / float64(len(recentEnergies))
	jump := math.Abs(a.Energy - mean)
	return (1 - clamp01(jump)) * 100, true
}

// activityMatchScore rates the distance between the track's (energy,
// tempo) and the fixed profile for the named activity.
func activityMatchScore(a *AudioFeatures, activity Activity) (float64, bool) {
	if a == nil || activity == "" {
		return 0, false
	}
	profile, ok := activityProfiles[activity]
	if !ok {
		return 0, false
	}
	dist := (math.Abs(a.Energy-profile.energy) +
		math.Abs(NormalizeTempo(a.Tempo)-profile.tempo)) / 2
	return (1 - clamp01(dist)) * 100, true
}

// explorationBonusScore rewards unfamiliar artists and genres, scaled by
// the configured exploration epsilon. An unfamiliar artist is worth up to
// 60 points and an unfamiliar genre up to 40, reaching the full range only
// at the highest exploration level.
func explorationBonusScore(track Track, snap *userSnapshot, epsilon float64) float64 {
	scale := epsilon / ExplorationHigh.Epsilon()
	var score float64
	if !snap.isTopArtist(track.ArtistID) {
		score += 60
	}
	if !snap.isTopGenre(track.Genre) {
		score += 40
	}
	return score * scale
}

// serendipityScore rewards tracks outside the user's top-genre and
// top-artist sets, 50 points each.
func serendipityScore(track Track, snap *userSnapshot) float64 {
	var score float64
	if !snap.isTopArtist(track.ArtistID) {
		score += 50
	}
	if !snap.isTopGenre(track.Genre) {
		score += 50
	}
	return score
}

// diversityScore rewards tracks whose artist and genre are not already
// heavily represented in the current session. Five appearances of either
// zeroes its half of the score.
func diversityScore(track Track, sctx ScoringContext) float64 {
	artistCount := 0
	for _, id := range sctx.SessionArtistIDs {
		if id == track.ArtistID {
			artistCount++
		}
	}
	genreCount := 0
	for _, g := range sctx.SessionGenres {
		if g == track.Genre {
			genreCount++
		}
	}
	artistPart := math.Max(0, 1-float64(artistCount)/5)
	genrePart := math.Max(0, 1-float64(genreCount)/5)
	return (artistPart*0.5 + genrePart*0.5) * 100
}

// Penalty magnitudes. Penalties are magnitude-only: always >= 0,
// subtracted during combination.
const (
	dislikePenaltyMagnitude = 50.0

	// repetitionPenaltyStep is the penalty per in-session artist repeat
	// beyond the first.
	repetitionPenaltyStep = 10.0
)

// recentPlayPenalty maps time since last play to a penalty magnitude.
// Tracks untouched for three days carry no penalty.
func recentPlayPenalty(since time.Duration) float64 {
	switch {
	case since < time.Hour:
		return 30
	case since < 6*time.Hour:
		return 20
	case since < 24*time.Hour:
		return 10
	case since < 72*time.Hour:
		return 5
	default:
		return 0
	}
}

// repetitionPenalty grows linearly with in-session artist plays beyond the
// first: a candidate whose artist already appeared n times in the session
// would be play n+1, so it carries n penalty steps.
func repetitionPenalty(artistID string, sessionArtistIDs []string) float64 {
	if artistID == "" {
		return 0
	}
	count := 0
	for _, id := range sessionArtistIDs {
		if id == artistID {
			count++
		}
	}
	return float64(count) * repetitionPenaltyStep
}
