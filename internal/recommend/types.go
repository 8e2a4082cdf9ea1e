// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package recommend

import (
	"time"
)

// Track identifies a catalog track. Identity is owned by the catalog;
// this core never mutates it.
type Track struct {
	// ID is the unique track identifier.
	ID string `json:"id"`

	// Title is the track title.
	Title string `json:"title"`

	// ArtistID is the artist identifier.
	ArtistID string `json:"artist_id"`

	// Genre is the primary genre name.
	Genre string `json:"genre"`

	// Duration is the track length.
	Duration time.Duration `json:"duration"`
}

// AudioFeatures holds pre-computed signal-level features for a track.
// All fields except Tempo, Loudness, Key, and Mode are normalized to [0, 1].
type AudioFeatures struct {
	// Tempo is the estimated tempo in BPM.
	Tempo float64 `json:"tempo"`

	// Energy is the perceived intensity (0-1).
	Energy float64 `json:"energy"`

	// Valence is the musical positiveness (0-1).
	Valence float64 `json:"valence"`

	// Danceability is the rhythmic suitability for dancing (0-1).
	Danceability float64 `json:"danceability"`

	// Acousticness is the confidence the track is acoustic (0-1).
	Acousticness float64 `json:"acousticness"`

	// Loudness is the overall loudness in dB (typically -60..0).
	Loudness float64 `json:"loudness"`

	// Key is the pitch class (0=C .. 11=B).
	Key int `json:"key"`

	// Mode is the modality (1=major, 0=minor).
	Mode int `json:"mode"`
}

// EmotionFeatures holds pre-computed emotion estimates for a track.
type EmotionFeatures struct {
	// Valence is the emotional positiveness (0-1).
	Valence float64 `json:"valence"`

	// Arousal is the emotional intensity (0-1).
	Arousal float64 `json:"arousal"`
}

// LyricsFeatures holds pre-computed lyrics analysis for a track.
type LyricsFeatures struct {
	// Sentiment is the overall lyric sentiment (-1..1).
	Sentiment float64 `json:"sentiment"`

	// WordCount is the lyric word count, zero for instrumentals.
	WordCount int `json:"word_count"`
}

// AggregatedFeatures bundles all pre-computed features for a track.
// Sub-records are optional; nil means the corresponding analysis has not
// run for this track. Components that depend on a missing sub-record are
// omitted from the score rather than defaulted.
type AggregatedFeatures struct {
	Audio   *AudioFeatures   `json:"audio,omitempty"`
	Emotion *EmotionFeatures `json:"emotion,omitempty"`
	Lyrics  *LyricsFeatures  `json:"lyrics,omitempty"`
}

// QueueMode identifies the playback mode a score is computed for.
type QueueMode int

const (
	// QueueModeNormal is regular library playback.
	QueueModeNormal QueueMode = iota
	// QueueModeRadio is seed-anchored radio playback.
	QueueModeRadio
)

// String returns a human-readable mode name.
func (m QueueMode) String() string {
	switch m {
	case QueueModeNormal:
		return "normal"
	case QueueModeRadio:
		return "radio"
	default:
		return "unknown"
	}
}

// Mood is a named mood category with a fixed valence/arousal target.
type Mood string

// The eight supported mood categories.
const (
	MoodHappy       Mood = "happy"
	MoodSad         Mood = "sad"
	MoodEnergetic   Mood = "energetic"
	MoodCalm        Mood = "calm"
	MoodAngry       Mood = "angry"
	MoodRomantic    Mood = "romantic"
	MoodMelancholic Mood = "melancholic"
	MoodFocused     Mood = "focused"
)

// moodTarget is a fixed valence/arousal anchor for a mood category.
type moodTarget struct {
	valence float64
	arousal float64
}

// moodTargets maps each mood category to its anchor in valence/arousal space.
var moodTargets = map[Mood]moodTarget{
	MoodHappy:       {valence: 0.9, arousal: 0.7},
	MoodSad:         {valence: 0.2, arousal: 0.3},
	MoodEnergetic:   {valence: 0.7, arousal: 0.95},
	MoodCalm:        {valence: 0.6, arousal: 0.2},
	MoodAngry:       {valence: 0.1, arousal: 0.9},
	MoodRomantic:    {valence: 0.8, arousal: 0.4},
	MoodMelancholic: {valence: 0.3, arousal: 0.25},
	MoodFocused:     {valence: 0.5, arousal: 0.45},
}

// Activity is a named listening activity with a fixed energy/tempo profile.
type Activity string

// The eight supported activities.
const (
	ActivityWorkout Activity = "workout"
	ActivityStudy   Activity = "study"
	ActivitySleep   Activity = "sleep"
	ActivityParty   Activity = "party"
	ActivityCommute Activity = "commute"
	ActivityCooking Activity = "cooking"
	ActivityRelax   Activity = "relax"
	ActivityWork    Activity = "work"
)

// activityProfile is a fixed energy/tempo anchor for an activity.
// Tempo is normalized by dividing BPM by 200.
type activityProfile struct {
	energy float64
	tempo  float64
}

var activityProfiles = map[Activity]activityProfile{
	ActivityWorkout: {energy: 0.9, tempo: 0.75},
	ActivityStudy:   {energy: 0.3, tempo: 0.45},
	ActivitySleep:   {energy: 0.1, tempo: 0.3},
	ActivityParty:   {energy: 0.85, tempo: 0.62},
	ActivityCommute: {energy: 0.55, tempo: 0.55},
	ActivityCooking: {energy: 0.6, tempo: 0.55},
	ActivityRelax:   {energy: 0.25, tempo: 0.4},
	ActivityWork:    {energy: 0.4, tempo: 0.5},
}

// ScoringContext is the transient per-request context a score is computed
// against. It is read-only to the scoring core.
type ScoringContext struct {
	// Hour is the local hour of day (0-23).
	Hour int `json:"hour"`

	// Day is the day of week (0=Sunday .. 6=Saturday).
	Day int `json:"day"`

	// Weekend indicates a Saturday or Sunday.
	Weekend bool `json:"weekend"`

	// SessionTrackIDs lists track IDs played earlier in this session,
	// most recent last.
	SessionTrackIDs []string `json:"session_track_ids,omitempty"`

	// SessionArtistIDs lists artist IDs played earlier in this session.
	SessionArtistIDs []string `json:"session_artist_ids,omitempty"`

	// SessionGenres lists genres played earlier in this session.
	SessionGenres []string `json:"session_genres,omitempty"`

	// Current is the currently playing track, if any.
	Current *Track `json:"current,omitempty"`

	// Mood is an optional mood hint from the user.
	Mood Mood `json:"mood,omitempty"`

	// Activity is an optional activity hint from the user.
	Activity Activity `json:"activity,omitempty"`

	// QueueMode is the playback mode the score is computed for.
	QueueMode QueueMode `json:"queue_mode"`

	// Drift is the cumulative radio session drift; only meaningful when
	// QueueMode is QueueModeRadio.
	Drift int `json:"drift,omitempty"`
}

// Component names a single scalar signal in a score breakdown.
type Component string

// Score components. Values are in [0, 100] except the penalty components,
// which are non-negative magnitudes subtracted during combination.
const (
	ComponentBasePreference    Component = "base_preference"
	ComponentModelPrediction   Component = "model_prediction"
	ComponentAudioMatch        Component = "audio_match"
	ComponentMoodMatch         Component = "mood_match"
	ComponentHarmonicFlow      Component = "harmonic_flow"
	ComponentTemporalFit       Component = "temporal_fit"
	ComponentSessionFlow       Component = "session_flow"
	ComponentActivityMatch     Component = "activity_match"
	ComponentExplorationBonus  Component = "exploration_bonus"
	ComponentSerendipity       Component = "serendipity"
	ComponentDiversity         Component = "diversity"
	ComponentRecentPlayPenalty Component = "recent_play_penalty"
	ComponentDislikePenalty    Component = "dislike_penalty"
	ComponentRepetitionPenalty Component = "repetition_penalty"
)

// IsPenalty reports whether the component is subtracted during combination.
func (c Component) IsPenalty() bool {
	switch c {
	case ComponentRecentPlayPenalty, ComponentDislikePenalty, ComponentRepetitionPenalty:
		return true
	default:
		return false
	}
}

// ScoreComponents is a sparse record of named scalar signals. A component
// absent from the map could not be computed for this request (missing
// features or context); it contributes nothing to the blend. A record is
// built fresh per scoring call and never mutated afterwards.
type ScoreComponents map[Component]float64

// TrackScore is the result of one scoring call.
type TrackScore struct {
	// TrackID identifies the scored track.
	TrackID string `json:"track_id"`

	// FinalScore is the blended score. Unbounded, practically ~[-50, 150]
	// after penalties.
	FinalScore float64 `json:"final_score"`

	// Confidence estimates how reliable this score is (0-1). It is not a
	// probability.
	Confidence float64 `json:"confidence"`

	// Components is the per-signal breakdown.
	Components ScoreComponents `json:"components"`

	// Explanation is an ordered list of short human-readable reasons,
	// strongest contribution first.
	Explanation []string `json:"explanation"`

	// ScoredAt is when the score was computed.
	ScoredAt time.Time `json:"scored_at"`
}

// SeedType identifies the kind of anchor driving a radio session.
type SeedType int

const (
	// SeedTrack anchors radio on a single track.
	SeedTrack SeedType = iota
	// SeedArtist anchors radio on an artist.
	SeedArtist
	// SeedGenre anchors radio on a genre.
	SeedGenre
	// SeedMood anchors radio on a mood category.
	SeedMood
	// SeedPlaylist anchors radio on a playlist.
	SeedPlaylist
)

// String returns a human-readable seed type name.
func (t SeedType) String() string {
	switch t {
	case SeedTrack:
		return "track"
	case SeedArtist:
		return "artist"
	case SeedGenre:
		return "genre"
	case SeedMood:
		return "mood"
	case SeedPlaylist:
		return "playlist"
	default:
		return "unknown"
	}
}

// RadioSeed identifies the anchor entity for a radio session.
type RadioSeed struct {
	Type SeedType `json:"type"`
	ID   string   `json:"id"`
}

// TrainingSample is one labeled example for classifier training.
type TrainingSample struct {
	// TrackID is the track the sample refers to. Used for feature
	// enrichment before training.
	TrackID string `json:"track_id"`

	// Features is the flattened feature vector. May be shorter than the
	// model input size before enrichment.
	Features []float64 `json:"features,omitempty"`

	// Label is the preference label: 1 positive, 0 negative, fractional
	// for partial signals (e.g. full listens without explicit feedback).
	Label float64 `json:"label"`
}

// TrainingDataset partitions samples by label class.
type TrainingDataset struct {
	Positive []TrainingSample `json:"positive"`
	Negative []TrainingSample `json:"negative"`
	Partial  []TrainingSample `json:"partial"`
}

// Total returns the combined sample count across all partitions.
func (d *TrainingDataset) Total() int {
	if d == nil {
		return 0
	}
	return len(d.Positive) + len(d.Negative) + len(d.Partial)
}

// all returns every sample across partitions in a single slice.
func (d *TrainingDataset) all() []TrainingSample {
	out := make([]TrainingSample, 0, d.Total())
	out = append(out, d.Positive...)
	out = append(out, d.Negative...)
	out = append(out, d.Partial...)
	return out
}

// TrainingMetrics holds loss/accuracy figures for a training run.
type TrainingMetrics struct {
	// Loss is the final training loss.
	Loss float64 `json:"loss"`

	// Accuracy is the final validation accuracy (0-1).
	Accuracy float64 `json:"accuracy"`

	// ValidationLoss is the final validation loss.
	ValidationLoss float64 `json:"validation_loss"`

	// LossHistory is the per-epoch training loss.
	LossHistory []float64 `json:"loss_history,omitempty"`
}

// ModelInfo describes the trained classifier.
type ModelInfo struct {
	// Version is the model version; 0 means untrained.
	Version int `json:"version"`

	// ParameterCount is the number of trainable parameters.
	ParameterCount int `json:"parameter_count"`

	// Architecture is a short descriptor, e.g. "dense 64-128-64-32-1".
	Architecture string `json:"architecture"`
}

// TrainingResult is the outcome of one training run. Failures are reported
// in Error rather than as an error return so partial metrics survive for
// diagnostics.
type TrainingResult struct {
	Success   bool            `json:"success"`
	Metrics   TrainingMetrics `json:"metrics"`
	Model     ModelInfo       `json:"model"`
	Duration  time.Duration   `json:"duration"`
	Timestamp time.Time       `json:"timestamp"`
	Error     string          `json:"error,omitempty"`
}

// TrainerState is the trainer state machine position.
type TrainerState int

const (
	// TrainerIdle means no training has started or the last run finished
	// long enough ago that status was reset.
	TrainerIdle TrainerState = iota
	// TrainerPreparing means the dataset is being validated and enriched.
	TrainerPreparing
	// TrainerTraining means the classifier is fitting.
	TrainerTraining
	// TrainerSaving means the model is being persisted.
	TrainerSaving
	// TrainerComplete means the last run succeeded.
	TrainerComplete
	// TrainerError means the last run failed.
	TrainerError
)

// String returns a human-readable state name.
func (s TrainerState) String() string {
	switch s {
	case TrainerIdle:
		return "idle"
	case TrainerPreparing:
		return "preparing"
	case TrainerTraining:
		return "training"
	case TrainerSaving:
		return "saving"
	case TrainerComplete:
		return "complete"
	case TrainerError:
		return "error"
	default:
		return "unknown"
	}
}

// TrainingStatus is a snapshot of the trainer state machine.
type TrainingStatus struct {
	// State is the current state machine position.
	State TrainerState `json:"state"`

	// Progress is 0-1, monotonically non-decreasing within a run.
	Progress float64 `json:"progress"`

	// CurrentEpoch is the epoch currently fitting (1-based), zero outside
	// the training phase.
	CurrentEpoch int `json:"current_epoch"`

	// TotalEpochs is the configured epoch budget.
	TotalEpochs int `json:"total_epochs"`

	// LastResult is the outcome of the most recent run, if any.
	LastResult *TrainingResult `json:"last_result,omitempty"`
}

// EventType classifies user feedback events.
type EventType string

const (
	// EventLike is explicit positive feedback.
	EventLike EventType = "like"
	// EventDislike is explicit negative feedback.
	EventDislike EventType = "dislike"
	// EventPlay is a completed listen.
	EventPlay EventType = "play"
	// EventSkip is an aborted listen.
	EventSkip EventType = "skip"
)

// UserEvent is a single user feedback event.
type UserEvent struct {
	Type      EventType `json:"type"`
	TrackID   string    `json:"track_id"`
	ArtistID  string    `json:"artist_id,omitempty"`
	Genre     string    `json:"genre,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Label returns the training label implied by the event type. Explicit
// feedback maps to the binary classes; plays and skips are partial signals.
func (e UserEvent) Label() float64 {
	switch e.Type {
	case EventLike:
		return 1
	case EventDislike:
		return 0
	case EventPlay:
		return 0.75
	case EventSkip:
		return 0.25
	default:
		return 0.5
	}
}

// Preferences is the user's aggregated top-entity snapshot.
type Preferences struct {
	TopArtists []string `json:"top_artists"`
	TopGenres  []string `json:"top_genres"`
}

// TemporalPatterns is the user's learned hour-of-day energy history.
type TemporalPatterns struct {
	// EnergyByHour is the mean preferred energy per local hour. A zero
	// slot means no history for that hour.
	EnergyByHour [24]float64 `json:"energy_by_hour"`
}

// TrainingInfo summarizes the last completed training run as recorded by
// the training log.
type TrainingInfo struct {
	Version   int       `json:"version"`
	TrainedAt time.Time `json:"trained_at"`
}

// featureVectorSize is the classifier input width. Feature vectors shorter
// than this are zero-padded, longer ones truncated.
const featureVectorSize = 64

// FeatureVector flattens an aggregated feature bundle into the fixed-size
// classifier input. Ranges are normalized: tempo by /200, loudness from dB
// into [0, 1], sentiment from [-1, 1] into [0, 1]. Missing sub-records
// leave their slots at zero.
func FeatureVector(f *AggregatedFeatures) []float64 {
	v := make([]float64, featureVectorSize)
	if f == nil {
		return v
	}
	if a := f.Audio; a != nil {
		v[0] = NormalizeTempo(a.Tempo)
		v[1] = a.Energy
		v[2] = a.Valence
		v[3] = a.Danceability
		v[4] = a.Acousticness
		v[5] = NormalizeLoudness(a.Loudness)
		v[6] = float64(a.Key) / 11.0
		v[7] = float64(a.Mode)
	}
	if e := f.Emotion; e != nil {
		v[8] = e.Valence
		v[9] = e.Arousal
	}
	if l := f.Lyrics; l != nil {
		v[10] = NormalizeSentiment(l.Sentiment)
		if l.WordCount > 0 {
			v[11] = 1
		}
	}
	return v
}

// NormalizeTempo maps BPM into [0, 1] by dividing by 200 and clamping.
func NormalizeTempo(bpm float64) float64 {
	return clamp01(bpm / 200.0)
}

// NormalizeLoudness maps dB loudness (typically -60..0) into [0, 1].
func NormalizeLoudness(db float64) float64 {
	return clamp01((db + 60.0) / 60.0)
}

// NormalizeSentiment maps sentiment from [-1, 1] into [0, 1].
func NormalizeSentiment(s float64) float64 {
	return clamp01((s + 1.0) / 2.0)
}

// clamp01 clamps v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// clamp clamps v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
