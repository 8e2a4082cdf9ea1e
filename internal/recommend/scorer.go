// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/aural/internal/metrics"
)

// sessionFlowWindow is how many recent session tracks feed the session
// flow component.
const sessionFlowWindow = 3

// trainedConfidenceBoost is added to a score's confidence when the
// classifier has completed at least one training run.
const trainedConfidenceBoost = 0.2

// Scorer blends the rule-based components and the classifier prediction
// into one final score per track. It owns the cached user snapshot and the
// bounded recent-score cache; both are constructed with the scorer and torn
// down with it, never shared globally.
type Scorer struct {
	cfg        *Config
	calc       *Calculator
	classifier *Classifier
	features   FeatureStore
	users      UserStore
	logger     zerolog.Logger

	snapMu sync.RWMutex
	snap   *userSnapshot

	cache *scoreCache
}

// NewScorer creates a hybrid scorer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewScorer(cfg *Config, classifier *Classifier, features FeatureStore, users UserStore, logger zerolog.Logger) *Scorer {
	return &Scorer{
		cfg:        cfg,
		calc:       NewCalculator(cfg, users, logger),
		classifier: classifier,
		features:   features,
		users:      users,
		logger:     logger.With().Str("component", "scorer").Logger(),
		cache:      newScoreCache(cfg.ScoreCacheSize),
	}
}

// Score computes the blended score for one track. A nil features argument
// makes the scorer fetch the bundle itself; a failed fetch degrades to
// rule components that need no features rather than failing the call.
func (s *Scorer) Score(ctx context.Context, track Track, feats *AggregatedFeatures, sctx ScoringContext) (*TrackScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if feats == nil {
		var err error
		feats, err = s.features.Get(ctx, track.ID)
		if err != nil {
			s.logger.Debug().Err(err).Str("track_id", track.ID).Msg("features unavailable, scoring without them")
			feats = nil
		}
	}

	snap := s.snapshot(ctx)
	components := s.calc.Compute(ctx, componentInputs{
		track:          track,
		feats:          feats,
		current:        s.currentFeatures(ctx, sctx),
		sctx:           sctx,
		snap:           snap,
		recentEnergies: s.recentEnergies(ctx, sctx),
	})

	if s.classifier.IsReady() {
		components[ComponentModelPrediction] = s.classifier.PredictSingle(FeatureVector(feats)) * 100
	}

	score := s.combine(track.ID, components)
	s.cache.add(score)
	return score, nil
}

// ScoreBatch scores tracks concurrently with no ordering dependency
// between them; the returned slice preserves input order, each slot
// resolved independently.
func (s *Scorer) ScoreBatch(ctx context.Context, tracks []Track, sctx ScoringContext) ([]*TrackScore, error) {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	if err := s.features.Prefetch(ctx, ids); err != nil {
		s.logger.Debug().Err(err).Int("tracks", len(ids)).Msg("feature prefetch failed")
	}

	results := make([]*TrackScore, len(tracks))
	var wg sync.WaitGroup
	for i, track := range tracks {
		wg.Add(1)
		go func(idx int, t Track) {
			defer wg.Done()
			score, err := s.Score(ctx, t, nil, sctx)
			if err != nil {
				s.logger.Warn().Err(err).Str("track_id", t.ID).Msg("batch scoring failed for track")
				return
			}
			results[idx] = score
		}(i, track)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// RankCandidates scores the tracks and returns them sorted by final score
// descending. The ordering is a stable total ordering of the input: every
// input track appears exactly once.
func (s *Scorer) RankCandidates(ctx context.Context, tracks []Track, sctx ScoringContext) ([]*TrackScore, error) {
	scores, err := s.ScoreBatch(ctx, tracks, sctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]*TrackScore, 0, len(scores))
	for i, sc := range scores {
		if sc == nil {
			// A track that could not be scored still appears, at the
			// bottom of the ordering.
			sc = &TrackScore{
				TrackID:     tracks[i].ID,
				FinalScore:  math.Inf(-1),
				Components:  ScoreComponents{},
				Explanation: []string{},
				ScoredAt:    time.Now(),
			}
		}
		ranked = append(ranked, sc)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})
	return ranked, nil
}

// Explain returns the explanation of the most recent cached score for the
// track. The cache is a bounded side channel, not a queryable store:
// callers must score before explaining, otherwise ErrNoRecentScore.
func (s *Scorer) Explain(trackID string) ([]string, error) {
	score, ok := s.cache.get(trackID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRecentScore, trackID)
	}
	return score.Explanation, nil
}

// HandleEvent reacts to user feedback. Like and dislike events invalidate
// the cached preference snapshot immediately so the next score call
// refreshes it; cached scores are not retroactively rescored.
func (s *Scorer) HandleEvent(event UserEvent) {
	switch event.Type {
	case EventLike, EventDislike:
		s.snapMu.Lock()
		s.snap = nil
		s.snapMu.Unlock()
		s.logger.Debug().
			Str("type", string(event.Type)).
			Str("track_id", event.TrackID).
			Msg("preference snapshot invalidated")
	case EventPlay, EventSkip:
		// Play history is read fresh per track; nothing to invalidate.
	}
}

// combine derives the weights, blends the components, and builds the
// result. Rule components share 1-mlWeight according to their normalized
// fractions; penalties use their absolute multipliers regardless of
// classifier maturity.
func (s *Scorer) combine(trackID string, components ScoreComponents) *TrackScore {
	shares := s.cfg.effectiveWeights().ToMap()
	mlWeight := s.classifier.MLWeight() * s.cfg.MLWeightFactor
	ruleWeight := 1 - mlWeight

	var final float64
	contributions := make(map[Component]float64, len(components))
	for comp, value := range components {
		switch {
		case comp.IsPenalty():
			p := value * shares[comp]
			final -= p
			contributions[comp] = -p
		case comp == ComponentModelPrediction:
			final += value * mlWeight
			contributions[comp] = value * mlWeight
		default:
			w := shares[comp] * ruleWeight
			final += value * w
			contributions[comp] = value * w
		}
	}

	return &TrackScore{
		TrackID:     trackID,
		FinalScore:  final,
		Confidence:  s.confidence(components),
		Components:  components,
		Explanation: buildExplanation(components, contributions),
		ScoredAt:    time.Now(),
	}
}

// confidence is the mean per-component centeredness over the present
// non-penalty components, boosted when the classifier is trained, capped
// at 1. Extreme component values (near 0 or 100) are treated as slightly
// less reliable than central ones.
func (s *Scorer) confidence(components ScoreComponents) float64 {
	var sum float64
	count := 0
	for comp, value := range components {
		if comp.IsPenalty() {
			continue
		}
		sum += 1 - math.Abs(value/100-0.5)*0.5
		count++
	}
	if count == 0 {
		return 0
	}
	c := sum / float64(count)
	if s.classifier.IsReady() {
		c += trainedConfidenceBoost
	}
	return math.Min(1, c)
}

// snapshot returns the cached user snapshot, refreshing it when it is
// older than the configured TTL or was invalidated by feedback. Refresh
// failures keep the stale snapshot; with no snapshot at all an empty one
// is used so scoring still proceeds.
func (s *Scorer) snapshot(ctx context.Context) *userSnapshot {
	s.snapMu.RLock()
	snap := s.snap
	s.snapMu.RUnlock()
	if snap != nil && time.Since(snap.fetchedAt) < s.cfg.SnapshotTTL {
		return snap
	}

	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	if s.snap != nil && time.Since(s.snap.fetchedAt) < s.cfg.SnapshotTTL {
		return s.snap
	}

	fresh, err := s.fetchSnapshot(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("user snapshot refresh failed")
		if s.snap != nil {
			return s.snap
		}
		fresh = &userSnapshot{fetchedAt: time.Now()}
	}
	s.snap = fresh
	return s.snap
}

// fetchSnapshot loads the user aggregates. Preference data is required;
// temporal patterns and dislikes degrade to empty.
func (s *Scorer) fetchSnapshot(ctx context.Context) (*userSnapshot, error) {
	prefs, err := s.users.Preferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch preferences: %w", err)
	}

	snap := &userSnapshot{
		topArtists: make(map[string]struct{}, len(prefs.TopArtists)),
		topGenres:  make(map[string]struct{}, len(prefs.TopGenres)),
		disliked:   make(map[string]struct{}),
		fetchedAt:  time.Now(),
	}
	for _, id := range prefs.TopArtists {
		snap.topArtists[id] = struct{}{}
	}
	for _, g := range prefs.TopGenres {
		snap.topGenres[g] = struct{}{}
	}

	if patterns, err := s.users.TemporalPatterns(ctx); err == nil && patterns != nil {
		snap.energyByHour = patterns.EnergyByHour
		snap.hasTemporal = true
	} else if err != nil {
		s.logger.Debug().Err(err).Msg("temporal patterns unavailable")
	}

	if disliked, err := s.users.DislikedTracks(ctx); err == nil {
		for _, id := range disliked {
			snap.disliked[id] = struct{}{}
		}
	} else {
		s.logger.Debug().Err(err).Msg("disliked tracks unavailable")
	}

	return snap, nil
}

// currentFeatures fetches the feature bundle of the currently playing
// track, if any. Failures omit the dependent components.
func (s *Scorer) currentFeatures(ctx context.Context, sctx ScoringContext) *AggregatedFeatures {
	if sctx.Current == nil {
		return nil
	}
	feats, err := s.features.Get(ctx, sctx.Current.ID)
	if err != nil {
		s.logger.Debug().Err(err).Str("track_id", sctx.Current.ID).Msg("current track features unavailable")
		return nil
	}
	return feats
}

// recentEnergies fetches audio energies for the last few session tracks.
func (s *Scorer) recentEnergies(ctx context.Context, sctx ScoringContext) []float64 {
	history := sctx.SessionTrackIDs
	if len(history) > sessionFlowWindow {
		history = history[len(history)-sessionFlowWindow:]
	}
	energies := make([]float64, 0, len(history))
	for _, id := range history {
		audio, err := s.features.GetAudio(ctx, id)
		if err != nil || audio == nil {
			continue
		}
		energies = append(energies, audio.Energy)
	}
	return energies
}

// userSnapshot is the cached user-aggregate view scoring works from.
// Methods are nil-safe so a missing snapshot degrades instead of failing.
type userSnapshot struct {
	topArtists   map[string]struct{}
	topGenres    map[string]struct{}
	energyByHour [24]float64
	hasTemporal  bool
	disliked     map[string]struct{}
	fetchedAt    time.Time
}

func (s *userSnapshot) isTopArtist(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.topArtists[id]
	return ok
}

func (s *userSnapshot) isTopGenre(genre string) bool {
	if s == nil {
		return false
	}
	_, ok := s.topGenres[genre]
	return ok
}

func (s *userSnapshot) isDisliked(trackID string) bool {
	if s == nil {
		return false
	}
	_, ok := s.disliked[trackID]
	return ok
}

// Explanation thresholds: components at or above the high mark read as a
// clear positive contribution, at or below the low mark as negative.
const (
	explainHighMark = 70.0
	explainLowMark  = 30.0
)

// componentPhrases maps each component to its positive and negative
// explanation strings. Penalties only have the negative form.
var componentPhrases = map[Component][2]string{
	ComponentBasePreference:    {"matches your artist and genre taste", "outside your usual taste"},
	ComponentModelPrediction:   {"the model predicts you will like this", "the model predicts you may not like this"},
	ComponentAudioMatch:        {"sounds similar to what's playing", "sounds very different from what's playing"},
	ComponentMoodMatch:         {"fits your current mood", "doesn't fit your current mood"},
	ComponentHarmonicFlow:      {"harmonically compatible with the current track", "harmonically distant from the current track"},
	ComponentTemporalFit:       {"suits this time of day", "unusual for this time of day"},
	ComponentSessionFlow:       {"keeps the session energy steady", "breaks the session energy flow"},
	ComponentActivityMatch:     {"fits your current activity", "doesn't fit your current activity"},
	ComponentExplorationBonus:  {"something new to explore", ""},
	ComponentSerendipity:       {"a step outside your usual rotation", ""},
	ComponentDiversity:         {"adds variety to this session", ""},
	ComponentRecentPlayPenalty: {"", "played recently"},
	ComponentDislikePenalty:    {"", "you disliked this track"},
	ComponentRepetitionPenalty: {"", "artist already repeated this session"},
}

// buildExplanation collects the phrases of components signaling a clear
// positive or negative contribution, ordered by absolute weighted
// contribution, strongest first.
func buildExplanation(components ScoreComponents, contributions map[Component]float64) []string {
	type entry struct {
		phrase string
		weight float64
	}
	entries := make([]entry, 0, len(components))

	for comp, value := range components {
		phrases := componentPhrases[comp]
		var phrase string
		switch {
		case comp.IsPenalty():
			if value > 0 {
				phrase = phrases[1]
			}
		case value >= explainHighMark:
			phrase = phrases[0]
		case value <= explainLowMark:
			phrase = phrases[1]
		}
		if phrase == "" {
			continue
		}
		entries = append(entries, entry{phrase: phrase, weight: math.Abs(contributions[comp])})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].weight > entries[j].weight
	})

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.phrase
	}
	return out
}

// scoreCache retains the most recent scores keyed by track ID with FIFO
// eviction. It is owned by the scorer; nothing else mutates it.
type scoreCache struct {
	mu      sync.Mutex
	cap     int
	entries map[string]*TrackScore
	order   []string
}

func newScoreCache(capacity int) *scoreCache {
	if capacity <= 0 {
		capacity = 100
	}
	return &scoreCache{
		cap:     capacity,
		entries: make(map[string]*TrackScore, capacity),
	}
}

// add inserts or replaces the score for a track. A replaced track keeps
// its queue position; new tracks evict the oldest entry once the cache is
// at capacity.
func (c *scoreCache) add(score *TrackScore) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[score.TrackID]; exists {
		c.entries[score.TrackID] = score
		return
	}
	if len(c.order) >= c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[score.TrackID] = score
	c.order = append(c.order, score.TrackID)
}

func (c *scoreCache) get(trackID string) (*TrackScore, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	score, ok := c.entries[trackID]
	if ok {
		metrics.ScoreCacheHits.Inc()
	} else {
		metrics.ScoreCacheMisses.Inc()
	}
	return score, ok
}

func (c *scoreCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}
