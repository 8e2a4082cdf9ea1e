// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package recommend

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// seedKey identifies a radio session. Typed keys rather than formatted
// strings, so a seed ID containing a separator can never collide with
// another seed type.
type seedKey struct {
	Type SeedType
	ID   string
}

// radioSession is the per-seed state mutated by every generate call. The
// session mutex serializes concurrent generates for the same seed so the
// played set and drift stay consistent.
type radioSession struct {
	mu     sync.Mutex
	played map[string]struct{}
	drift  int
}

// Generator produces radio queues anchored on a seed. Seed influence
// decays as a session serves tracks, shifting selection from seed-anchored
// toward randomized.
type Generator struct {
	cfg     *Config
	scorer  *Scorer
	catalog Catalog
	logger  zerolog.Logger

	sessionsMu sync.Mutex
	sessions   map[seedKey]*radioSession

	// rng drives score perturbation and the biased shuffle. Guarded
	// separately because sessions for different seeds generate in
	// parallel.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewGenerator creates a radio generator.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewGenerator(cfg *Config, scorer *Scorer, catalog Catalog, logger zerolog.Logger) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = 42
	}
	return &Generator{
		cfg:      cfg,
		scorer:   scorer,
		catalog:  catalog,
		logger:   logger.With().Str("component", "radio").Logger(),
		sessions: make(map[seedKey]*radioSession),
		rng:      rand.New(rand.NewSource(seed)), //nolint:gosec // perturbation, not security
	}
}

// Generate returns up to count tracks for the seed's session, ordered
// strongest matches first with a biased shuffle of the middle. Each call
// advances the session: served tracks are excluded from later calls and
// drift grows by the number served.
func (g *Generator) Generate(ctx context.Context, seed RadioSeed, count int, sctx ScoringContext) ([]Track, error) {
	if count <= 0 {
		return nil, nil
	}

	session := g.session(seed)
	session.mu.Lock()
	defer session.mu.Unlock()

	seedWeight := math.Max(g.cfg.Radio.SeedWeightFloor,
		g.cfg.Radio.SeedWeightStart-float64(session.drift)*g.cfg.Radio.SeedWeightDecay)

	candidates, err := g.fetchCandidates(ctx, seed, count*g.cfg.Radio.CandidateMultiplier)
	if err != nil {
		return nil, err
	}

	fresh := make([]Track, 0, len(candidates))
	for _, t := range candidates {
		if _, played := session.played[t.ID]; !played {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) < count {
		// Played-track exclusion is never relaxed; the call returns short.
		g.logger.Warn().
			Str("seed_type", seed.Type.String()).
			Str("seed_id", seed.ID).
			Int("requested", count).
			Int("available", len(fresh)).
			Msg("fresh candidate pool smaller than requested count")
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	radioCtx := sctx
	radioCtx.QueueMode = QueueModeRadio
	radioCtx.Drift = session.drift

	scores, err := g.scorer.ScoreBatch(ctx, fresh, radioCtx)
	if err != nil {
		return nil, fmt.Errorf("score radio candidates: %w", err)
	}

	ranked := g.perturb(fresh, scores, seedWeight)
	selected := g.selectWithArtistCap(ranked, count)
	g.biasedShuffle(selected)

	for _, t := range selected {
		session.played[t.ID] = struct{}{}
	}
	session.drift += len(selected)

	g.logger.Debug().
		Str("seed_type", seed.Type.String()).
		Str("seed_id", seed.ID).
		Int("selected", len(selected)).
		Int("drift", session.drift).
		Float64("seed_weight", seedWeight).
		Msg("radio batch generated")
	return selected, nil
}

// ResetSession discards a seed's played set and drift, restoring the
// initial seed influence on the next generate call.
func (g *Generator) ResetSession(seed RadioSeed) {
	g.sessionsMu.Lock()
	session, ok := g.sessions[seedKey{Type: seed.Type, ID: seed.ID}]
	g.sessionsMu.Unlock()
	if !ok {
		return
	}

	session.mu.Lock()
	session.played = make(map[string]struct{})
	session.drift = 0
	session.mu.Unlock()
	g.logger.Debug().
		Str("seed_type", seed.Type.String()).
		Str("seed_id", seed.ID).
		Msg("radio session reset")
}

// Drift returns the current drift for a seed's session, zero if none.
func (g *Generator) Drift(seed RadioSeed) int {
	g.sessionsMu.Lock()
	session, ok := g.sessions[seedKey{Type: seed.Type, ID: seed.ID}]
	g.sessionsMu.Unlock()
	if !ok {
		return 0
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.drift
}

// session resolves or lazily creates the session for a seed.
func (g *Generator) session(seed RadioSeed) *radioSession {
	key := seedKey{Type: seed.Type, ID: seed.ID}
	g.sessionsMu.Lock()
	defer g.sessionsMu.Unlock()
	if s, ok := g.sessions[key]; ok {
		return s
	}
	s := &radioSession{played: make(map[string]struct{})}
	g.sessions[key] = s
	return s
}

// fetchCandidates runs the seed-type candidate strategy and deduplicates
// by track ID, preserving first occurrence order. Secondary sources
// degrade on error; a failed primary source fails the fetch.
func (g *Generator) fetchCandidates(ctx context.Context, seed RadioSeed, limit int) ([]Track, error) {
	var (
		primary []Track
		err     error
	)

	switch seed.Type {
	case SeedTrack:
		primary, err = g.catalog.Candidates(ctx, CandidateQuery{SimilarTo: seed.ID, Limit: limit})
		if err == nil {
			primary = append(primary, g.secondary(ctx, CandidateQuery{Discovery: true, Limit: limit / 3})...)
		}
	case SeedArtist:
		primary, err = g.catalog.TracksByArtist(ctx, seed.ID)
		if err == nil {
			if len(primary) > limit/2 {
				primary = primary[:limit/2]
			}
			primary = append(primary, g.secondary(ctx, CandidateQuery{Discovery: true, Limit: limit / 2})...)
		}
	case SeedGenre:
		primary, err = g.catalog.TracksByGenre(ctx, seed.ID)
	case SeedMood:
		primary, err = g.catalog.Candidates(ctx, CandidateQuery{Mood: Mood(seed.ID), Discovery: true, Limit: limit})
	case SeedPlaylist:
		primary, err = g.catalog.PlaylistTracks(ctx, seed.ID)
		if err == nil {
			expand := g.cfg.Radio.PlaylistExpansion
			if expand > len(primary) {
				expand = len(primary)
			}
			for _, t := range primary[:expand] {
				primary = append(primary, g.secondary(ctx, CandidateQuery{SimilarTo: t.ID, Limit: limit / (expand + 1)})...)
			}
		}
	default:
		return nil, fmt.Errorf("unknown seed type %d", seed.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fetch candidates for %s seed: %v", ErrProviderUnavailable, seed.Type, err)
	}

	seen := make(map[string]struct{}, len(primary))
	out := make([]Track, 0, len(primary))
	for _, t := range primary {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// secondary fetches an enrichment source, degrading to empty on error.
func (g *Generator) secondary(ctx context.Context, q CandidateQuery) []Track {
	tracks, err := g.catalog.Candidates(ctx, q)
	if err != nil {
		g.logger.Debug().Err(err).Msg("secondary candidate source unavailable")
		return nil
	}
	return tracks
}

// rankedTrack pairs a candidate with its perturbed score.
type rankedTrack struct {
	track    Track
	adjusted float64
}

// perturb blends each score with a uniform random draw weighted by the
// inverse seed weight, then sorts descending. Low seed weight means high
// randomization. Tracks whose score slot is nil rank last.
func (g *Generator) perturb(tracks []Track, scores []*TrackScore, seedWeight float64) []rankedTrack {
	ranked := make([]rankedTrack, len(tracks))
	for i, t := range tracks {
		adjusted := math.Inf(-1)
		if scores[i] != nil {
			s := scores[i].FinalScore
			adjusted = s*seedWeight + s*(1-seedWeight)*g.uniform()
		}
		ranked[i] = rankedTrack{track: t, adjusted: adjusted}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].adjusted > ranked[j].adjusted
	})
	return ranked
}

// selectWithArtistCap takes up to count tracks from the ranked list,
// admitting at most MaxPerArtist per artist. If the cap leaves the batch
// short, it relaxes and fills from the skipped tracks in their ranked
// order.
func (g *Generator) selectWithArtistCap(ranked []rankedTrack, count int) []Track {
	perArtist := make(map[string]int)
	selected := make([]Track, 0, count)
	skipped := make([]Track, 0)

	for _, r := range ranked {
		if len(selected) >= count {
			break
		}
		if perArtist[r.track.ArtistID] >= g.cfg.Radio.MaxPerArtist {
			skipped = append(skipped, r.track)
			continue
		}
		perArtist[r.track.ArtistID]++
		selected = append(selected, r.track)
	}

	for _, t := range skipped {
		if len(selected) >= count {
			break
		}
		selected = append(selected, t)
	}
	return selected
}

// biasedShuffle permutes only the middle of the ordered batch. The leading
// ShuffleHead fraction and trailing ShuffleTail fraction keep their sorted
// positions, so the strongest matches stay near the front without the
// ordering being fully deterministic.
func (g *Generator) biasedShuffle(tracks []Track) {
	n := len(tracks)
	if n < 4 {
		return
	}
	start := int(float64(n) * g.cfg.Radio.ShuffleHead)
	end := n - int(float64(n)*g.cfg.Radio.ShuffleTail)
	if end-start < 2 {
		return
	}

	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	middle := tracks[start:end]
	g.rng.Shuffle(len(middle), func(i, j int) {
		middle[i], middle[j] = middle[j], middle[i]
	})
}

func (g *Generator) uniform() float64 {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return g.rng.Float64()
}
