// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

// Package recommend implements the hybrid scoring and radio-generation core
// for a personal music library.
//
// # Architecture
//
// The core combines two families of signals into one preference score per
// (track, context) pair:
//
//   - Rule-based components: ~14 bounded signals covering preference match,
//     audio similarity, mood, harmonic compatibility, time-of-day fit,
//     session energy flow, activity fit, exploration, serendipity, diversity,
//     and three magnitude-only penalties.
//   - A trained classifier: a small dense network predicting preference
//     probability from a flattened feature vector. Its influence on the blend
//     grows smoothly with training maturity and never exceeds 0.6.
//
// On top of scoring, the Radio generator maintains per-seed sessions that
// serve non-repeating track batches, decaying the seed's influence as a
// session drifts.
//
// # Design Principles
//
//   - Deterministic: same inputs and external state produce identical scores
//     (seeded RNG for the stochastic radio steps)
//   - Degradable: a missing feature bundle omits the dependent component
//     instead of failing the whole score
//   - Auditable: every score carries a component breakdown and a
//     human-readable explanation, retained in a bounded cache
//   - Guarded: at most one training run is in flight system-wide
//
// # Usage
//
//	core, err := recommend.New(recommend.DefaultConfig(), recommend.Deps{
//	    Features:    featureStore,
//	    Users:       userStore,
//	    Catalog:     catalog,
//	    TrainingLog: trainingLog,
//	    Models:      modelStorage,
//	}, logger)
//
//	score, err := core.Score(ctx, track, nil, sctx)
//	tracks, err := core.GenerateRadio(ctx, recommend.RadioSeed{Type: recommend.SeedArtist, ID: artistID}, 20, sctx)
//
// # Thread Safety
//
// All exported types are safe for concurrent use. Scoring uses shared locks
// so concurrent requests do not serialize; training holds an exclusive guard
// and rejects (rather than queues) overlapping runs. Concurrent radio
// generation for the same seed is serialized by a per-session mutex.
//
// # Dependencies
//
// This package has no dependencies on other internal packages. External
// collaborators (feature store, user store, catalog, training log, model
// storage) are consumed through the interfaces in providers.go.
package recommend
