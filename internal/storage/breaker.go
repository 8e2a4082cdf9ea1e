// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/aural/internal/metrics"
	"github.com/tomtom215/aural/internal/recommend"
)

// featureBreakerName labels the feature store breaker in logs and metrics.
const featureBreakerName = "feature-store"

// BreakerFeatureStore wraps a feature store with circuit breaker
// protection. Feature lookups hit the media server's analysis backend,
// which can be unavailable or slow; the breaker prevents every score
// request from stalling on a dead backend.
//
// The breaker uses real time (via sony/gobreaker) for its interval and
// timeout calculations. Tests should exercise the wrapped store directly
// rather than trying to drive the breaker clock.
type BreakerFeatureStore struct {
	inner  recommend.FeatureStore
	cb     *gobreaker.CircuitBreaker[interface{}]
	logger zerolog.Logger
}

// NewBreakerFeatureStore wraps inner with a circuit breaker.
// Configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBreakerFeatureStore(inner recommend.FeatureStore, logger zerolog.Logger) *BreakerFeatureStore {
	componentLogger := logger.With().Str("component", "feature_breaker").Logger()

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        featureBreakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				componentLogger.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("opening feature store circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			componentLogger.Info().
				Str("from", breakerStateString(from)).
				Str("to", breakerStateString(to)).
				Msg("feature store circuit state transition")
		},
	})

	return &BreakerFeatureStore{
		inner:  inner,
		cb:     cb,
		logger: componentLogger,
	}
}

// execute wraps a feature store call with breaker protection, mapping
// open-circuit rejections to ErrProviderUnavailable so the scoring layer
// degrades instead of surfacing breaker internals.
func (b *BreakerFeatureStore) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(featureBreakerName, "rejected").Inc()
			return nil, fmt.Errorf("%w: feature store circuit open", recommend.ErrProviderUnavailable)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(featureBreakerName, "failure").Inc()
		return nil, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(featureBreakerName, "success").Inc()
	return result, nil
}

// Get returns the aggregated features for a track with breaker protection.
func (b *BreakerFeatureStore) Get(ctx context.Context, trackID string) (*recommend.AggregatedFeatures, error) {
	return breakerResult[recommend.AggregatedFeatures](b.execute(func() (interface{}, error) {
		return b.inner.Get(ctx, trackID)
	}))
}

// GetAudio returns only the audio features for a track with breaker
// protection.
func (b *BreakerFeatureStore) GetAudio(ctx context.Context, trackID string) (*recommend.AudioFeatures, error) {
	return breakerResult[recommend.AudioFeatures](b.execute(func() (interface{}, error) {
		return b.inner.GetAudio(ctx, trackID)
	}))
}

// Prefetch hints upcoming lookups with breaker protection.
func (b *BreakerFeatureStore) Prefetch(ctx context.Context, trackIDs []string) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.Prefetch(ctx, trackIDs)
	})
	return err
}

// breakerResult type-casts the breaker result with error checking.
func breakerResult[T any](result interface{}, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	typed, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// breakerStateValue maps breaker states onto the gauge encoding
// 0=closed, 1=half-open, 2=open.
func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func breakerStateString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
