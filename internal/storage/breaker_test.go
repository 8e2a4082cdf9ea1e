// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/aural/internal/metrics"
	"github.com/tomtom215/aural/internal/recommend"
)

type stubFeatureStore struct {
	features map[string]*recommend.AggregatedFeatures
	err      error
	calls    int
}

func (s *stubFeatureStore) Get(ctx context.Context, trackID string) (*recommend.AggregatedFeatures, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.features[trackID], nil
}

func (s *stubFeatureStore) GetAudio(ctx context.Context, trackID string) (*recommend.AudioFeatures, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if f := s.features[trackID]; f != nil {
		return f.Audio, nil
	}
	return nil, nil
}

func (s *stubFeatureStore) Prefetch(ctx context.Context, trackIDs []string) error {
	s.calls++
	return s.err
}

// --- Test: BreakerFeatureStore ---

func TestBreakerFeatureStore_PassThrough(t *testing.T) {
	t.Parallel()

	inner := &stubFeatureStore{
		features: map[string]*recommend.AggregatedFeatures{
			"track-1": {Audio: &recommend.AudioFeatures{Energy: 0.8, Valence: 0.6}},
		},
	}
	store := NewBreakerFeatureStore(inner, testLogger())
	ctx := context.Background()

	feats, err := store.Get(ctx, "track-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if feats == nil || feats.Audio == nil || feats.Audio.Energy != 0.8 {
		t.Errorf("Get() = %+v, want passthrough of inner features", feats)
	}

	audio, err := store.GetAudio(ctx, "track-1")
	if err != nil {
		t.Fatalf("GetAudio() error = %v", err)
	}
	if audio == nil || audio.Valence != 0.6 {
		t.Errorf("GetAudio() = %+v, want inner audio features", audio)
	}

	if err := store.Prefetch(ctx, []string{"track-1"}); err != nil {
		t.Errorf("Prefetch() error = %v", err)
	}
}

func TestBreakerFeatureStore_InnerErrorPropagates(t *testing.T) {
	t.Parallel()

	innerErr := errors.New("backend down")
	store := NewBreakerFeatureStore(&stubFeatureStore{err: innerErr}, testLogger())

	_, err := store.Get(context.Background(), "track-1")
	if !errors.Is(err, innerErr) {
		t.Errorf("Get() error = %v, want inner error", err)
	}
}

func TestBreakerFeatureStore_RecordsRequestMetrics(t *testing.T) {
	// Not parallel: asserts exact deltas on shared registry counters.
	success := metrics.CircuitBreakerRequests.WithLabelValues("feature-store", "success")
	failure := metrics.CircuitBreakerRequests.WithLabelValues("feature-store", "failure")
	successBefore := testutil.ToFloat64(success)
	failureBefore := testutil.ToFloat64(failure)

	inner := &stubFeatureStore{
		features: map[string]*recommend.AggregatedFeatures{
			"track-1": {Audio: &recommend.AudioFeatures{Energy: 0.8}},
		},
	}
	store := NewBreakerFeatureStore(inner, testLogger())
	ctx := context.Background()

	if _, err := store.Get(ctx, "track-1"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := testutil.ToFloat64(success); got != successBefore+1 {
		t.Errorf("circuit_breaker_requests_total{success} = %v, want %v", got, successBefore+1)
	}

	inner.err = errors.New("backend down")
	if _, err := store.Get(ctx, "track-1"); err == nil {
		t.Fatal("Get() error = nil, want inner error")
	}
	if got := testutil.ToFloat64(failure); got != failureBefore+1 {
		t.Errorf("circuit_breaker_requests_total{failure} = %v, want %v", got, failureBefore+1)
	}
}

func TestBreakerFeatureStore_OpenCircuitMetrics(t *testing.T) {
	// Not parallel: asserts exact deltas on shared registry collectors.
	rejected := metrics.CircuitBreakerRequests.WithLabelValues("feature-store", "rejected")
	rejectedBefore := testutil.ToFloat64(rejected)

	inner := &stubFeatureStore{err: errors.New("backend down")}
	store := NewBreakerFeatureStore(inner, testLogger())
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, _ = store.Get(ctx, "track-1") //nolint:errcheck // failures are the point
	}

	if _, err := store.Get(ctx, "track-1"); !errors.Is(err, recommend.ErrProviderUnavailable) {
		t.Fatalf("Get() error = %v, want ErrProviderUnavailable once circuit opens", err)
	}
	if got := testutil.ToFloat64(rejected); got != rejectedBefore+1 {
		t.Errorf("circuit_breaker_requests_total{rejected} = %v, want %v", got, rejectedBefore+1)
	}

	gauge := metrics.CircuitBreakerState.WithLabelValues("feature-store")
	if got := testutil.ToFloat64(gauge); got != 2 {
		t.Errorf("circuit_breaker_state = %v, want 2 (open)", got)
	}
}

func TestBreakerFeatureStore_OpensAfterFailures(t *testing.T) {
	t.Parallel()

	inner := &stubFeatureStore{err: errors.New("backend down")}
	store := NewBreakerFeatureStore(inner, testLogger())
	ctx := context.Background()

	// Drive past the minimum request threshold at a 100% failure rate.
	for i := 0; i < 12; i++ {
		_, _ = store.Get(ctx, "track-1") //nolint:errcheck // failures are the point
	}

	callsBefore := inner.calls
	_, err := store.Get(ctx, "track-1")
	if !errors.Is(err, recommend.ErrProviderUnavailable) {
		t.Fatalf("Get() error = %v, want ErrProviderUnavailable once circuit opens", err)
	}
	if inner.calls != callsBefore {
		t.Errorf("inner store called %d times after circuit opened, want no calls", inner.calls-callsBefore)
	}
}
