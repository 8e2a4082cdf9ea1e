// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

type mockGarbageCollector struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (m *mockGarbageCollector) RunGC(discardRatio float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return err
	}
	return badger.ErrNoRewrite
}

func (m *mockGarbageCollector) getCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestGCService_String(t *testing.T) {
	service := NewGCService(&mockGarbageCollector{}, GCServiceConfig{}, zerolog.Nop())

	if got := service.String(); got != "storage-gc" {
		t.Errorf("String() = %q, want %q", got, "storage-gc")
	}
}

func TestGCService_RunsOnInterval(t *testing.T) {
	collector := &mockGarbageCollector{}
	cfg := GCServiceConfig{Interval: 30 * time.Millisecond}
	service := NewGCService(collector, cfg, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := service.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() returned %v, want context deadline", err)
	}
	if got := collector.getCalls(); got < 2 {
		t.Errorf("RunGC() called %d times, want >= 2", got)
	}
}

// A successful rewrite triggers another round until nothing is left.
func TestGCService_RepeatsUntilNoRewrite(t *testing.T) {
	collector := &mockGarbageCollector{errs: []error{nil, nil}}
	cfg := GCServiceConfig{Interval: 30 * time.Millisecond}
	service := NewGCService(collector, cfg, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_ = service.Serve(ctx)

	// Two rewrites plus the terminating ErrNoRewrite.
	if got := collector.getCalls(); got < 3 {
		t.Errorf("RunGC() called %d times, want >= 3", got)
	}
}

func TestGCService_ErrorAbsorbed(t *testing.T) {
	collector := &mockGarbageCollector{errs: []error{errors.New("db closed")}}
	cfg := GCServiceConfig{Interval: 30 * time.Millisecond}
	service := NewGCService(collector, cfg, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := service.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() returned %v, want context deadline despite gc error", err)
	}
}
