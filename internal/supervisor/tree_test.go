// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// blockingService runs until its context is canceled, counting starts.
type blockingService struct {
	starts atomic.Int32
	name   string
}

func (s *blockingService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingService) String() string {
	return s.name
}

func testSlogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaultTreeConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultTreeConfig()
	if cfg.FailureThreshold != 5.0 {
		t.Errorf("FailureThreshold = %v, want 5.0", cfg.FailureThreshold)
	}
	if cfg.FailureDecay != 30.0 {
		t.Errorf("FailureDecay = %v, want 30.0", cfg.FailureDecay)
	}
	if cfg.FailureBackoff != 15*time.Second {
		t.Errorf("FailureBackoff = %v, want 15s", cfg.FailureBackoff)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestNewTree_ZeroConfigDefaults(t *testing.T) {
	t.Parallel()

	tree, err := NewTree(testSlogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewTree() error = %v", err)
	}
	if tree.config.FailureThreshold != 5.0 {
		t.Errorf("FailureThreshold = %v, want default 5.0", tree.config.FailureThreshold)
	}
	if tree.Root() == nil {
		t.Error("Root() returned nil")
	}
}

func TestTree_ServesAllLayers(t *testing.T) {
	t.Parallel()

	tree, err := NewTree(testSlogger(), DefaultTreeConfig())
	if err != nil {
		t.Fatalf("NewTree() error = %v", err)
	}

	data := &blockingService{name: "data-svc"}
	engine := &blockingService{name: "engine-svc"}
	api := &blockingService{name: "api-svc"}
	tree.AddDataService(data)
	tree.AddEngineService(engine)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for data.starts.Load() == 0 || engine.starts.Load() == 0 || api.starts.Load() == 0 {
		select {
		case <-deadline:
			t.Fatalf("services not all started: data=%d engine=%d api=%d",
				data.starts.Load(), engine.starts.Load(), api.starts.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop after cancellation")
	}
}

func TestTree_RestartsCrashedService(t *testing.T) {
	t.Parallel()

	tree, err := NewTree(testSlogger(), TreeConfig{
		FailureThreshold: 100, // keep restarting through the test window
		FailureBackoff:   10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewTree() error = %v", err)
	}

	crasher := &crashingService{crashes: 2}
	tree.AddEngineService(crasher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(2 * time.Second)
	for crasher.starts.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("service started %d times, want >= 3", crasher.starts.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop after cancellation")
	}
}

// crashingService fails its first N serves, then blocks.
type crashingService struct {
	starts  atomic.Int32
	crashes int32
}

func (s *crashingService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	if n <= s.crashes {
		return errTestCrash
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *crashingService) String() string {
	return "crashing-svc"
}

var errTestCrash = errors.New("simulated crash")
