// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

// --- Test: SaveModel / LoadModel ---

func TestModelStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	models := testStore(t).Models()

	payload := bytes.Repeat([]byte("preference model weights "), 100)
	if err := models.SaveModel(ctx, "preference", payload); err != nil {
		t.Fatalf("SaveModel() error = %v", err)
	}

	loaded, err := models.LoadModel(ctx, "preference")
	if err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	if !bytes.Equal(loaded, payload) {
		t.Errorf("LoadModel() = %d bytes, want %d bytes matching saved payload", len(loaded), len(payload))
	}
}

func TestModelStore_LoadMissing(t *testing.T) {
	t.Parallel()

	models := testStore(t).Models()

	_, err := models.LoadModel(context.Background(), "absent")
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("LoadModel() error = %v, want ErrModelNotFound", err)
	}
}

func TestModelStore_Overwrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	models := testStore(t).Models()

	if err := models.SaveModel(ctx, "preference", []byte("first")); err != nil {
		t.Fatalf("SaveModel() error = %v", err)
	}
	if err := models.SaveModel(ctx, "preference", []byte("second")); err != nil {
		t.Fatalf("SaveModel() overwrite error = %v", err)
	}

	loaded, err := models.LoadModel(ctx, "preference")
	if err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	if string(loaded) != "second" {
		t.Errorf("LoadModel() = %q, want %q", loaded, "second")
	}
}

// --- Test: Metadata ---

func TestModelStore_Metadata(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	models := testStore(t).Models()

	if err := models.SaveModel(ctx, "preference", []byte("payload")); err != nil {
		t.Fatalf("SaveModel() error = %v", err)
	}

	meta, err := models.Metadata(ctx, "preference")
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if meta.Key != "preference" {
		t.Errorf("Metadata().Key = %q, want %q", meta.Key, "preference")
	}
	if meta.Checksum == "" {
		t.Error("Metadata().Checksum is empty")
	}
	if meta.SizeBytes <= 0 {
		t.Errorf("Metadata().SizeBytes = %d, want > 0", meta.SizeBytes)
	}
	if meta.SavedAt.IsZero() {
		t.Error("Metadata().SavedAt is zero")
	}

	if _, err := models.Metadata(ctx, "absent"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Metadata() error = %v, want ErrModelNotFound", err)
	}
}

// --- Test: Get / Set ---

func TestModelStore_KeyValue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	models := testStore(t).Models()

	value, err := models.Get(ctx, "absent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != nil {
		t.Errorf("Get() = %q, want nil for absent key", value)
	}

	if err := models.Set(ctx, "last_run", []byte("2026-08-30")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value, err = models.Get(ctx, "last_run")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(value) != "2026-08-30" {
		t.Errorf("Get() = %q, want %q", value, "2026-08-30")
	}
}
