// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for model storage.
const (
	modelKeyPrefix     = "model:"
	modelMetaKeyPrefix = "model_meta:"
	metaKeyPrefix      = "kv:"
)

// ErrModelNotFound is returned when no model exists under the requested
// key.
var ErrModelNotFound = errors.New("model not found")

// ModelMetadata is the JSON envelope stored alongside each model payload.
type ModelMetadata struct {
	// Key is the storage key the model lives under.
	Key string `json:"key"`

	// Checksum is the SHA-256 checksum of the uncompressed payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`

	// SavedAt is when the model was persisted.
	SavedAt time.Time `json:"saved_at"`
}

// ModelStore persists serialized classifier models with compression and
// integrity checks. It implements the core's model storage contract.
type ModelStore struct {
	store *Store
}

// SaveModel compresses and stores the payload under key, writing the
// metadata envelope in the same transaction so payload and checksum can
// never diverge.
func (m *ModelStore) SaveModel(ctx context.Context, key string, data []byte) error {
	hash := sha256.Sum256(data)

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(data); err != nil {
		return fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	meta := ModelMetadata{
		Key:       key,
		Checksum:  hex.EncodeToString(hash[:]),
		SizeBytes: int64(compressed.Len()),
		SavedAt:   time.Now(),
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal model metadata: %w", err)
	}

	err = m.store.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(modelKeyPrefix+key), compressed.Bytes()); err != nil {
			return fmt.Errorf("set model payload: %w", err)
		}
		if err := txn.Set([]byte(modelMetaKeyPrefix+key), metaData); err != nil {
			return fmt.Errorf("set model metadata: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.store.logger.Debug().
		Str("key", key).
		Int64("size_bytes", meta.SizeBytes).
		Msg("model persisted")
	return nil
}

// LoadModel returns the decompressed payload stored under key, verifying
// it against the recorded checksum. Returns ErrModelNotFound when absent.
func (m *ModelStore) LoadModel(ctx context.Context, key string) ([]byte, error) {
	var (
		compressed []byte
		meta       ModelMetadata
	)

	err := m.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(modelKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrModelNotFound
		}
		if err != nil {
			return fmt.Errorf("get model payload: %w", err)
		}
		compressed, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copy model payload: %w", err)
		}

		metaItem, err := txn.Get([]byte(modelMetaKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrModelNotFound
		}
		if err != nil {
			return fmt.Errorf("get model metadata: %w", err)
		}
		return metaItem.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	data, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed model: %w", err)
	}

	hash := sha256.Sum256(data)
	if checksum := hex.EncodeToString(hash[:]); checksum != meta.Checksum {
		return nil, fmt.Errorf("checksum mismatch for %s: expected %s, got %s", key, meta.Checksum, checksum)
	}
	return data, nil
}

// Metadata returns the stored metadata envelope for a model, or
// ErrModelNotFound.
func (m *ModelStore) Metadata(ctx context.Context, key string) (*ModelMetadata, error) {
	var meta ModelMetadata
	err := m.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(modelMetaKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrModelNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// Get returns a metadata value, or nil if absent.
func (m *ModelStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := m.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

// Set stores a metadata value.
func (m *ModelStore) Set(ctx context.Context, key string, value []byte) error {
	err := m.store.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(metaKeyPrefix+key), value)
	})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
