// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package storage

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// Store owns the BadgerDB handle shared by the model store and the
// training log.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens (or creates) the database at path. An empty path opens an
// in-memory database, used by tests and ephemeral deployments.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func Open(path string, logger zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	// Badger's own logger is too chatty for the default level.
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "storage").Logger(),
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC runs one round of Badger value log garbage collection. Returns
// badger.ErrNoRewrite when there was nothing to collect, which callers
// should treat as a clean no-op. GC is a no-op on in-memory databases.
func (s *Store) RunGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}

// Models returns the model storage view of this store.
func (s *Store) Models() *ModelStore {
	return &ModelStore{store: s}
}

// TrainingLog returns the training log view of this store.
func (s *Store) TrainingLog() *TrainingLog {
	return &TrainingLog{store: s}
}
