// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/aural/internal/recommend"
)

// Key layout for the training log.
const (
	eventKeyPrefix     = "event:"
	eventCounterKey    = "event_counter"
	trainingInfoKey    = "training:info"
	eventKeyTimestamps = 8
)

// TrainingLog is an append-only record of user feedback events plus
// bookkeeping for the incremental training cycle. Event keys embed the
// event timestamp so prefix iteration yields chronological order.
type TrainingLog struct {
	store *Store
}

// eventKey builds a chronologically ordered key for an event. The uuid
// suffix disambiguates events recorded within the same nanosecond.
func eventKey(ts time.Time) []byte {
	key := make([]byte, 0, len(eventKeyPrefix)+eventKeyTimestamps+16)
	key = append(key, eventKeyPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(ts.UnixNano()))
	id := uuid.New()
	return append(key, id[:]...)
}

// RecordEvent appends a feedback event and bumps the new-event counter.
func (l *TrainingLog) RecordEvent(ctx context.Context, event recommend.UserEvent) error {
	if event.TrackID == "" {
		return errors.New("record event: empty track ID")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = l.store.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(eventKey(event.Timestamp), data); err != nil {
			return fmt.Errorf("set event: %w", err)
		}
		count, err := readCounter(txn)
		if err != nil {
			return err
		}
		return writeCounter(txn, count+1)
	})
	if err != nil {
		return err
	}

	l.store.logger.Debug().
		Str("track_id", event.TrackID).
		Str("type", string(event.Type)).
		Msg("feedback event recorded")
	return nil
}

// NewEventCount returns the number of events recorded since the last
// completed training.
func (l *TrainingLog) NewEventCount(ctx context.Context) (int, error) {
	var count uint64
	err := l.store.db.View(func(txn *badger.Txn) error {
		var err error
		count, err = readCounter(txn)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("read event counter: %w", err)
	}
	return int(count), nil
}

// LastTrainingInfo returns metadata for the last completed training, or
// nil if the model has never been trained.
func (l *TrainingLog) LastTrainingInfo(ctx context.Context) (*recommend.TrainingInfo, error) {
	var info *recommend.TrainingInfo
	err := l.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(trainingInfoKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decoded recommend.TrainingInfo
			if err := json.Unmarshal(val, &decoded); err != nil {
				return fmt.Errorf("unmarshal training info: %w", err)
			}
			info = &decoded
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read training info: %w", err)
	}
	return info, nil
}

// MarkTrainingComplete records a completed training at the given model
// version and resets the new-event counter in a single transaction.
func (l *TrainingLog) MarkTrainingComplete(ctx context.Context, version int) error {
	info := recommend.TrainingInfo{Version: version, TrainedAt: time.Now()}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal training info: %w", err)
	}

	err = l.store.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(trainingInfoKey), data); err != nil {
			return fmt.Errorf("set training info: %w", err)
		}
		return writeCounter(txn, 0)
	})
	if err != nil {
		return err
	}

	l.store.logger.Info().
		Int("version", version).
		Msg("training marked complete")
	return nil
}

// FullDataset assembles the labeled dataset from the full event history,
// partitioned by the label each event implies. Samples carry only track
// IDs; the trainer enriches them with features before fitting.
func (l *TrainingLog) FullDataset(ctx context.Context) (*recommend.TrainingDataset, error) {
	ds := &recommend.TrainingDataset{}

	err := l.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(eventKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var event recommend.UserEvent
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			})
			if err != nil {
				return fmt.Errorf("unmarshal event: %w", err)
			}

			sample := recommend.TrainingSample{
				TrackID: event.TrackID,
				Label:   event.Label(),
			}
			switch sample.Label {
			case 1:
				ds.Positive = append(ds.Positive, sample)
			case 0:
				ds.Negative = append(ds.Negative, sample)
			default:
				ds.Partial = append(ds.Partial, sample)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assemble training dataset: %w", err)
	}
	return ds, nil
}

func readCounter(txn *badger.Txn) (uint64, error) {
	item, err := txn.Get([]byte(eventCounterKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var count uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("corrupt event counter: %d bytes", len(val))
		}
		count = binary.BigEndian.Uint64(val)
		return nil
	})
	return count, err
}

func writeCounter(txn *badger.Txn, count uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, count)
	return txn.Set([]byte(eventCounterKey), buf)
}
