// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

// Package storage provides the durable collaborators of the recommendation
// core: model persistence and the training event log, both backed by
// BadgerDB.
//
// # Storage Format
//
// Models are stored gzip-compressed with a SHA-256 checksum recorded in a
// JSON metadata envelope, ensuring integrity across restarts. Training
// events are append-only records keyed by timestamp so the full dataset can
// be rebuilt by a prefix scan.
//
// # Thread Safety
//
// All operations run inside Badger transactions and are safe for
// concurrent use.
package storage
