// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

// Package supervisor provides the Suture supervision tree for Aural.
//
// The tree is organized into three layers:
//   - data: storage maintenance (Badger value log GC)
//   - engine: the training scheduler
//   - api: the HTTP server
//
// This structure provides failure isolation: a crash in the training
// scheduler does not affect the API layer's ability to serve score
// requests against the current model.
//
// Services are plain suture.Service implementations living in the
// services subpackage. The tree wires restart backoff and shutdown
// timeouts uniformly so individual services stay free of retry logic.
package supervisor
