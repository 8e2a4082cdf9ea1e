// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

// Package api exposes the recommendation core over HTTP using the Chi
// router. All endpoints speak JSON with a standardized response
// envelope; request bodies are validated before touching the core.
package api
