// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

// Package middleware provides HTTP middleware shared across the API
// surface, currently Prometheus request instrumentation.
package middleware
