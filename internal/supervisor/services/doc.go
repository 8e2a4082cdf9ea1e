// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

// Package services provides Suture service wrappers for Aural components.
//
// Each wrapper translates a component's lifecycle into suture's
// context-aware Serve pattern: blocking loops watch ctx.Done, blocking
// servers run in a goroutine with graceful shutdown on cancellation.
// Wrappers hold interfaces rather than concrete types so tests can
// substitute mocks without pulling in the wrapped component.
package services
