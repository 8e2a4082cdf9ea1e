// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/aural/internal/logging"
	"github.com/tomtom215/aural/internal/middleware"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	// CORSAllowedOrigins lists allowed origins. Empty means no
	// cross-origin access; a personal deployment typically lists its
	// player frontend here.
	CORSAllowedOrigins []string

	// RateLimitRequests is the per-IP request budget per window for the
	// scoring endpoints. Default: 300.
	RateLimitRequests int

	// RateLimitWindow is the rate limiting window. Default: 1m.
	RateLimitWindow time.Duration

	// RateLimitDisabled turns rate limiting off, for tests and trusted
	// local deployments.
	RateLimitDisabled bool
}

// DefaultRouterConfig returns the default HTTP surface settings.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSAllowedOrigins: []string{},
		RateLimitRequests:  300,
		RateLimitWindow:    time.Minute,
	}
}

// NewRouter assembles the full route tree around the handler.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.RateLimitRequests <= 0 {
		cfg.RateLimitRequests = 300
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}

	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))

	// Health endpoints stay outside the rate limit so liveness probes
	// never get throttled.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		if !cfg.RateLimitDisabled {
			r.Use(httprate.Limit(
				cfg.RateLimitRequests,
				cfg.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
		}
		r.Use(middleware.Prometheus)

		r.Post("/score", h.Score)
		r.Post("/score/batch", h.ScoreBatch)
		r.Post("/rank", h.Rank)

		r.Post("/radio", h.Radio)
		r.Post("/radio/reset", h.RadioReset)

		r.Get("/explain/{trackID}", h.Explain)
		r.Post("/feedback", h.Feedback)

		r.Get("/training/status", h.TrainingStatus)
		r.Post("/training/run", h.TrainingRun)
		r.Get("/model", h.Model)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// RequestIDWithLogging assigns each request an ID and threads it through
// the logging context, so every log line for a request carries the same
// request_id field.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
			}

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
