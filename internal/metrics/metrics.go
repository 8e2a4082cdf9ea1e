// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

// Package metrics provides Prometheus instrumentation for Aural:
// scoring latency, training runs, radio generation, cache efficiency,
// and API endpoint throughput.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scoring Metrics
	ScoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "score_duration_seconds",
			Help:    "Duration of single-track scoring in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	ScoreBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "score_batch_duration_seconds",
			Help:    "Duration of batch scoring in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ScoreBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "score_batch_size",
			Help:    "Number of tracks per scoring batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	ScoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "score_errors_total",
			Help: "Total number of scoring errors",
		},
		[]string{"error_type"}, // "features", "preferences", "canceled"
	)

	// Score Cache Metrics
	ScoreCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "score_cache_hits_total",
			Help: "Total number of score cache hits",
		},
	)

	ScoreCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "score_cache_misses_total",
			Help: "Total number of score cache misses",
		},
	)

	// Training Metrics
	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of training runs by outcome",
		},
		[]string{"outcome"}, // "success", "failure", "rejected"
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Duration of training runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_version",
			Help: "Current preference model version (0 = untrained)",
		},
	)

	ModelAccuracy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_accuracy",
			Help: "Validation accuracy of the current model (0-1)",
		},
	)

	// Radio Metrics
	RadioBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radio_batches_total",
			Help: "Total number of generated radio batches by seed type",
		},
		[]string{"seed_type"},
	)

	RadioBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "radio_batch_duration_seconds",
			Help:    "Duration of radio batch generation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RadioPoolShortfalls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radio_pool_shortfalls_total",
			Help: "Total number of radio batches returned short of the requested count",
		},
	)

	// Feedback Event Metrics
	FeedbackEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_events_total",
			Help: "Total number of recorded user feedback events",
		},
		[]string{"type"}, // "like", "dislike", "play", "skip"
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	// Storage Metrics
	StorageGCRounds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storage_gc_rounds_total",
			Help: "Total number of value log GC rewrites",
		},
	)

	StorageEventLogEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storage_event_log_new_entries",
			Help: "Feedback events recorded since the last completed training",
		},
	)
)

// RecordScore records a single-track scoring metric.
func RecordScore(duration time.Duration, err error) {
	if err != nil {
		ScoreErrors.WithLabelValues("features").Inc()
		return
	}
	ScoreDuration.Observe(duration.Seconds())
}

// RecordScoreBatch records a batch scoring metric.
func RecordScoreBatch(duration time.Duration, size int) {
	ScoreBatchDuration.Observe(duration.Seconds())
	ScoreBatchSize.Observe(float64(size))
}

// RecordTraining records a completed training run.
func RecordTraining(outcome string, duration time.Duration) {
	TrainingRuns.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		TrainingDuration.Observe(duration.Seconds())
	}
}

// RecordModel updates the model version and accuracy gauges.
func RecordModel(version int, accuracy float64) {
	ModelVersion.Set(float64(version))
	ModelAccuracy.Set(accuracy)
}

// RecordRadioBatch records a generated radio batch.
func RecordRadioBatch(seedType string, duration time.Duration, short bool) {
	RadioBatches.WithLabelValues(seedType).Inc()
	RadioBatchDuration.Observe(duration.Seconds())
	if short {
		RadioPoolShortfalls.Inc()
	}
}

// RecordFeedbackEvent records a user feedback event by type.
func RecordFeedbackEvent(eventType string) {
	FeedbackEvents.WithLabelValues(eventType).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
