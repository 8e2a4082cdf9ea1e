// Aural - Personal Music Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/aural

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tomtom215/aural/internal/metrics"
	"github.com/tomtom215/aural/internal/recommend"
)

// RecommendCore is the slice of the recommendation core the HTTP layer
// consumes.
type RecommendCore interface {
	Score(ctx context.Context, track recommend.Track, feats *recommend.AggregatedFeatures, sctx recommend.ScoringContext) (*recommend.TrackScore, error)
	ScoreBatch(ctx context.Context, tracks []recommend.Track, sctx recommend.ScoringContext) ([]*recommend.TrackScore, error)
	RankCandidates(ctx context.Context, tracks []recommend.Track, sctx recommend.ScoringContext) ([]*recommend.TrackScore, error)
	GenerateRadio(ctx context.Context, seed recommend.RadioSeed, count int, sctx recommend.ScoringContext) ([]recommend.Track, error)
	ResetRadioSession(seed recommend.RadioSeed)
	ExplainScore(trackID string) ([]string, error)
	OnUserEvent(event recommend.UserEvent)
	Train(ctx context.Context) (*recommend.TrainingResult, error)
	GetTrainingStatus() recommend.TrainingStatus
	ModelInfo() recommend.ModelInfo
}

// EventRecorder persists user feedback events for future training runs.
type EventRecorder interface {
	RecordEvent(ctx context.Context, event recommend.UserEvent) error
	NewEventCount(ctx context.Context) (int, error)
}

// defaultRadioCount is the batch size when a radio request omits count.
const defaultRadioCount = 20

// Handler serves the recommendation endpoints.
type Handler struct {
	core      RecommendCore
	events    EventRecorder
	logger    zerolog.Logger
	startedAt time.Time
}

// NewHandler creates the endpoint handler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(core RecommendCore, events EventRecorder, logger zerolog.Logger) *Handler {
	return &Handler{
		core:      core,
		events:    events,
		logger:    logger.With().Str("component", "api").Logger(),
		startedAt: time.Now(),
	}
}

// Score handles POST /api/v1/score.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ScoreRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	start := time.Now()
	score, err := h.core.Score(r.Context(), req.Track.toTrack(), nil, req.Context.toScoringContext(time.Now()))
	metrics.RecordScore(time.Since(start), err)
	if err != nil {
		h.coreError(rw, err, "score track")
		return
	}

	rw.Success(score)
}

// ScoreBatch handles POST /api/v1/score/batch. Scores are returned in
// input order.
func (h *Handler) ScoreBatch(w http.ResponseWriter, r *http.Request) {
	h.scoreMany(w, r, h.core.ScoreBatch)
}

// Rank handles POST /api/v1/rank. Scores are returned best first.
func (h *Handler) Rank(w http.ResponseWriter, r *http.Request) {
	h.scoreMany(w, r, h.core.RankCandidates)
}

func (h *Handler) scoreMany(
	w http.ResponseWriter,
	r *http.Request,
	fn func(context.Context, []recommend.Track, recommend.ScoringContext) ([]*recommend.TrackScore, error),
) {
	rw := NewResponseWriter(w, r)

	var req ScoreBatchRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	tracks := make([]recommend.Track, len(req.Tracks))
	for i, p := range req.Tracks {
		tracks[i] = p.toTrack()
	}

	start := time.Now()
	scores, err := fn(r.Context(), tracks, req.Context.toScoringContext(time.Now()))
	metrics.RecordScoreBatch(time.Since(start), len(tracks))
	if err != nil {
		h.coreError(rw, err, "score batch")
		return
	}

	rw.SuccessWithMeta(scores, &APIMeta{Count: len(scores)})
}

// Radio handles POST /api/v1/radio.
func (h *Handler) Radio(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req RadioRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	seed, err := parseSeed(req.SeedType, req.SeedID)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	count := req.Count
	if count == 0 {
		count = defaultRadioCount
	}

	start := time.Now()
	tracks, err := h.core.GenerateRadio(r.Context(), seed, count, req.Context.toScoringContext(time.Now()))
	metrics.RecordRadioBatch(req.SeedType, time.Since(start), err == nil && len(tracks) < count)
	if err != nil {
		h.coreError(rw, err, "generate radio batch")
		return
	}

	rw.SuccessWithMeta(tracks, &APIMeta{Count: len(tracks)})
}

// RadioReset handles POST /api/v1/radio/reset. It discards the drift and
// history state of the identified radio session.
func (h *Handler) RadioReset(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req RadioResetRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	seed, err := parseSeed(req.SeedType, req.SeedID)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	h.core.ResetRadioSession(seed)
	rw.NoContent()
}

// Explain handles GET /api/v1/explain/{trackID}. The track must have
// been scored recently enough to still be in the result cache.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	trackID := chi.URLParam(r, "trackID")
	reasons, err := h.core.ExplainScore(trackID)
	if err != nil {
		if errors.Is(err, recommend.ErrNoRecentScore) {
			rw.NotFound("No recent score for track " + trackID)
			return
		}
		h.coreError(rw, err, "explain score")
		return
	}

	rw.Success(map[string]interface{}{
		"track_id": trackID,
		"reasons":  reasons,
	})
}

// Feedback handles POST /api/v1/feedback. The event is persisted to the
// training log and applied to live session state.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req FeedbackRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	event := req.toEvent()
	if err := h.events.RecordEvent(r.Context(), event); err != nil {
		h.logger.Error().Err(err).Str("track_id", event.TrackID).Msg("Failed to persist feedback event")
		rw.InternalError("Failed to record feedback")
		return
	}

	h.core.OnUserEvent(event)
	metrics.RecordFeedbackEvent(req.Type)
	if pending, err := h.events.NewEventCount(r.Context()); err == nil {
		metrics.StorageEventLogEntries.Set(float64(pending))
	}

	rw.Accepted(map[string]string{
		"track_id": event.TrackID,
		"type":     string(event.Type),
	})
}

// TrainingStatus handles GET /api/v1/training/status.
func (h *Handler) TrainingStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := h.core.GetTrainingStatus()
	pending, err := h.events.NewEventCount(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to read pending event count")
		pending = -1
	}

	rw.Success(map[string]interface{}{
		"status":         status,
		"pending_events": pending,
	})
}

// TrainingRun handles POST /api/v1/training/run. Training runs
// synchronously; rejected runs (busy, too little data) come back as an
// unsuccessful result rather than an HTTP error.
func (h *Handler) TrainingRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	result, err := h.core.Train(r.Context())
	if err != nil {
		h.coreError(rw, err, "run training")
		return
	}

	if result.Success {
		metrics.RecordModel(result.Model.Version, result.Metrics.Accuracy)
	}

	rw.Success(result)
}

// Model handles GET /api/v1/model.
func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	rw.Success(h.core.ModelInfo())
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	info := h.core.ModelInfo()
	rw.Success(map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"model_version":  info.Version,
	})
}

// HealthLive handles GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready. Readiness requires the
// event log to answer, proving storage is reachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if _, err := h.events.NewEventCount(r.Context()); err != nil {
		rw.ServiceUnavailable("Storage not reachable")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

// coreError maps core failures onto HTTP responses.
func (h *Handler) coreError(rw *ResponseWriter, err error, action string) {
	h.logger.Error().Err(err).Str("action", action).Msg("Core operation failed")

	if errors.Is(err, recommend.ErrProviderUnavailable) {
		rw.ServiceUnavailable("A data provider is unavailable")
		return
	}
	rw.InternalError("Failed to " + action)
}
