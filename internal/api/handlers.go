// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/stanza/internal/kvstore"
	"github.com/tomtom215/stanza/internal/logging"
	"github.com/tomtom215/stanza/internal/models"
	"github.com/tomtom215/stanza/internal/recommend"
	"github.com/tomtom215/stanza/internal/scheduler"
	"github.com/tomtom215/stanza/internal/vectorstore"
)

const (
	defaultRunsHours = 24
	maxRunRecords    = 100
	maxTriggerBody   = 4 << 10
)

// Recommender produces explained recommendations.
type Recommender interface {
	Explain(ctx context.Context, userID int64, limit int) *recommend.Response
}

// Scheduler is the part of the update scheduler the API drives.
type Scheduler interface {
	Status() scheduler.Status
	TriggerManual(ctx context.Context, itemID int64) scheduler.ManualResult
	History() []models.RunRecord
}

// RunLog reads persisted run records.
type RunLog interface {
	RecentRuns(since time.Time, limit int) ([]models.RunRecord, error)
}

// Preferences reads cached preference summaries.
type Preferences interface {
	GetPreference(userID int64) (*models.PreferenceSummary, error)
}

// Aggregates reads the interaction totals refreshed after each rebuild.
type Aggregates interface {
	UserInteractionTotal(ctx context.Context, userID int64) (int64, error)
}

// HealthChecker reports whether the analytics database is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// SnapshotSource provides the current vector snapshot.
type SnapshotSource interface {
	Snapshot() *vectorstore.Snapshot
}

// Deps are the collaborators of Handler. Runs and Prefs may be nil.
type Deps struct {
	Recommender Recommender
	Scheduler   Scheduler
	Runs        RunLog
	Prefs       Preferences
	Aggregates  Aggregates
	DB          HealthChecker
	Snapshots   SnapshotSource
}

// Handler serves the HTTP endpoints.
type Handler struct {
	deps    Deps
	logger  zerolog.Logger
	started time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{deps: deps, logger: logging.WithComponent("api"), started: time.Now()}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status          string    `json:"status"`
	DatabaseOK      bool      `json:"database_ok"`
	SnapshotItems   int       `json:"snapshot_items"`
	SnapshotVersion uint64    `json:"snapshot_version"`
	SnapshotBuiltAt time.Time `json:"snapshot_built_at,omitempty"`
	SchedulerState  string    `json:"scheduler_state"`
	UptimeSeconds   float64   `json:"uptime_seconds"`
}

// Health reports liveness. It answers 503 when the database is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	resp := HealthResponse{
		Status:        "healthy",
		DatabaseOK:    true,
		UptimeSeconds: time.Since(h.started).Seconds(),
	}
	if h.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.DB.Ping(ctx); err != nil {
			logger := logging.Ctx(r.Context(), h.logger)
			logger.Warn().Err(err).Msg("Health check: database unreachable")
			resp.DatabaseOK = false
			resp.Status = "degraded"
		}
	}
	if h.deps.Snapshots != nil {
		snap := h.deps.Snapshots.Snapshot()
		resp.SnapshotItems = snap.Len()
		resp.SnapshotVersion = snap.Version()
		resp.SnapshotBuiltAt = snap.BuiltAt()
	}
	if h.deps.Scheduler != nil {
		resp.SchedulerState = string(h.deps.Scheduler.Status().State)
	}

	if !resp.DatabaseOK {
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     resp,
			Metadata: models.Metadata{Timestamp: time.Now().UTC()},
			Error:    &models.APIError{Code: ErrCodeUnavailable, Message: "Database unreachable"},
		})
		return
	}
	respondSuccess(w, resp, start)
}

// RecommendationsResponse is the default body of the user endpoint.
type RecommendationsResponse struct {
	UserID int64   `json:"user_id"`
	Items  []int64 `json:"items"`
}

// GetRecommendations returns ranked item ids for a user. With explain=true
// the full scoring breakdown is returned instead.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidUserID, "User ID must be an integer", nil)
		return
	}
	req := RecommendationsRequest{UserID: userID, Limit: getIntParam(r, "limit", 0)}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	resp := h.deps.Recommender.Explain(r.Context(), req.UserID, req.Limit)

	if explain, _ := strconv.ParseBool(r.URL.Query().Get("explain")); explain {
		respondSuccess(w, resp, start)
		return
	}
	respondSuccess(w, RecommendationsResponse{UserID: resp.UserID, Items: resp.IDs()}, start)
}

// GetStatus returns the scheduler status.
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	respondSuccess(w, h.deps.Scheduler.Status(), start)
}

// Trigger requests an immediate recomputation. The body is optional; an
// item_id asks for the single-item append path.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req TriggerRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Failed to read request body", err)
		return
	}
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Request body must be JSON", nil)
			return
		}
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	logger := logging.Ctx(r.Context(), h.logger)
	logger.Info().Int64("item_id", req.ItemID).Msg("Manual recomputation requested")
	result := h.deps.Scheduler.TriggerManual(r.Context(), req.ItemID)

	switch {
	case result.Success:
		respondSuccess(w, result, start)
	case strings.HasPrefix(result.Detail, "busy:"):
		respondErrorDetails(w, http.StatusConflict, ErrCodeUpdateBusy, result.Detail,
			map[string]interface{}{"state": strings.TrimSpace(strings.TrimPrefix(result.Detail, "busy:"))}, nil)
	default:
		details := map[string]interface{}{}
		if result.RunID != "" {
			details["run_id"] = result.RunID
		}
		respondErrorDetails(w, http.StatusInternalServerError, ErrCodeUpdateFailed, result.Detail, details, nil)
	}
}

// RunsResponse is the body of the run log endpoint.
type RunsResponse struct {
	Hours  int                `json:"hours"`
	Source string             `json:"source"`
	Runs   []models.RunRecord `json:"runs"`
}

// GetRuns returns run records from the last N hours, newest first. When no
// persisted log is configured, or it fails, the in-memory history is used.
func (h *Handler) GetRuns(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req := RunsRequest{Hours: getIntParam(r, "hours", defaultRunsHours)}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}
	since := time.Now().Add(-time.Duration(req.Hours) * time.Hour)

	if h.deps.Runs != nil {
		runs, err := h.deps.Runs.RecentRuns(since, maxRunRecords)
		if err == nil {
			respondSuccess(w, RunsResponse{Hours: req.Hours, Source: "store", Runs: runs}, start)
			return
		}
		logger := logging.Ctx(r.Context(), h.logger)
		logger.Warn().Err(err).Msg("Run log unavailable, falling back to in-memory history")
	}

	runs := make([]models.RunRecord, 0)
	for _, rec := range h.deps.Scheduler.History() {
		if rec.StartedAt.Before(since) {
			continue
		}
		runs = append(runs, rec)
		if len(runs) == maxRunRecords {
			break
		}
	}
	respondSuccess(w, RunsResponse{Hours: req.Hours, Source: "memory", Runs: runs}, start)
}

// PreferencesResponse is the body of GET /users/{userID}/preferences.
// AggregatedInteractions is the user's total as of the last full rebuild and
// is omitted when the aggregates cannot be read.
type PreferencesResponse struct {
	models.PreferenceSummary
	AggregatedInteractions *int64 `json:"aggregated_interactions,omitempty"`
}

// GetPreferences returns the cached preference summary of a user.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidUserID, "User ID must be a positive integer", nil)
		return
	}
	if h.deps.Prefs == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "Preference cache disabled", nil)
		return
	}

	summary, err := h.deps.Prefs.GetPreference(userID)
	if errors.Is(err, kvstore.ErrNotFound) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "No preference summary for user", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to read preference summary", err)
		return
	}

	resp := PreferencesResponse{PreferenceSummary: *summary}
	if h.deps.Aggregates != nil {
		total, err := h.deps.Aggregates.UserInteractionTotal(r.Context(), userID)
		if err != nil {
			logger := logging.Ctx(r.Context(), h.logger)
			logger.Warn().Err(err).Int64("user_id", userID).
				Msg("Failed to read interaction aggregates")
		} else {
			resp.AggregatedInteractions = &total
		}
	}
	respondSuccess(w, resp, start)
}
