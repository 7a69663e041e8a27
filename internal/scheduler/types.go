// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package scheduler

import (
	"context"
	"time"

	"github.com/tomtom215/stanza/internal/config"
	"github.com/tomtom215/stanza/internal/models"
)

// State is the scheduler's lifecycle state.
type State string

// Scheduler states.
const (
	StateIdle      State = "idle"
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateRetryWait State = "retry_wait"
)

// Recomputer performs recomputations. The coordinator implements it.
type Recomputer interface {
	RebuildAll(ctx context.Context) error
	ApplyNewItem(ctx context.Context, itemID int64) error
}

// RunSink persists run records.
type RunSink interface {
	PutRun(r *models.RunRecord) error
}

// Config holds scheduling settings.
type Config struct {
	// DebounceDelay is measured from the first notification of a batch.
	DebounceDelay time.Duration

	// Budget is the wall-clock limit of one run.
	Budget time.Duration

	// MaxRetries bounds retries after a failed run.
	MaxRetries int

	// RetryBaseDelay is multiplied by the retry number.
	RetryBaseDelay time.Duration

	// HistorySize is the number of run records kept in memory.
	HistorySize int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay:  30 * time.Second,
		Budget:         300 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 60 * time.Second,
		HistorySize:    50,
	}
}

// ConfigFrom maps the application configuration section.
func ConfigFrom(c config.SchedulerConfig) Config {
	return Config{
		DebounceDelay:  c.DebounceDelay,
		Budget:         c.Budget,
		MaxRetries:     c.MaxRetries,
		RetryBaseDelay: c.RetryBaseDelay,
		HistorySize:    c.HistorySize,
	}
}

// ManualResult is the answer to TriggerManual.
type ManualResult struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
	RunID   string `json:"run_id,omitempty"`
}

// EffectiveConfig is the configuration reported by Status.
type EffectiveConfig struct {
	DebounceDelay   time.Duration `json:"debounce_delay_ns"`
	Budget          time.Duration `json:"budget_ns"`
	MaxRetries      int           `json:"max_retries"`
	RetryBaseDelay  time.Duration `json:"retry_base_delay_ns"`
	SampleInterval  time.Duration `json:"sample_interval_ns,omitempty"`
	CPUThreshold    float64       `json:"cpu_threshold,omitempty"`
	MemoryThreshold float64       `json:"memory_threshold,omitempty"`
}

// Status is a point-in-time copy of the scheduler state.
type Status struct {
	State            State             `json:"state"`
	PendingBatchSize int               `json:"pending_batch_size"`
	PendingItemIDs   []int64           `json:"pending_item_ids"`
	RetryCount       int               `json:"retry_count"`
	LastSuccessTime  *time.Time        `json:"last_success_time,omitempty"`
	LastRun          *models.RunRecord `json:"last_run_record,omitempty"`
	Config           EffectiveConfig   `json:"config"`
}

// plan is the recomputation a run performs.
type plan struct {
	op     string
	itemID int64
}

// planFor picks the cheap path when the batch is exactly one new item.
func planFor(batch []models.ChangeReason) plan {
	if len(batch) == 1 && batch[0].Kind == models.ReasonNewItems && batch[0].Delta == 1 && batch[0].LatestID > 0 {
		return plan{op: models.OperationApplyNewItem, itemID: batch[0].LatestID}
	}
	return plan{op: models.OperationRebuildAll}
}

// pendingItemIDs lists the latest item id of each new-items reason.
func pendingItemIDs(batch []models.ChangeReason) []int64 {
	ids := make([]int64, 0, len(batch))
	for _, r := range batch {
		if r.Kind == models.ReasonNewItems && r.LatestID > 0 {
			ids = append(ids, r.LatestID)
		}
	}
	return ids
}
