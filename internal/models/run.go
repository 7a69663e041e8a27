// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package models

import "time"

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeAborted = "aborted"
)

// Run triggers.
const (
	TriggerScheduled = "scheduled"
	TriggerRetry     = "retry"
	TriggerManual    = "manual"
)

// Recompute operations.
const (
	OperationRebuildAll   = "rebuild_all"
	OperationApplyNewItem = "apply_new_item"
)

// ResourceReport summarizes process resource usage sampled during a run.
type ResourceReport struct {
	AvgCPUPercent    float64       `json:"avg_cpu_percent"`
	AvgMemoryPercent float64       `json:"avg_memory_percent"`
	PeakCPUPercent   float64       `json:"peak_cpu_percent"`
	PeakMemPercent   float64       `json:"peak_memory_percent"`
	Samples          int           `json:"samples"`
	Duration         time.Duration `json:"duration_ns"`
	CPUExceeded      bool          `json:"cpu_exceeded"`
	MemoryExceeded   bool          `json:"memory_exceeded"`
	OverBudget       bool          `json:"over_budget"`
}

// RunRecord describes one recomputation attempt.
type RunRecord struct {
	ID         string          `json:"id"`
	Trigger    string          `json:"trigger"`
	Operation  string          `json:"operation"`
	ItemID     int64           `json:"item_id,omitempty"`
	BatchSize  int             `json:"batch_size"`
	Attempt    int             `json:"attempt"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Duration   time.Duration   `json:"duration_ns"`
	Outcome    string          `json:"outcome"`
	Error      string          `json:"error,omitempty"`
	Resources  *ResourceReport `json:"resources,omitempty"`
}
