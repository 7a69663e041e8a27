// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestSetSchedulerStateIsExclusive(t *testing.T) {
	SetSchedulerState("running")

	for _, s := range schedulerStates {
		want := 0.0
		if s == "running" {
			want = 1
		}
		if got := testutil.ToFloat64(SchedulerState.WithLabelValues(s)); got != want {
			t.Errorf("SchedulerState{%s} = %v, want %v", s, got, want)
		}
	}

	SetSchedulerState("idle")
	if got := testutil.ToFloat64(SchedulerState.WithLabelValues("running")); got != 0 {
		t.Errorf("running gauge not cleared, got %v", got)
	}
}

func TestRecordRun(t *testing.T) {
	before := testutil.ToFloat64(SchedulerRuns.WithLabelValues("manual", "success"))
	RecordRun("manual", "success")
	after := testutil.ToFloat64(SchedulerRuns.WithLabelValues("manual", "success"))

	if after-before != 1 {
		t.Errorf("runs counter delta = %v, want 1", after-before)
	}
	if testutil.ToFloat64(SchedulerLastSuccess) == 0 {
		t.Error("last success timestamp not set")
	}
}

func TestRecordStrategy(t *testing.T) {
	beforeCandidates := testutil.ToFloat64(StrategyCandidates.WithLabelValues("content"))
	beforeErrors := testutil.ToFloat64(StrategyErrors.WithLabelValues("content"))

	RecordStrategy("content", 7, nil)
	RecordStrategy("content", 3, errors.New("store offline"))

	if got := testutil.ToFloat64(StrategyCandidates.WithLabelValues("content")) - beforeCandidates; got != 7 {
		t.Errorf("candidate delta = %v, want 7", got)
	}
	if got := testutil.ToFloat64(StrategyErrors.WithLabelValues("content")) - beforeErrors; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestRecordResourceReport(t *testing.T) {
	beforeBudget := testutil.ToFloat64(ResourceBreaches.WithLabelValues("budget"))

	RecordResourceReport(42.5, 12.25, false, false, true)

	if got := testutil.ToFloat64(ResourceCPUPercent); got != 42.5 {
		t.Errorf("cpu gauge = %v, want 42.5", got)
	}
	if got := testutil.ToFloat64(ResourceMemoryPercent); got != 12.25 {
		t.Errorf("memory gauge = %v, want 12.25", got)
	}
	if got := testutil.ToFloat64(ResourceBreaches.WithLabelValues("budget")) - beforeBudget; got != 1 {
		t.Errorf("budget breach delta = %v, want 1", got)
	}
}

func TestRecordRecommendationObservesHistogram(t *testing.T) {
	RecordRecommendation("light", 3*time.Millisecond, 6)

	var m dto.Metric
	if err := RecommendResults.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if m.GetHistogram().GetSampleCount() == 0 {
		t.Error("result size histogram has no samples")
	}
}

func TestRecordSnapshot(t *testing.T) {
	RecordSnapshot(128, 9)

	if got := testutil.ToFloat64(SnapshotItems); got != 128 {
		t.Errorf("SnapshotItems = %v, want 128", got)
	}
	if got := testutil.ToFloat64(SnapshotVersion); got != 9 {
		t.Errorf("SnapshotVersion = %v, want 9", got)
	}
}
