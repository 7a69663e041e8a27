// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package kvstore

import (
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/tomtom215/stanza/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPreferences(t *testing.T) {
	s := setupTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	err := s.PutPreferences([]models.PreferenceSummary{
		{UserID: 1, Topics: []string{"go", "databases"}, InteractionCount: 4, UpdatedAt: now},
		{UserID: 2, Topics: []string{"ml"}, InteractionCount: 1, UpdatedAt: now},
	})
	if err != nil {
		t.Fatalf("PutPreferences() error = %v", err)
	}

	got, err := s.GetPreference(1)
	if err != nil {
		t.Fatalf("GetPreference() error = %v", err)
	}
	if !slices.Equal(got.Topics, []string{"go", "databases"}) || got.InteractionCount != 4 {
		t.Errorf("GetPreference(1) = %+v", got)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, now)
	}

	if _, err := s.GetPreference(3); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPreference(3) error = %v, want ErrNotFound", err)
	}

	// Overwrite.
	if err := s.PutPreferences([]models.PreferenceSummary{{UserID: 1, Topics: []string{"rust"}, InteractionCount: 5}}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetPreference(1)
	if !slices.Equal(got.Topics, []string{"rust"}) {
		t.Errorf("Topics after overwrite = %v", got.Topics)
	}
}

func TestRecentRuns(t *testing.T) {
	s := setupTestStore(t)
	base := time.Now().Add(-48 * time.Hour)

	for i := 0; i < 5; i++ {
		r := &models.RunRecord{
			ID:        fmt.Sprintf("run-%d", i),
			StartedAt: base.Add(time.Duration(i) * 12 * time.Hour),
			Outcome:   models.OutcomeSuccess,
		}
		if err := s.PutRun(r); err != nil {
			t.Fatalf("PutRun() error = %v", err)
		}
	}

	all, err := s.RecentRuns(time.Time{}, 0)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("len = %d, want 5", len(all))
	}
	if all[0].ID != "run-4" || all[4].ID != "run-0" {
		t.Errorf("not newest first: %s ... %s", all[0].ID, all[4].ID)
	}

	// Runs at +24h, +36h and +48h fall inside the last 25 hours.
	recent, err := s.RecentRuns(time.Now().Add(-25*time.Hour), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Errorf("window returned %d runs, want 3", len(recent))
	}

	limited, err := s.RecentRuns(time.Time{}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 || limited[0].ID != "run-4" {
		t.Errorf("limit returned %v", limited)
	}
}

func TestInMemoryStore(t *testing.T) {
	s, err := Open(Options{InMemory: true, RunRetention: time.Hour})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if err := s.PutRun(&models.RunRecord{ID: "a", StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	runs, err := s.RecentRuns(time.Now().Add(-time.Minute), 10)
	if err != nil || len(runs) != 1 {
		t.Errorf("RecentRuns() = %v, %v", runs, err)
	}
}
