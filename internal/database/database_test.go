// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package database

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/tomtom215/stanza/internal/config"
	"github.com/tomtom215/stanza/internal/models"
)

// testDBSemaphore serializes DuckDB usage across tests; concurrent CGO calls
// from many in-memory databases can stall under CI load.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", Threads: 1})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertItems(t *testing.T, db *DB, items ...models.Item) {
	t.Helper()
	for _, it := range items {
		if err := db.InsertItem(context.Background(), it); err != nil {
			t.Fatalf("InsertItem(%d) error = %v", it.ID, err)
		}
	}
}

func TestItemsQueries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	n, err := db.CountItems(ctx)
	if err != nil || n != 0 {
		t.Fatalf("CountItems() = %d, %v", n, err)
	}
	if _, ok, err := db.LatestItemID(ctx); err != nil || ok {
		t.Fatalf("LatestItemID() on empty corpus ok=%v err=%v", ok, err)
	}

	insertItems(t, db,
		models.Item{ID: 3, Content: "c", Topic: "x", Popularity: 50},
		models.Item{ID: 1, Content: "a", Topic: "y", Popularity: 900},
		models.Item{ID: 2, Content: "b", Topic: "x", Popularity: 50},
	)

	items, err := db.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	var ids []int64
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	if !slices.Equal(ids, []int64{1, 2, 3}) {
		t.Errorf("ListItems() ids = %v, want [1 2 3]", ids)
	}

	n, _ = db.CountItems(ctx)
	if n != 3 {
		t.Errorf("CountItems() = %d, want 3", n)
	}
	latest, ok, err := db.LatestItemID(ctx)
	if err != nil || !ok || latest != 3 {
		t.Errorf("LatestItemID() = %d, %v, %v", latest, ok, err)
	}

	it, err := db.GetItem(ctx, 2)
	if err != nil || it.Content != "b" || it.Topic != "x" {
		t.Errorf("GetItem(2) = %+v, %v", it, err)
	}
	if _, err := db.GetItem(ctx, 99); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("GetItem(99) error = %v, want ErrItemNotFound", err)
	}

	popular, err := db.PopularItems(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(popular) != 2 || popular[0].ID != 1 || popular[1].ID != 2 {
		t.Errorf("PopularItems(2) = %+v, want ids [1 2]", popular)
	}
}

func TestInteractionQueries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	insertItems(t, db, models.Item{ID: 1}, models.Item{ID: 2}, models.Item{ID: 3})

	now := time.Now().UTC().Truncate(time.Millisecond)
	for _, in := range []models.Interaction{
		{UserID: 10, ItemID: 1, Timestamp: now.Add(-2 * time.Hour)},
		{UserID: 10, ItemID: 2, Timestamp: now.Add(-time.Hour), Weight: 2.5},
		{UserID: 20, ItemID: 1, Timestamp: now},
		{UserID: 30, ItemID: 3, Timestamp: now},
	} {
		if err := db.InsertInteraction(ctx, in); err != nil {
			t.Fatalf("InsertInteraction() error = %v", err)
		}
	}

	got, err := db.ListInteractions(ctx, 10)
	if err != nil {
		t.Fatalf("ListInteractions() error = %v", err)
	}
	if len(got) != 2 || got[0].ItemID != 2 || got[1].ItemID != 1 {
		t.Errorf("ListInteractions(10) not most-recent first: %+v", got)
	}
	if got[0].Weight != 2.5 || got[1].Weight != 1 {
		t.Errorf("weights = %v, %v", got[0].Weight, got[1].Weight)
	}

	unknown, err := db.ListInteractions(ctx, 999)
	if err != nil || len(unknown) != 0 {
		t.Errorf("ListInteractions(unknown) = %v, %v", unknown, err)
	}

	users, err := db.ListUsers(ctx)
	if err != nil || !slices.Equal(users, []int64{10, 20, 30}) {
		t.Errorf("ListUsers() = %v, %v", users, err)
	}

	active, err := db.ListActiveUsers(ctx, 20, 5)
	if err != nil || !slices.Equal(active, []int64{10, 30}) {
		t.Errorf("ListActiveUsers(20, 5) = %v, %v", active, err)
	}
	active, _ = db.ListActiveUsers(ctx, 20, 1)
	if !slices.Equal(active, []int64{10}) {
		t.Errorf("ListActiveUsers(20, 1) = %v", active)
	}
}

func TestRefreshAggregates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	insertItems(t, db, models.Item{ID: 1}, models.Item{ID: 2})

	for _, in := range []models.Interaction{
		{UserID: 1, ItemID: 1}, {UserID: 2, ItemID: 1}, {UserID: 2, ItemID: 2},
	} {
		if err := db.InsertInteraction(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	if err := db.RefreshAggregates(ctx); err != nil {
		t.Fatalf("RefreshAggregates() error = %v", err)
	}
	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT interaction_count FROM items WHERE id = 1`).Scan(&n); err != nil || n != 2 {
		t.Errorf("item 1 interaction_count = %d, want 2", n)
	}
	if n, _ := db.UserInteractionTotal(ctx, 2); n != 2 {
		t.Errorf("user 2 total = %d, want 2", n)
	}
	if n, _ := db.UserInteractionTotal(ctx, 42); n != 0 {
		t.Errorf("unknown user total = %d, want 0", n)
	}

	// Idempotent on a second run.
	if err := db.RefreshAggregates(ctx); err != nil {
		t.Fatalf("second RefreshAggregates() error = %v", err)
	}
	if n, _ := db.UserInteractionTotal(ctx, 1); n != 1 {
		t.Errorf("user 1 total = %d, want 1", n)
	}
}

func TestSeedSampleData(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	seeded, err := db.SeedSampleData(ctx)
	if err != nil || !seeded {
		t.Fatalf("SeedSampleData() = %v, %v", seeded, err)
	}
	n, _ := db.CountItems(ctx)
	if n != int64(len(sampleItems)) {
		t.Errorf("CountItems() = %d, want %d", n, len(sampleItems))
	}

	seeded, err = db.SeedSampleData(ctx)
	if err != nil || seeded {
		t.Errorf("second SeedSampleData() = %v, %v, want false", seeded, err)
	}
}

func TestNewCreatesDirectory(t *testing.T) {
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	path := filepath.Join(t.TempDir(), "nested", "stanza.duckdb")
	db, err := New(&config.DatabaseConfig{Path: path, Threads: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
