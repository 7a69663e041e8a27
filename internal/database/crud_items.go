// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomtom215/stanza/internal/models"
)

const itemColumns = `id, content, topic, popularity`

func scanItems(rows *sql.Rows) ([]models.Item, error) {
	items := make([]models.Item, 0)
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Content, &it.Topic, &it.Popularity); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// ListItems returns every item ordered by id. The order defines the row order
// of the vector store and therefore the durable cache fingerprint.
func (db *DB) ListItems(ctx context.Context) ([]models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// GetItem returns one item, or ErrItemNotFound.
func (db *DB) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var it models.Item
	err := db.conn.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id).
		Scan(&it.ID, &it.Content, &it.Topic, &it.Popularity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, ErrItemNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query item %d: %w", id, err)
	}
	return &it, nil
}

// PopularItems returns the limit most popular items, ties broken by id.
func (db *DB) PopularItems(ctx context.Context, limit int) ([]models.Item, error) {
	if limit <= 0 {
		return []models.Item{}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY popularity DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query popular items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// CountItems returns the corpus size.
func (db *DB) CountItems(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// LatestItemID returns the highest item id. ok is false for an empty corpus.
func (db *DB) LatestItemID(ctx context.Context) (id int64, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var latest sql.NullInt64
	if err := db.conn.QueryRowContext(ctx, `SELECT MAX(id) FROM items`).Scan(&latest); err != nil {
		return 0, false, fmt.Errorf("query latest item: %w", err)
	}
	return latest.Int64, latest.Valid, nil
}

// InsertItem adds or replaces an item.
func (db *DB) InsertItem(ctx context.Context, it models.Item) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := db.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO items (id, content, topic, popularity) VALUES (?, ?, ?, ?)`,
		it.ID, it.Content, it.Topic, it.Popularity)
	if err != nil {
		return fmt.Errorf("insert item %d: %w", it.ID, err)
	}
	return nil
}
