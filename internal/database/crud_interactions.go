// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/stanza/internal/models"
)

// ListInteractions returns a user's interactions, most recent first. An
// unknown user has no interactions.
func (db *DB) ListInteractions(ctx context.Context, userID int64) ([]models.Interaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, item_id, created_at, weight
		FROM interactions
		WHERE user_id = ?
		ORDER BY created_at DESC, item_id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Interaction, 0)
	for rows.Next() {
		var in models.Interaction
		if err := rows.Scan(&in.UserID, &in.ItemID, &in.Timestamp, &in.Weight); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}
	return out, nil
}

// ListUsers returns every user with at least one interaction, ascending.
func (db *DB) ListUsers(ctx context.Context) ([]int64, error) {
	return db.queryUserIDs(ctx, `SELECT DISTINCT user_id FROM interactions ORDER BY user_id`)
}

// ListActiveUsers returns up to limit users with at least one interaction,
// excluding exclude, ascending by id.
func (db *DB) ListActiveUsers(ctx context.Context, exclude int64, limit int) ([]int64, error) {
	if limit <= 0 {
		return []int64{}, nil
	}
	return db.queryUserIDs(ctx, `
		SELECT DISTINCT user_id FROM interactions
		WHERE user_id <> ?
		ORDER BY user_id
		LIMIT ?`, exclude, limit)
}

func (db *DB) queryUserIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return ids, nil
}

// InsertInteraction appends an interaction. A zero timestamp means now; a
// non-positive weight is stored as 1.
func (db *DB) InsertInteraction(ctx context.Context, in models.Interaction) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO interactions (user_id, item_id, created_at, weight) VALUES (?, ?, ?, ?)`,
		in.UserID, in.ItemID, ts, in.EffectiveWeight())
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}
