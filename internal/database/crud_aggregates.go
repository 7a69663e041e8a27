// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package database

import (
	"context"
	"fmt"
)

// RefreshAggregates recomputes items.interaction_count and user_stats from
// the interaction log in one transaction.
func (db *DB) RefreshAggregates(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin aggregate refresh: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		UPDATE items SET interaction_count = (
			SELECT COUNT(*) FROM interactions i WHERE i.item_id = items.id
		)`); err != nil {
		return fmt.Errorf("refresh item counts: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO user_stats (user_id, total_interactions, updated_at)
		SELECT user_id, COUNT(*), CURRENT_TIMESTAMP
		FROM interactions
		GROUP BY user_id`); err != nil {
		return fmt.Errorf("refresh user stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit aggregate refresh: %w", err)
	}
	return nil
}

// UserInteractionTotal returns the aggregated interaction total of a user as
// of the last RefreshAggregates, or 0 if none was recorded.
func (db *DB) UserInteractionTotal(ctx context.Context, userID int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(total_interactions), 0) FROM user_stats WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("query user stats: %w", err)
	}
	return n, nil
}
