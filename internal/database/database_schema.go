// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package database

import (
	"context"
	"fmt"
)

// schemaStatements create the tables used by the recommendation subsystem.
//
//   - items.popularity is maintained by the owning application (view counts).
//   - items.interaction_count and user_stats are aggregates refreshed by
//     RefreshAggregates during a full rebuild.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id BIGINT PRIMARY KEY,
		content VARCHAR NOT NULL DEFAULT '',
		topic VARCHAR NOT NULL DEFAULT '',
		popularity DOUBLE NOT NULL DEFAULT 0,
		interaction_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS interactions (
		user_id BIGINT NOT NULL,
		item_id BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		weight DOUBLE NOT NULL DEFAULT 1.0
	)`,
	`CREATE TABLE IF NOT EXISTS user_stats (
		user_id BIGINT PRIMARY KEY,
		total_interactions BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_item ON interactions(item_id)`,
}

func (db *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
