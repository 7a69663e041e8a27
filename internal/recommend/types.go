// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package recommend

import (
	"context"

	"github.com/tomtom215/stanza/internal/models"
	"github.com/tomtom215/stanza/internal/vectorstore"
)

// Strategy names used in responses, logs and metrics.
const (
	StrategyUserCF     = "user_cf"
	StrategyItemCF     = "item_cf"
	StrategyContent    = "content"
	StrategyPopularity = "popularity"
	StrategyPadding    = "padding"
)

// Store is the read side of the item and interaction store.
type Store interface {
	// ListInteractions returns a user's interactions, most recent first.
	ListInteractions(ctx context.Context, userID int64) ([]models.Interaction, error)

	// ListActiveUsers returns up to limit users with at least one
	// interaction, excluding exclude.
	ListActiveUsers(ctx context.Context, exclude int64, limit int) ([]int64, error)

	// PopularItems returns the limit most popular items, most popular first.
	PopularItems(ctx context.Context, limit int) ([]models.Item, error)
}

// SnapshotSource provides the current vector snapshot.
type SnapshotSource interface {
	Snapshot() *vectorstore.Snapshot
}

// ScoredItem is one recommended item with its blended score and the weighted
// contribution of every strategy that proposed it.
type ScoredItem struct {
	ItemID        int64              `json:"item_id"`
	Score         float64            `json:"score"`
	Contributions map[string]float64 `json:"contributions,omitempty"`
}

// StrategyReport describes one strategy's part in a request.
type StrategyReport struct {
	Ran        bool   `json:"ran"`
	Candidates int    `json:"candidates"`
	Error      string `json:"error,omitempty"`
}

// Response is the full result of a recommendation request.
type Response struct {
	UserID           int64                     `json:"user_id"`
	Limit            int                       `json:"limit"`
	Items            []ScoredItem              `json:"items"`
	Regime           string                    `json:"regime"`
	Weights          Weights                   `json:"weights"`
	InteractionCount int                       `json:"interaction_count"`
	Strategies       map[string]StrategyReport `json:"strategies"`
	Padded           int                       `json:"padded"`
	SnapshotVersion  uint64                    `json:"snapshot_version"`
	LatencyMS        int64                     `json:"latency_ms"`
}

// IDs returns the recommended item ids in rank order.
func (r *Response) IDs() []int64 {
	ids := make([]int64, len(r.Items))
	for i, it := range r.Items {
		ids[i] = it.ItemID
	}
	return ids
}
