// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package models

// Change reason kinds.
const (
	ReasonNewItems = "new_items"
)

// ChangeReason describes why the recommendation cache is stale.
type ChangeReason struct {
	Kind     string `json:"kind"`
	Delta    int64  `json:"delta"`
	LatestID int64  `json:"latest_id"`
}
