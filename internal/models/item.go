// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package models

import "time"

// Item is a corpus entry as seen by the recommendation subsystem.
type Item struct {
	ID         int64   `json:"id"`
	Content    string  `json:"content,omitempty"`
	Topic      string  `json:"topic,omitempty"`
	Popularity float64 `json:"popularity"`
}

// Interaction records that a user engaged with an item.
// Weight defaults to 1.0 when the store has no explicit strength.
type Interaction struct {
	UserID    int64     `json:"user_id"`
	ItemID    int64     `json:"item_id"`
	Timestamp time.Time `json:"timestamp"`
	Weight    float64   `json:"weight"`
}

// EffectiveWeight returns the interaction strength, treating non-positive
// values as the default weight of 1.
func (i Interaction) EffectiveWeight() float64 {
	if i.Weight <= 0 {
		return 1.0
	}
	return i.Weight
}

// PreferenceSummary is the cached, display-only description of a user's taste.
// The live scoring path never reads it.
type PreferenceSummary struct {
	UserID           int64     `json:"user_id"`
	Topics           []string  `json:"topics"`
	InteractionCount int       `json:"interaction_count"`
	UpdatedAt        time.Time `json:"updated_at"`
}
