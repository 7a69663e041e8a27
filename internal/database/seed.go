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

var sampleItems = []struct {
	topic   string
	content string
}{
	{"databases", "columnar storage engines compress analytical tables and scan them with vectorized execution"},
	{"databases", "write ahead logs make database commits durable before pages reach disk"},
	{"databases", "query planners reorder joins using cardinality estimates from table statistics"},
	{"databases", "embedded analytical databases run inside the application process without a server"},
	{"networking", "tcp congestion control backs off when packet loss signals a saturated link"},
	{"networking", "http keep alive reuses connections so requests skip the handshake"},
	{"networking", "dns resolvers cache answers until the record time to live expires"},
	{"networking", "load balancers spread requests across healthy backends with health checks"},
	{"cooking", "slow braising turns tough cuts of beef tender in a low oven"},
	{"cooking", "fresh pasta needs only flour eggs and a rolling pin"},
	{"cooking", "toasting whole spices in a dry pan releases their aromatic oils"},
	{"cooking", "resting bread dough overnight in the fridge deepens its flavour"},
	{"travel", "night trains across the alps trade speed for a bed and a sunrise view"},
	{"travel", "travelling light with one carry on bag makes every connection easier"},
	{"travel", "local markets are the fastest way to learn what a region eats"},
	{"travel", "shoulder season trips avoid crowds while the weather stays mild"},
	{"music", "a metronome builds steady timing before tempo is pushed higher"},
	{"music", "modal jazz improvisation explores scales over slow moving chords"},
	{"music", "string quartets balance four voices without a conductor"},
	{"music", "analog synthesizers shape raw oscillator waves through filters"},
	{"gardening", "mulching beds keeps soil moist and suppresses weeds through summer"},
	{"gardening", "tomatoes need deep watering and full sun to set fruit"},
	{"gardening", "compost piles heat up when green and brown material are balanced"},
	{"gardening", "pruning fruit trees in late winter encourages strong spring growth"},
}

// sampleInteractions are (user, item) pairs; item ids are 1-based positions
// in sampleItems.
var sampleInteractions = [][2]int64{
	{1, 1}, {1, 2}, {1, 3}, {1, 6},
	{2, 2}, {2, 4}, {2, 5}, {2, 7}, {2, 8},
	{3, 9}, {3, 10}, {3, 12},
	{4, 13}, {4, 15}, {4, 9},
	{5, 17}, {5, 18}, {5, 19}, {5, 20}, {5, 1}, {5, 21}, {5, 22}, {5, 23}, {5, 24}, {5, 11}, {5, 14},
	{6, 21},
}

// SeedSampleData inserts a small demonstration corpus when the items table is
// empty. It reports whether anything was inserted.
func (db *DB) SeedSampleData(ctx context.Context) (bool, error) {
	n, err := db.CountItems(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	for i, s := range sampleItems {
		item := models.Item{
			ID:         int64(i + 1),
			Content:    s.content,
			Topic:      s.topic,
			Popularity: float64((i+1)*200 + 100),
		}
		if err := db.InsertItem(ctx, item); err != nil {
			return false, fmt.Errorf("seed items: %w", err)
		}
	}

	base := time.Now().UTC().Add(-time.Duration(len(sampleInteractions)) * time.Hour)
	for i, pair := range sampleInteractions {
		in := models.Interaction{
			UserID:    pair[0],
			ItemID:    pair[1],
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Weight:    1,
		}
		if err := db.InsertInteraction(ctx, in); err != nil {
			return false, fmt.Errorf("seed interactions: %w", err)
		}
	}

	if err := db.RefreshAggregates(ctx); err != nil {
		return false, err
	}
	return true, nil
}
