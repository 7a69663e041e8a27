// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

// Package similarity provides pure vector functions over vectorstore
// snapshots: cosine similarity, profile synthesis and nearest-neighbour
// ranking. Vectors are stored as float32; all arithmetic is float64.
package similarity

import (
	"math"
	"sort"

	"github.com/tomtom215/stanza/internal/vectorstore"
)

// Weighted pairs an item with the strength of a user's interest in it.
type Weighted struct {
	ItemID int64
	Weight float64
}

// Scored is a ranking result.
type Scored struct {
	ItemID int64   `json:"item_id"`
	Score  float64 `json:"score"`
}

// Cosine returns the cosine similarity of a and b. It is 0 when either vector
// has zero magnitude or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ProfileVector returns the weighted mean of the vectors of the given items.
// Items missing from the snapshot are skipped and their weight is left out of
// the denominator. It returns nil when nothing matched or the matched weight
// sums to zero.
func ProfileVector(items []Weighted, snap *vectorstore.Snapshot) []float32 {
	if snap.Len() == 0 || len(items) == 0 {
		return nil
	}
	dim := snap.Dim()
	acc := make([]float64, dim)
	var total float64
	for _, w := range items {
		vec, ok := snap.Vector(w.ItemID)
		if !ok {
			continue
		}
		for i, v := range vec {
			acc[i] += w.Weight * float64(v)
		}
		total += w.Weight
	}
	if total == 0 {
		return nil
	}
	out := make([]float32, dim)
	for i := range acc {
		out[i] = float32(acc[i] / total)
	}
	return out
}

// RankBySimilarity scores every row of snap against query and returns the
// topN highest-scoring items, ties broken by lower item id. Excluded items are
// removed from the ranking entirely. topN <= 0 returns every candidate.
func RankBySimilarity(query []float32, snap *vectorstore.Snapshot, excluded map[int64]struct{}, topN int) []Scored {
	if query == nil || snap.Len() == 0 {
		return nil
	}
	ids := snap.IDs()
	out := make([]Scored, 0, len(ids))
	for i, id := range ids {
		if _, skip := excluded[id]; skip {
			continue
		}
		out = append(out, Scored{ItemID: id, Score: Cosine(query, snap.Row(i))})
	}
	return TopN(out, topN)
}

// MeanSimilarity returns, for every row of snap, the mean cosine similarity to
// the rows of itemIDs that are present in snap. The result is parallel to
// snap.IDs(). It returns nil when none of itemIDs are present.
func MeanSimilarity(snap *vectorstore.Snapshot, itemIDs []int64) []float64 {
	seen := make([][]float32, 0, len(itemIDs))
	for _, id := range itemIDs {
		if vec, ok := snap.Vector(id); ok {
			seen = append(seen, vec)
		}
	}
	if len(seen) == 0 {
		return nil
	}

	rows := snap.Rows()
	out := make([]float64, len(rows))
	for i, row := range rows {
		var sum float64
		for _, s := range seen {
			sum += Cosine(row, s)
		}
		out[i] = sum / float64(len(seen))
	}
	return out
}

// SortScored orders by score descending, then item id ascending.
func SortScored(s []Scored) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].ItemID < s[j].ItemID
	})
}

// TopN sorts s in place and truncates it to n entries. n <= 0 keeps all.
func TopN(s []Scored, n int) []Scored {
	SortScored(s)
	if n > 0 && len(s) > n {
		s = s[:n]
	}
	return s
}
