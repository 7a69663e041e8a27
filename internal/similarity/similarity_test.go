// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package similarity

import (
	"math"
	"testing"

	"github.com/tomtom215/stanza/internal/vectorstore"
)

const eps = 1e-6

func mustSnapshot(t *testing.T, ids []int64, rows [][]float32) *vectorstore.Snapshot {
	t.Helper()
	snap, err := vectorstore.FromRows(ids, rows)
	if err != nil {
		t.Fatalf("FromRows() error = %v", err)
	}
	return snap
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"scaled", []float32{1, 2}, []float32{2, 4}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > eps {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
			if math.IsNaN(got) {
				t.Error("Cosine() returned NaN")
			}
		})
	}
}

func TestProfileVector(t *testing.T) {
	snap := mustSnapshot(t, []int64{1, 2, 3}, [][]float32{{1, 0}, {0, 1}, {1, 1}})

	t.Run("weighted mean", func(t *testing.T) {
		got := ProfileVector([]Weighted{{1, 3}, {2, 1}}, snap)
		want := []float32{0.75, 0.25}
		for i := range want {
			if math.Abs(float64(got[i]-want[i])) > eps {
				t.Fatalf("ProfileVector() = %v, want %v", got, want)
			}
		}
	})

	t.Run("absent items skipped from denominator", func(t *testing.T) {
		got := ProfileVector([]Weighted{{1, 1}, {99, 5}}, snap)
		if got[0] != 1 || got[1] != 0 {
			t.Errorf("ProfileVector() = %v, want [1 0]", got)
		}
	})

	t.Run("nothing matched", func(t *testing.T) {
		if got := ProfileVector([]Weighted{{42, 1}}, snap); got != nil {
			t.Errorf("ProfileVector() = %v, want nil", got)
		}
	})

	t.Run("zero total weight", func(t *testing.T) {
		if got := ProfileVector([]Weighted{{1, 0}}, snap); got != nil {
			t.Errorf("ProfileVector() = %v, want nil", got)
		}
	})

	t.Run("empty snapshot", func(t *testing.T) {
		empty := mustSnapshot(t, nil, nil)
		if got := ProfileVector([]Weighted{{1, 1}}, empty); got != nil {
			t.Errorf("ProfileVector() = %v, want nil", got)
		}
	})
}

func TestRankBySimilarity(t *testing.T) {
	// Items 2 and 3 are identical so they tie; the lower id wins.
	snap := mustSnapshot(t,
		[]int64{5, 3, 2, 4},
		[][]float32{{1, 0}, {0.5, 0.5}, {0.5, 0.5}, {0, 1}},
	)
	query := []float32{1, 1}

	got := RankBySimilarity(query, snap, nil, 3)
	wantIDs := []int64{2, 3, 4}
	if len(got) != len(wantIDs) {
		t.Fatalf("len = %d, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].ItemID != id {
			t.Errorf("rank %d = %d, want %d (got %v)", i, got[i].ItemID, id, got)
		}
	}

	excluded := map[int64]struct{}{2: {}, 3: {}}
	got = RankBySimilarity(query, snap, excluded, 0)
	for _, s := range got {
		if _, bad := excluded[s.ItemID]; bad {
			t.Errorf("excluded item %d returned", s.ItemID)
		}
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}

	if RankBySimilarity(nil, snap, nil, 3) != nil {
		t.Error("nil query should rank nothing")
	}
}

func TestMeanSimilarity(t *testing.T) {
	snap := mustSnapshot(t, []int64{1, 2, 3}, [][]float32{{1, 0}, {0, 1}, {1, 1}})

	got := MeanSimilarity(snap, []int64{1, 2})
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Row 3 is at 45 degrees to both seen items.
	if math.Abs(got[2]-math.Sqrt2/2) > eps {
		t.Errorf("row 3 mean = %v, want %v", got[2], math.Sqrt2/2)
	}
	if math.Abs(got[0]-0.5) > eps {
		t.Errorf("row 1 mean = %v, want 0.5", got[0])
	}

	if MeanSimilarity(snap, []int64{77}) != nil {
		t.Error("expected nil when no seen item is present")
	}
}

func TestTopNOrdering(t *testing.T) {
	s := []Scored{{3, 0.5}, {1, 0.9}, {2, 0.5}, {4, 0.1}}
	got := TopN(s, 3)
	want := []int64{1, 2, 3}
	for i, id := range want {
		if got[i].ItemID != id {
			t.Fatalf("TopN() = %v, want ids %v", got, want)
		}
	}
}
