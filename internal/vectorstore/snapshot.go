// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package vectorstore

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Snapshot is an immutable view of the item vectors: an ordered id list and a
// parallel list of rows. Callers must treat the returned slices as read-only.
//
// Invariant: len(ids) == len(rows).
type Snapshot struct {
	ids        []int64
	rows       [][]float32
	dim        int
	version    uint64
	generation uint64
	builtAt    time.Time

	indexOnce sync.Once
	index     map[int64]int
}

func newSnapshot(ids []int64, rows [][]float32, dim int, version uint64) *Snapshot {
	return &Snapshot{
		ids:        ids,
		rows:       rows,
		dim:        dim,
		version:    version,
		generation: fingerprint(ids),
		builtAt:    time.Now(),
	}
}

// FromRows builds a standalone snapshot, outside any Store, from parallel
// ids and rows. The snapshot has version 0.
func FromRows(ids []int64, rows [][]float32) (*Snapshot, error) {
	if len(ids) != len(rows) {
		return nil, fmt.Errorf("snapshot: %d ids for %d rows", len(ids), len(rows))
	}
	dim, err := uniformDim(rows)
	if err != nil {
		return nil, err
	}
	return newSnapshot(ids, rows, dim, 0), nil
}

// emptySnapshot is served before the first build.
func emptySnapshot() *Snapshot {
	return newSnapshot(nil, nil, 0, 0)
}

// Len returns the number of items in the snapshot.
func (s *Snapshot) Len() int { return len(s.ids) }

// Dim returns the vector dimension, or 0 for an empty snapshot.
func (s *Snapshot) Dim() int { return s.dim }

// IDs returns the ordered item ids.
func (s *Snapshot) IDs() []int64 { return s.ids }

// Rows returns the vectors, parallel to IDs.
func (s *Snapshot) Rows() [][]float32 { return s.rows }

// Row returns the vector at position i.
func (s *Snapshot) Row(i int) []float32 { return s.rows[i] }

// Version increases with every published snapshot.
func (s *Snapshot) Version() uint64 { return s.version }

// Generation fingerprints the exact ordered id list. Two snapshots with the
// same generation were built from the same corpus ordering.
func (s *Snapshot) Generation() uint64 { return s.generation }

// BuiltAt is when the snapshot was published.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// IndexOf returns the row of id.
func (s *Snapshot) IndexOf(id int64) (int, bool) {
	s.indexOnce.Do(func() {
		s.index = make(map[int64]int, len(s.ids))
		for i, itemID := range s.ids {
			s.index[itemID] = i
		}
	})
	i, ok := s.index[id]
	return i, ok
}

// Vector returns the vector for id.
func (s *Snapshot) Vector(id int64) ([]float32, bool) {
	i, ok := s.IndexOf(id)
	if !ok {
		return nil, false
	}
	return s.rows[i], true
}

// Contains reports whether id has a vector.
func (s *Snapshot) Contains(id int64) bool {
	_, ok := s.IndexOf(id)
	return ok
}

// fingerprint hashes the ordered id list.
func fingerprint(ids []int64) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, id := range ids {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// firstDifference returns the first index at which a and b differ, or -1.
func firstDifference(a, b []int64) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
