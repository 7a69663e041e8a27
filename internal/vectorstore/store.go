// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

// Package vectorstore holds one embedding vector per corpus item.
//
// Readers take an immutable *Snapshot via Store.Snapshot and never block.
// Writers (Rebuild, Append, LoadOrRebuild) build a new snapshot and publish it
// with a single atomic pointer swap. Writers are expected to be serialized by
// the caller; the update coordinator holds its lock around every write.
//
// Full rebuilds are persisted to a durable cache pair (see FileCache). The
// cache is only reused at startup when its id list equals the live corpus id
// list exactly, in order. Appends are not persisted until the next rebuild.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stanza/internal/metrics"
	"github.com/tomtom215/stanza/internal/models"
)

// DefaultBatchSize is the number of texts sent per embedding request.
const DefaultBatchSize = 50

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store owns the current snapshot.
type Store struct {
	embedder  Embedder
	cache     *FileCache
	batchSize int
	logger    zerolog.Logger

	current atomic.Pointer[Snapshot]
	version atomic.Uint64
}

// New creates a store with an empty snapshot. cache may be nil, in which case
// nothing is persisted and LoadOrRebuild always rebuilds.
func New(embedder Embedder, cache *FileCache, batchSize int, logger zerolog.Logger) *Store {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	s := &Store{
		embedder:  embedder,
		cache:     cache,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "vectorstore").Logger(),
	}
	s.current.Store(emptySnapshot())
	return s
}

// Snapshot returns the current snapshot. It is never nil.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Rebuild embeds every item and publishes a fresh snapshot in items order.
// On failure the current snapshot is left untouched.
func (s *Store) Rebuild(ctx context.Context, items []models.Item) error {
	start := time.Now()

	texts := make([]string, len(items))
	ids := make([]int64, len(items))
	for i, item := range items {
		texts[i] = item.Content
		ids[i] = item.ID
	}

	rows, err := s.embedAll(ctx, texts)
	if err != nil {
		return err
	}

	dim, err := uniformDim(rows)
	if err != nil {
		return err
	}

	snap := s.publish(ids, rows, dim)

	if s.cache != nil {
		if err := s.cache.Save(ids, rows, dim); err != nil {
			// The in-memory snapshot is authoritative; the next rebuild retries.
			s.logger.Warn().Err(err).Str("dir", s.cache.Dir()).Msg("Failed to persist vector cache")
		}
	}

	s.logger.Info().
		Int("items", snap.Len()).
		Int("dim", dim).
		Uint64("version", snap.Version()).
		Dur("duration", time.Since(start)).
		Msg("Vector store rebuilt")
	return nil
}

// Append embeds one item and publishes a snapshot with it added at the end.
// An id that is already present has its row replaced in place instead.
func (s *Store) Append(ctx context.Context, item models.Item) error {
	vecs, err := s.embed(ctx, []string{item.Content})
	if err != nil {
		return err
	}
	vec := vecs[0]

	cur := s.Snapshot()
	if cur.Len() > 0 && len(vec) != cur.Dim() {
		return fmt.Errorf("append item %d: %w: got %d, want %d", item.ID, ErrDimensionMismatch, len(vec), cur.Dim())
	}

	if i, ok := cur.IndexOf(item.ID); ok {
		rows := slices.Clone(cur.rows)
		rows[i] = vec
		snap := s.publish(cur.ids, rows, cur.dim)
		s.logger.Debug().Int64("item_id", item.ID).Uint64("version", snap.Version()).Msg("Replaced item vector")
		return nil
	}

	// Appending past the current length never touches elements visible to
	// older snapshots, so the backing arrays can be shared.
	ids := append(cur.ids, item.ID)
	rows := append(cur.rows, vec)
	snap := s.publish(ids, rows, len(vec))
	s.logger.Debug().Int64("item_id", item.ID).Int("items", snap.Len()).Uint64("version", snap.Version()).Msg("Appended item vector")
	return nil
}

// LoadOrRebuild publishes the durable cache when it matches items exactly and
// otherwise performs a full Rebuild. It reports whether the cache was used.
func (s *Store) LoadOrRebuild(ctx context.Context, items []models.Item) (bool, error) {
	live := make([]int64, len(items))
	for i, item := range items {
		live[i] = item.ID
	}

	if s.cache != nil {
		data, err := s.cache.Load()
		switch {
		case err == nil && slices.Equal(data.IDs, live):
			snap := s.publish(data.IDs, data.Rows, data.Dim)
			metrics.VectorCacheLoads.WithLabelValues("hit").Inc()
			s.logger.Info().Int("items", snap.Len()).Uint64("version", snap.Version()).Msg("Loaded vector cache")
			return true, nil
		case err == nil:
			metrics.VectorCacheLoads.WithLabelValues("mismatch").Inc()
			s.logger.Warn().
				Err(ErrCacheMismatch).
				Int("cached", len(data.IDs)).
				Int("live", len(live)).
				Int("first_difference", firstDifference(data.IDs, live)).
				Msg("Vector cache does not match corpus, rebuilding")
		case errors.Is(err, ErrCacheMissing):
			metrics.VectorCacheLoads.WithLabelValues("missing").Inc()
			s.logger.Info().Str("dir", s.cache.Dir()).Msg("No vector cache found, building")
		default:
			metrics.VectorCacheLoads.WithLabelValues("error").Inc()
			s.logger.Warn().Err(err).Msg("Vector cache unreadable, rebuilding")
		}
	}

	return false, s.Rebuild(ctx, items)
}

func (s *Store) publish(ids []int64, rows [][]float32, dim int) *Snapshot {
	snap := newSnapshot(ids, rows, dim, s.version.Add(1))
	s.current.Store(snap)
	metrics.RecordSnapshot(snap.Len(), snap.Version())
	return snap
}

func (s *Store) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	rows := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))
		vecs, err := s.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		rows = append(rows, vecs...)
	}
	return rows, nil
}

// embed calls the embedder once and normalizes its failures.
func (s *Store) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vecs, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		if errors.Is(err, ErrEmbeddingUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingUnavailable, len(vecs), len(texts))
	}
	return vecs, nil
}

func uniformDim(rows [][]float32) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	dim := len(rows[0])
	for i, row := range rows {
		if len(row) != dim {
			return 0, fmt.Errorf("row %d: %w: got %d, want %d", i, ErrDimensionMismatch, len(row), dim)
		}
	}
	return dim, nil
}
