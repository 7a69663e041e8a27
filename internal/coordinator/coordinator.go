// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

// Package coordinator serializes recomputations of the recommendation cache.
//
// At most one of RebuildAll, ApplyNewItem and Initialize runs at a time. A
// caller that finds the lock held gets ErrAlreadyRunning immediately instead
// of queueing; queueing and retries are the scheduler's job.
package coordinator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stanza/internal/logging"
	"github.com/tomtom215/stanza/internal/metrics"
	"github.com/tomtom215/stanza/internal/models"
)

// topTopics is the number of topic labels kept per preference summary.
const topTopics = 3

// ItemStore is the part of the collaborator store a recomputation reads.
type ItemStore interface {
	ListItems(ctx context.Context) ([]models.Item, error)
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	ListUsers(ctx context.Context) ([]int64, error)
	ListInteractions(ctx context.Context, userID int64) ([]models.Interaction, error)
	RefreshAggregates(ctx context.Context) error
}

// VectorStore is the embedding snapshot being maintained.
type VectorStore interface {
	Rebuild(ctx context.Context, items []models.Item) error
	Append(ctx context.Context, item models.Item) error
	LoadOrRebuild(ctx context.Context, items []models.Item) (bool, error)
}

// PreferenceSink persists preference summaries.
type PreferenceSink interface {
	PutPreferences(summaries []models.PreferenceSummary) error
}

// Coordinator owns the recomputation lock.
type Coordinator struct {
	mu     sync.Mutex
	items  ItemStore
	vecs   VectorStore
	prefs  PreferenceSink
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a Coordinator. prefs may be nil, in which case preference
// summaries are computed but not stored.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(items ItemStore, vecs VectorStore, prefs PreferenceSink, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		items:  items,
		vecs:   vecs,
		prefs:  prefs,
		logger: logger.With().Str("component", "coordinator").Logger(),
		now:    time.Now,
	}
}

// Initialize loads the durable vector cache, or rebuilds it when it does not
// match the store.
func (c *Coordinator) Initialize(ctx context.Context) error {
	if !c.mu.TryLock() {
		return ErrAlreadyRunning
	}
	defer c.mu.Unlock()

	const op = "initialize"
	start := time.Now()
	items, err := c.items.ListItems(ctx)
	if err != nil {
		return recomputeErr(op, "list items", err)
	}
	fromCache, err := c.vecs.LoadOrRebuild(ctx, items)
	if err != nil {
		return recomputeErr(op, "load or rebuild vectors", err)
	}
	metrics.RecordRecompute(op, time.Since(start))

	logger := logging.Ctx(ctx, c.logger)
	logger.Info().
		Int("items", len(items)).
		Bool("from_cache", fromCache).
		Dur("duration", time.Since(start)).
		Msg("Recommendation cache initialized")
	return nil
}

// RebuildAll re-embeds the whole corpus, recomputes every preference summary
// and refreshes popularity aggregates.
func (c *Coordinator) RebuildAll(ctx context.Context) error {
	if !c.mu.TryLock() {
		return ErrAlreadyRunning
	}
	defer c.mu.Unlock()

	op := models.OperationRebuildAll
	start := time.Now()
	logger := logging.Ctx(ctx, c.logger)

	items, err := c.items.ListItems(ctx)
	if err != nil {
		return recomputeErr(op, "list items", err)
	}
	if err := c.vecs.Rebuild(ctx, items); err != nil {
		return recomputeErr(op, "rebuild vectors", err)
	}

	summaries, err := c.summarize(ctx, items)
	if err != nil {
		return recomputeErr(op, "preference summaries", err)
	}
	if c.prefs != nil {
		if err := c.prefs.PutPreferences(summaries); err != nil {
			return recomputeErr(op, "store preference summaries", err)
		}
	}

	if err := c.items.RefreshAggregates(ctx); err != nil {
		return recomputeErr(op, "refresh aggregates", err)
	}

	metrics.RecordRecompute(op, time.Since(start))
	logger.Info().
		Int("items", len(items)).
		Int("users", len(summaries)).
		Dur("duration", time.Since(start)).
		Msg("Full rebuild complete")
	return nil
}

// ApplyNewItem embeds one item and appends it to the snapshot. Preference
// summaries are left alone.
func (c *Coordinator) ApplyNewItem(ctx context.Context, itemID int64) error {
	if !c.mu.TryLock() {
		return ErrAlreadyRunning
	}
	defer c.mu.Unlock()

	op := models.OperationApplyNewItem
	start := time.Now()

	item, err := c.items.GetItem(ctx, itemID)
	if err != nil {
		return recomputeErr(op, "get item", err)
	}
	if err := c.vecs.Append(ctx, *item); err != nil {
		return recomputeErr(op, "append vector", err)
	}

	metrics.RecordRecompute(op, time.Since(start))
	logger := logging.Ctx(ctx, c.logger)
	logger.Info().
		Int64("item_id", itemID).
		Dur("duration", time.Since(start)).
		Msg("New item applied")
	return nil
}

// summarize builds a preference summary for every user with interactions.
func (c *Coordinator) summarize(ctx context.Context, items []models.Item) ([]models.PreferenceSummary, error) {
	topicOf := make(map[int64]string, len(items))
	for _, it := range items {
		if it.Topic != "" {
			topicOf[it.ID] = it.Topic
		}
	}

	users, err := c.items.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	now := c.now().UTC()
	out := make([]models.PreferenceSummary, 0, len(users))
	for _, uid := range users {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		interactions, err := c.items.ListInteractions(ctx, uid)
		if err != nil {
			return nil, err
		}
		out = append(out, models.PreferenceSummary{
			UserID:           uid,
			Topics:           TopTopics(interactions, topicOf, topTopics),
			InteractionCount: len(interactions),
			UpdatedAt:        now,
		})
	}
	return out, nil
}

// TopTopics returns up to n topic labels ordered by how often the user
// interacted with items of that topic. Equal counts order by label.
func TopTopics(interactions []models.Interaction, topicOf map[int64]string, n int) []string {
	counts := make(map[string]int)
	for _, in := range interactions {
		if topic, ok := topicOf[in.ItemID]; ok {
			counts[topic]++
		}
	}
	topics := make([]string, 0, len(counts))
	for t := range counts {
		topics = append(topics, t)
	}
	sort.Slice(topics, func(i, j int) bool {
		if counts[topics[i]] != counts[topics[j]] {
			return counts[topics[i]] > counts[topics[j]]
		}
		return topics[i] < topics[j]
	})
	if len(topics) > n {
		topics = topics[:n]
	}
	return topics
}
