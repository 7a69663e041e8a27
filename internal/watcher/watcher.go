// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

// Package watcher polls the item store and reports corpus growth.
package watcher

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stanza/internal/metrics"
	"github.com/tomtom215/stanza/internal/models"
)

// DefaultInterval is the polling interval used when none is configured.
const DefaultInterval = 10 * time.Second

// ItemCounter is the part of the item store the watcher reads.
type ItemCounter interface {
	CountItems(ctx context.Context) (int64, error)
	LatestItemID(ctx context.Context) (int64, bool, error)
}

// Notifier receives change reasons. The scheduler implements it directly; the
// event bus publisher implements it when notifications are routed through
// watermill.
type Notifier interface {
	Notify(ctx context.Context, reason models.ChangeReason) error
}

// Watcher is a suture service that polls ItemCounter.
type Watcher struct {
	store    ItemCounter
	notifier Notifier
	interval time.Duration
	logger   zerolog.Logger

	// Owned by Serve.
	baseline int64
	haveBase bool
}

// New creates a Watcher.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(store ItemCounter, notifier Notifier, interval time.Duration, logger zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		store:    store,
		notifier: notifier,
		interval: interval,
		logger:   logger.With().Str("component", "watcher").Logger(),
	}
}

// Serve implements suture.Service. The first poll happens immediately and
// only establishes the baseline.
func (w *Watcher) Serve(ctx context.Context) error {
	w.logger.Info().Dur("interval", w.interval).Msg("Change watcher started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Change watcher stopping")
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// String implements fmt.Stringer for suture.
func (w *Watcher) String() string { return "change-watcher" }

func (w *Watcher) poll(ctx context.Context) {
	count, err := w.store.CountItems(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn().Err(err).Msg("Failed to count items")
			metrics.WatcherPolls.WithLabelValues("error").Inc()
		}
		return
	}

	if !w.haveBase {
		w.baseline, w.haveBase = count, true
		metrics.WatcherPolls.WithLabelValues("baseline").Inc()
		w.logger.Debug().Int64("items", count).Msg("Watcher baseline established")
		return
	}

	if count <= w.baseline {
		if count < w.baseline {
			w.logger.Info().Int64("from", w.baseline).Int64("to", count).Msg("Item count shrank, moving baseline")
			w.baseline = count
		}
		metrics.WatcherPolls.WithLabelValues("unchanged").Inc()
		return
	}

	latest, ok, err := w.store.LatestItemID(ctx)
	if err != nil || !ok {
		// Keep the old baseline so the growth is seen again next poll.
		w.logger.Warn().Err(err).Bool("found", ok).Msg("Failed to read latest item id")
		metrics.WatcherPolls.WithLabelValues("error").Inc()
		return
	}

	reason := models.ChangeReason{Kind: models.ReasonNewItems, Delta: count - w.baseline, LatestID: latest}
	if err := w.notifier.Notify(ctx, reason); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to deliver change notification")
		metrics.WatcherPolls.WithLabelValues("error").Inc()
		return
	}

	w.logger.Info().
		Int64("delta", reason.Delta).
		Int64("latest_id", latest).
		Int64("items", count).
		Msg("New items detected")
	metrics.WatcherPolls.WithLabelValues("growth").Inc()
	metrics.WatcherNewItems.Add(float64(reason.Delta))
	w.baseline = count
}
