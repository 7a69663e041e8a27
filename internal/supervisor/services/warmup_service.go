// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

const defaultWarmupTimeout = 30 * time.Minute

// Initializer loads or rebuilds the vector cache at startup.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// WarmupService runs the startup warm-up once. A failed warm-up returns an
// error so the supervisor retries it with backoff; a successful one returns
// suture.ErrDoNotRestart and is removed from the tree.
type WarmupService struct {
	cache   Initializer
	timeout time.Duration
	logger  zerolog.Logger
}

// NewWarmupService creates the warm-up service. A non-positive timeout means
// 30 minutes.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewWarmupService(cache Initializer, timeout time.Duration, logger zerolog.Logger) *WarmupService {
	if timeout <= 0 {
		timeout = defaultWarmupTimeout
	}
	return &WarmupService{
		cache:   cache,
		timeout: timeout,
		logger:  logger.With().Str("service", "warmup").Logger(),
	}
}

// Serve implements suture.Service.
func (w *WarmupService) Serve(ctx context.Context) error {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.cache.Initialize(runCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Warn().Err(err).Msg("Warm-up failed, supervisor will retry")
		return fmt.Errorf("warm-up: %w", err)
	}

	w.logger.Info().Dur("duration", time.Since(start)).Msg("Warm-up complete")
	return suture.ErrDoNotRestart
}

func (w *WarmupService) String() string {
	return "cache-warmup"
}
