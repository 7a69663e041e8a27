// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for values the services cannot run with.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.TriggerRateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.trigger_rate_limit must be >= 0, got %d", c.Server.TriggerRateLimit))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required unless store.in_memory is set"))
	}
	if c.VectorCache.Dir == "" {
		errs = append(errs, errors.New("vector_cache.dir is required"))
	}

	errs = append(errs, c.Embedding.validate()...)
	errs = append(errs, c.Recommend.validate()...)
	errs = append(errs, c.Scheduler.validate()...)

	if c.Watcher.Enabled && c.Watcher.Interval <= 0 {
		errs = append(errs, fmt.Errorf("watcher.interval must be positive, got %s", c.Watcher.Interval))
	}
	if c.Resources.SampleInterval <= 0 {
		errs = append(errs, fmt.Errorf("resources.sample_interval must be positive, got %s", c.Resources.SampleInterval))
	}
	if c.Resources.CPUThreshold <= 0 || c.Resources.MemoryThreshold <= 0 {
		errs = append(errs, errors.New("resources thresholds must be positive percentages"))
	}
	if c.Events.Enabled && c.Events.Topic == "" {
		errs = append(errs, errors.New("events.topic is required when events are enabled"))
	}

	return errors.Join(errs...)
}

func (e EmbeddingConfig) validate() []error {
	var errs []error
	switch strings.ToLower(e.Provider) {
	case "hashing":
	case "openai":
		if e.Model == "" {
			errs = append(errs, errors.New("embedding.model is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("embedding.provider must be hashing or openai, got %q", e.Provider))
	}
	if e.Dimensions <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimensions must be positive, got %d", e.Dimensions))
	}
	if e.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("embedding.batch_size must be positive, got %d", e.BatchSize))
	}
	if e.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("embedding.rate_limit must be >= 0, got %g", e.RateLimit))
	}
	return errs
}

func (r RecommendConfig) validate() []error {
	var errs []error
	if r.DefaultLimit <= 0 {
		errs = append(errs, fmt.Errorf("recommend.default_limit must be positive, got %d", r.DefaultLimit))
	}
	if r.MaxLimit < r.DefaultLimit {
		errs = append(errs, fmt.Errorf("recommend.max_limit (%d) must be >= default_limit (%d)", r.MaxLimit, r.DefaultLimit))
	}
	if r.Neighbors <= 0 || r.CandidateUsers <= 0 || r.NeighborRecent <= 0 || r.StrategyTopN <= 0 {
		errs = append(errs, errors.New("recommend neighbour and top-n sizes must be positive"))
	}
	if r.PopularityScale <= 0 {
		errs = append(errs, fmt.Errorf("recommend.popularity_scale must be positive, got %g", r.PopularityScale))
	}
	if r.PaddingOverfetch < 0 {
		errs = append(errs, fmt.Errorf("recommend.padding_overfetch must be >= 0, got %d", r.PaddingOverfetch))
	}
	return errs
}

func (s SchedulerConfig) validate() []error {
	var errs []error
	if s.DebounceDelay < 0 {
		errs = append(errs, fmt.Errorf("scheduler.debounce_delay must be >= 0, got %s", s.DebounceDelay))
	}
	if s.Budget <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.budget must be positive, got %s", s.Budget))
	}
	if s.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("scheduler.max_retries must be >= 0, got %d", s.MaxRetries))
	}
	if s.RetryBaseDelay < 0 {
		errs = append(errs, fmt.Errorf("scheduler.retry_base_delay must be >= 0, got %s", s.RetryBaseDelay))
	}
	if s.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.history_size must be positive, got %d", s.HistorySize))
	}
	return errs
}
