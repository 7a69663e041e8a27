// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

// Package config loads Stanza's configuration from defaults, an optional YAML
// file and environment variables (in that order of precedence, lowest first).
package config

import (
	"time"
)

// Config is the root configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Store       StoreConfig       `koanf:"store"`
	Logging     LoggingConfig     `koanf:"logging"`
	Embedding   EmbeddingConfig   `koanf:"embedding"`
	VectorCache VectorCacheConfig `koanf:"vector_cache"`
	Recommend   RecommendConfig   `koanf:"recommend"`
	Watcher     WatcherConfig     `koanf:"watcher"`
	Scheduler   SchedulerConfig   `koanf:"scheduler"`
	Resources   ResourcesConfig   `koanf:"resources"`
	Events      EventsConfig      `koanf:"events"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST (default: 0.0.0.0)
//   - HTTP_PORT (default: 8087)
//   - HTTP_TIMEOUT (default: 30s)
//   - CORS_ORIGINS: comma-separated list (default: *)
//   - TRIGGER_RATE_LIMIT: manual trigger requests per minute per client (default: 6)
type ServerConfig struct {
	Host             string        `koanf:"host"`
	Port             int           `koanf:"port"`
	Timeout          time.Duration `koanf:"timeout"`
	CORSOrigins      []string      `koanf:"cors_origins"`
	TriggerRateLimit int           `koanf:"trigger_rate_limit"`
}

// DatabaseConfig points at the DuckDB file holding items and interactions.
//
// Environment Variables:
//   - DUCKDB_PATH (default: /data/stanza.duckdb)
//   - DUCKDB_MAX_MEMORY (default: 1GB)
//   - DUCKDB_THREADS (default: 0 = runtime.NumCPU())
//   - SEED_SAMPLE_DATA (default: false)
type DatabaseConfig struct {
	Path           string `koanf:"path"`
	MaxMemory      string `koanf:"max_memory"`
	Threads        int    `koanf:"threads"`
	SeedSampleData bool   `koanf:"seed_sample_data"`
}

// StoreConfig configures the Badger key-value store holding preference
// summaries and the persisted run log.
//
// Environment Variables:
//   - STORE_PATH (default: /data/kv)
//   - STORE_IN_MEMORY (default: false)
//   - RUN_LOG_RETENTION (default: 168h)
type StoreConfig struct {
	Path         string        `koanf:"path"`
	InMemory     bool          `koanf:"in_memory"`
	RunRetention time.Duration `koanf:"run_retention"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// EmbeddingConfig selects and tunes the embedding collaborator.
//
// Provider "hashing" is a deterministic, offline feature-hashing embedder and
// needs no credentials. Provider "openai" talks to any OpenAI-compatible
// embeddings endpoint.
//
// Environment Variables:
//   - EMBEDDING_PROVIDER: hashing, openai (default: hashing)
//   - EMBEDDING_BASE_URL, EMBEDDING_API_KEY, EMBEDDING_MODEL
//   - EMBEDDING_DIMENSIONS (default: 256)
//   - EMBEDDING_BATCH_SIZE (default: 50)
//   - EMBEDDING_TIMEOUT (default: 30s)
//   - EMBEDDING_RATE_LIMIT: requests per second, 0 = unlimited (default: 5)
type EmbeddingConfig struct {
	Provider   string        `koanf:"provider"`
	BaseURL    string        `koanf:"base_url"`
	APIKey     string        `koanf:"api_key"`
	Model      string        `koanf:"model"`
	Dimensions int           `koanf:"dimensions"`
	BatchSize  int           `koanf:"batch_size"`
	Timeout    time.Duration `koanf:"timeout"`
	RateLimit  float64       `koanf:"rate_limit"`

	// BreakerFailures is the number of consecutive failures that opens the
	// circuit around the embedding endpoint.
	BreakerFailures uint32 `koanf:"breaker_failures"`

	// BreakerTimeout is how long the circuit stays open before a probe.
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// VectorCacheConfig locates the durable cache file pair.
//
// Environment Variables:
//   - VECTOR_CACHE_DIR (default: /data/vector_cache)
type VectorCacheConfig struct {
	Dir string `koanf:"dir"`
}

// RecommendConfig tunes the hybrid recommender.
//
// Environment Variables:
//   - RECOMMEND_DEFAULT_LIMIT (default: 6)
//   - RECOMMEND_MAX_LIMIT (default: 100)
//   - RECOMMEND_NEIGHBORS (default: 10)
//   - RECOMMEND_CANDIDATE_USERS (default: 100)
//   - RECOMMEND_NEIGHBOR_RECENT (default: 5)
//   - RECOMMEND_STRATEGY_TOP_N (default: 20)
//   - RECOMMEND_POPULARITY_SCALE (default: 1000)
type RecommendConfig struct {
	DefaultLimit     int     `koanf:"default_limit"`
	MaxLimit         int     `koanf:"max_limit"`
	Neighbors        int     `koanf:"neighbors"`
	CandidateUsers   int     `koanf:"candidate_users"`
	NeighborRecent   int     `koanf:"neighbor_recent"`
	StrategyTopN     int     `koanf:"strategy_top_n"`
	PopularityScale  float64 `koanf:"popularity_scale"`
	PaddingOverfetch int     `koanf:"padding_overfetch"`
}

// WatcherConfig configures corpus-growth polling.
//
// Environment Variables:
//   - WATCHER_ENABLED (default: true)
//   - WATCHER_INTERVAL (default: 10s)
type WatcherConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
}

// SchedulerConfig configures debounce, budget and retry behaviour.
//
// Environment Variables:
//   - SCHEDULER_DEBOUNCE (default: 30s)
//   - SCHEDULER_BUDGET (default: 300s)
//   - SCHEDULER_MAX_RETRIES (default: 3)
//   - SCHEDULER_RETRY_DELAY (default: 60s, multiplied by the retry number)
//   - SCHEDULER_HISTORY_SIZE (default: 50)
type SchedulerConfig struct {
	DebounceDelay  time.Duration `koanf:"debounce_delay"`
	Budget         time.Duration `koanf:"budget"`
	MaxRetries     int           `koanf:"max_retries"`
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
	HistorySize    int           `koanf:"history_size"`
}

// ResourcesConfig configures the advisory resource guard.
//
// Environment Variables:
//   - RESOURCE_SAMPLE_INTERVAL (default: 1s)
//   - RESOURCE_CPU_THRESHOLD (default: 80)
//   - RESOURCE_MEMORY_THRESHOLD (default: 80)
type ResourcesConfig struct {
	SampleInterval  time.Duration `koanf:"sample_interval"`
	CPUThreshold    float64       `koanf:"cpu_threshold"`
	MemoryThreshold float64       `koanf:"memory_threshold"`
}

// EventsConfig routes change notifications through the in-process event bus
// instead of calling the scheduler directly.
//
// Environment Variables:
//   - EVENTS_ENABLED (default: false)
//   - EVENTS_TOPIC (default: corpus.changes)
//   - EVENTS_BUFFER (default: 64)
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Topic   string `koanf:"topic"`
	Buffer  int64  `koanf:"buffer"`
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}
