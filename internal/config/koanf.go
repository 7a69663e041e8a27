// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/stanza/config.yaml",
	"/etc/stanza/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. File and environment layers
// override individual fields.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8087,
			Timeout:          30 * time.Second,
			CORSOrigins:      []string{"*"},
			TriggerRateLimit: 6,
		},
		Database: DatabaseConfig{
			Path:      "/data/stanza.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = runtime.NumCPU()
		},
		Store: StoreConfig{
			Path:         "/data/kv",
			RunRetention: 7 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Embedding: EmbeddingConfig{
			Provider:        "hashing",
			Model:           "text-embedding-3-small",
			Dimensions:      256,
			BatchSize:       50,
			Timeout:         30 * time.Second,
			RateLimit:       5,
			BreakerFailures: 5,
			BreakerTimeout:  time.Minute,
		},
		VectorCache: VectorCacheConfig{
			Dir: "/data/vector_cache",
		},
		Recommend: RecommendConfig{
			DefaultLimit:     6,
			MaxLimit:         100,
			Neighbors:        10,
			CandidateUsers:   100,
			NeighborRecent:   5,
			StrategyTopN:     20,
			PopularityScale:  1000,
			PaddingOverfetch: 20,
		},
		Watcher: WatcherConfig{
			Enabled:  true,
			Interval: 10 * time.Second,
		},
		Scheduler: SchedulerConfig{
			DebounceDelay:  30 * time.Second,
			Budget:         300 * time.Second,
			MaxRetries:     3,
			RetryBaseDelay: 60 * time.Second,
			HistorySize:    50,
		},
		Resources: ResourcesConfig{
			SampleInterval:  time.Second,
			CPUThreshold:    80,
			MemoryThreshold: 80,
		},
		Events: EventsConfig{
			Enabled: false,
			Topic:   "corpus.changes",
			Buffer:  64,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: explicit mapping table in envTransformFunc
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields converts comma-separated env values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored so the process environment cannot leak
// arbitrary keys into the configuration.
var envMappings = map[string]string{
	"http_host":          "server.host",
	"http_port":          "server.port",
	"http_timeout":       "server.timeout",
	"cors_origins":       "server.cors_origins",
	"trigger_rate_limit": "server.trigger_rate_limit",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"seed_sample_data":  "database.seed_sample_data",

	"store_path":        "store.path",
	"store_in_memory":   "store.in_memory",
	"run_log_retention": "store.run_retention",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"embedding_provider":         "embedding.provider",
	"embedding_base_url":         "embedding.base_url",
	"embedding_api_key":          "embedding.api_key",
	"embedding_model":            "embedding.model",
	"embedding_dimensions":       "embedding.dimensions",
	"embedding_batch_size":       "embedding.batch_size",
	"embedding_timeout":          "embedding.timeout",
	"embedding_rate_limit":       "embedding.rate_limit",
	"embedding_breaker_failures": "embedding.breaker_failures",
	"embedding_breaker_timeout":  "embedding.breaker_timeout",

	"vector_cache_dir": "vector_cache.dir",

	"recommend_default_limit":     "recommend.default_limit",
	"recommend_max_limit":         "recommend.max_limit",
	"recommend_neighbors":         "recommend.neighbors",
	"recommend_candidate_users":   "recommend.candidate_users",
	"recommend_neighbor_recent":   "recommend.neighbor_recent",
	"recommend_strategy_top_n":    "recommend.strategy_top_n",
	"recommend_popularity_scale":  "recommend.popularity_scale",
	"recommend_padding_overfetch": "recommend.padding_overfetch",

	"watcher_enabled":  "watcher.enabled",
	"watcher_interval": "watcher.interval",

	"scheduler_debounce":     "scheduler.debounce_delay",
	"scheduler_budget":       "scheduler.budget",
	"scheduler_max_retries":  "scheduler.max_retries",
	"scheduler_retry_delay":  "scheduler.retry_base_delay",
	"scheduler_history_size": "scheduler.history_size",

	"resource_sample_interval":  "resources.sample_interval",
	"resource_cpu_threshold":    "resources.cpu_threshold",
	"resource_memory_threshold": "resources.memory_threshold",

	"events_enabled": "events.enabled",
	"events_topic":   "events.topic",
	"events_buffer":  "events.buffer",
}

// envTransformFunc transforms environment variable names to koanf paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - SCHEDULER_DEBOUNCE -> scheduler.debounce_delay
//   - EMBEDDING_PROVIDER -> embedding.provider
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// WatchConfigFile invokes callback whenever the file at path changes.
// The caller owns any locking around the configuration it reloads.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}

// ConfigFilePath returns the config file Load would read, or "".
func ConfigFilePath() string {
	return findConfigFile()
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
