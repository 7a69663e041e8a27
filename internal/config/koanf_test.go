// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies the built-in defaults carry the documented values.
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Scheduler.DebounceDelay != 30*time.Second {
		t.Errorf("Scheduler.DebounceDelay = %v, want 30s", cfg.Scheduler.DebounceDelay)
	}
	if cfg.Scheduler.Budget != 300*time.Second {
		t.Errorf("Scheduler.Budget = %v, want 300s", cfg.Scheduler.Budget)
	}
	if cfg.Scheduler.MaxRetries != 3 {
		t.Errorf("Scheduler.MaxRetries = %d, want 3", cfg.Scheduler.MaxRetries)
	}
	if cfg.Scheduler.RetryBaseDelay != 60*time.Second {
		t.Errorf("Scheduler.RetryBaseDelay = %v, want 60s", cfg.Scheduler.RetryBaseDelay)
	}
	if cfg.Watcher.Interval != 10*time.Second {
		t.Errorf("Watcher.Interval = %v, want 10s", cfg.Watcher.Interval)
	}
	if cfg.Resources.CPUThreshold != 80 || cfg.Resources.MemoryThreshold != 80 {
		t.Errorf("Resources thresholds = %v/%v, want 80/80", cfg.Resources.CPUThreshold, cfg.Resources.MemoryThreshold)
	}
	if cfg.Embedding.BatchSize != 50 {
		t.Errorf("Embedding.BatchSize = %d, want 50", cfg.Embedding.BatchSize)
	}
	if cfg.Recommend.Neighbors != 10 || cfg.Recommend.CandidateUsers != 100 || cfg.Recommend.NeighborRecent != 5 {
		t.Errorf("Recommend neighbour settings = %d/%d/%d, want 10/100/5",
			cfg.Recommend.Neighbors, cfg.Recommend.CandidateUsers, cfg.Recommend.NeighborRecent)
	}
	if cfg.Recommend.PopularityScale != 1000 {
		t.Errorf("Recommend.PopularityScale = %v, want 1000", cfg.Recommend.PopularityScale)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"SCHEDULER_DEBOUNCE", "scheduler.debounce_delay"},
		{"scheduler_max_retries", "scheduler.max_retries"},
		{"EMBEDDING_PROVIDER", "embedding.provider"},
		{"VECTOR_CACHE_DIR", "vector_cache.dir"},
		{"CORS_ORIGINS", "server.cors_origins"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := envTransformFunc(tt.key); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SCHEDULER_DEBOUNCE", "5s")
	t.Setenv("SCHEDULER_MAX_RETRIES", "1")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("EVENTS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Scheduler.DebounceDelay != 5*time.Second {
		t.Errorf("Scheduler.DebounceDelay = %v, want 5s", cfg.Scheduler.DebounceDelay)
	}
	if cfg.Scheduler.MaxRetries != 1 {
		t.Errorf("Scheduler.MaxRetries = %d, want 1", cfg.Scheduler.MaxRetries)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("Server.CORSOrigins = %v, want two trimmed origins", cfg.Server.CORSOrigins)
	}
	if !cfg.Events.Enabled {
		t.Error("Events.Enabled = false, want true")
	}
	if cfg.Scheduler.Budget != 300*time.Second {
		t.Errorf("unset values must keep defaults, Scheduler.Budget = %v", cfg.Scheduler.Budget)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 7000
scheduler:
  debounce_delay: 45s
  history_size: 10
embedding:
  provider: openai
  model: bge-m3
  dimensions: 1024
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "7001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7001 {
		t.Errorf("env must win over file: Server.Port = %d, want 7001", cfg.Server.Port)
	}
	if cfg.Scheduler.DebounceDelay != 45*time.Second {
		t.Errorf("Scheduler.DebounceDelay = %v, want 45s", cfg.Scheduler.DebounceDelay)
	}
	if cfg.Scheduler.HistorySize != 10 {
		t.Errorf("Scheduler.HistorySize = %d, want 10", cfg.Scheduler.HistorySize)
	}
	if cfg.Embedding.Provider != "openai" || cfg.Embedding.Dimensions != 1024 {
		t.Errorf("Embedding = %+v, want openai/1024", cfg.Embedding)
	}
	if ConfigFilePath() != path {
		t.Errorf("ConfigFilePath() = %q, want %q", ConfigFilePath(), path)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("SCHEDULER_MAX_RETRIES", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail for negative max retries")
	}
}
