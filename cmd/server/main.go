// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/stanza/internal/api"
	"github.com/tomtom215/stanza/internal/config"
	"github.com/tomtom215/stanza/internal/coordinator"
	"github.com/tomtom215/stanza/internal/database"
	"github.com/tomtom215/stanza/internal/embedding"
	"github.com/tomtom215/stanza/internal/events"
	"github.com/tomtom215/stanza/internal/kvstore"
	"github.com/tomtom215/stanza/internal/logging"
	"github.com/tomtom215/stanza/internal/recommend"
	"github.com/tomtom215/stanza/internal/resourceguard"
	"github.com/tomtom215/stanza/internal/scheduler"
	"github.com/tomtom215/stanza/internal/supervisor"
	"github.com/tomtom215/stanza/internal/supervisor/services"
	"github.com/tomtom215/stanza/internal/vectorstore"
	"github.com/tomtom215/stanza/internal/watcher"
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logger := logging.Logger()

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("store_path", cfg.Store.Path).
		Str("embedding_provider", cfg.Embedding.Provider).
		Msg("Starting Stanza")

	watchLogLevel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	kv, err := kvstore.Open(kvstore.Options{
		Path:         cfg.Store.Path,
		InMemory:     cfg.Store.InMemory,
		RunRetention: cfg.Store.RunRetention,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open key-value store")
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing key-value store")
		}
	}()

	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize embedding provider")
	}

	var cache *vectorstore.FileCache
	if cfg.VectorCache.Dir != "" {
		cache = vectorstore.NewFileCache(cfg.VectorCache.Dir)
	} else {
		logging.Warn().Msg("VECTOR_CACHE_DIR not set, every start re-embeds the corpus")
	}
	vecs := vectorstore.New(embedder, cache, cfg.Embedding.BatchSize, logger)

	recommender, err := recommend.NewRecommender(recommend.ConfigFrom(cfg.Recommend), db, vecs, logger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid recommender configuration")
	}

	coord := coordinator.New(db, vecs, kv, logger)
	sched := scheduler.New(scheduler.ConfigFrom(cfg.Scheduler), coord, newGuard(ctx, cfg), kv, logger)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewWarmupService(coord, 0, logger))
	tree.AddUpdateService(sched)

	var notifier watcher.Notifier = sched
	if cfg.Events.Enabled {
		bus := events.NewBus(cfg.Events, logger)
		defer func() {
			if err := bus.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event bus")
			}
		}()
		notifier = bus.Publisher()
		tree.AddUpdateService(events.NewRelay(bus, sched, logger))
		logging.Info().Str("topic", bus.Topic()).Msg("Change notifications routed through event bus")
	}

	if cfg.Watcher.Enabled {
		tree.AddUpdateService(watcher.New(db, notifier, cfg.Watcher.Interval, logger))
	} else {
		logging.Info().Msg("Change watcher disabled (WATCHER_ENABLED=false), use the trigger endpoint")
	}

	handler := api.NewHandler(api.Deps{
		Recommender: recommender,
		Scheduler:   sched,
		Runs:        kv,
		Prefs:       kv,
		Aggregates:  db,
		DB:          db,
		Snapshots:   vecs,
	})
	mwCfg := api.DefaultMiddlewareConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		mwCfg.CORSAllowedOrigins = cfg.Server.CORSOrigins
	}
	mwCfg.TriggerRequests = cfg.Server.TriggerRateLimit

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, mwCfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// Manual triggers block until the run finishes.
		WriteTimeout: cfg.Server.Timeout + scheduler.ConfigFrom(cfg.Scheduler).Budget,
		IdleTimeout:  120 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second, logger))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Some services did not stop cleanly")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Unstopped service")
		}
	}

	logging.Info().Msg("Server stopped gracefully")
}

// newGuard returns the resource guard, or nil when the process cannot be
// sampled. Runs proceed without resource reports in that case.
func newGuard(ctx context.Context, cfg *config.Config) *resourceguard.Guard {
	sampler, err := resourceguard.NewProcessSampler(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Resource sampling unavailable")
		return nil
	}
	budget := scheduler.ConfigFrom(cfg.Scheduler).Budget
	return resourceguard.New(resourceguard.ConfigFrom(cfg.Resources, budget), sampler, logging.Logger())
}

// watchLogLevel reloads the log level when the config file changes.
func watchLogLevel() {
	path := config.ConfigFilePath()
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		reloaded, err := config.Load()
		if err != nil {
			logging.Warn().Err(err).Msg("Config reload failed, keeping current settings")
			return
		}
		logging.SetLevelString(reloaded.Logging.Level)
		logging.Info().Str("level", reloaded.Logging.Level).Msg("Log level reloaded")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}
