// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

/*
Package main is the entry point for the Stanza server.

Stanza keeps an in-memory embedding snapshot of an item corpus and serves
hybrid recommendations from it. New items are detected by polling the
analytics database, debounced by the update scheduler and folded into the
snapshot without a restart.

# Startup order

 1. Configuration: Koanf v2 (defaults, optional YAML file, environment)
 2. Logging: zerolog
 3. DuckDB analytics database, optionally seeded with sample data
 4. Badger store for preference summaries and the run log
 5. Embedding provider (hashing or OpenAI compatible) behind a circuit breaker
 6. Vector store with its on-disk cache
 7. Recommender, update coordinator, resource guard and update scheduler
 8. Change watcher, optionally routed through the Watermill event bus
 9. Chi HTTP API
 10. Suture supervisor tree

# Signals

SIGINT and SIGTERM cancel the root context. The tree drains the HTTP server,
carries any pending change batch over and stops the watcher before the
stores are closed.

# Example

	export DUCKDB_PATH=/data/stanza.duckdb
	export STORE_PATH=/data/kv
	export VECTOR_CACHE_DIR=/data/vectors
	export EMBEDDING_PROVIDER=hashing
	./stanza
*/
package main
