// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

/*
Package supervisor runs Stanza's long-lived services under suture v4.

# Tree

	stanza
	├── data-layer
	│   └── cache-warmup        (one shot, retried until the cache loads)
	├── update-layer
	│   ├── update-scheduler
	│   ├── change-watcher      (if WATCHER_ENABLED)
	│   └── event-relay         (if EVENTS_ENABLED)
	└── api-layer
	    └── http-server

Each layer restarts its own children, so a failing watcher never interrupts
the HTTP server. Supervisor events are logged through sutureslog, which writes
into the zerolog pipeline via logging.NewSlogHandler.

# Return values

Services return ctx.Err() on shutdown and a non-nil error to be restarted.
The warm-up returns suture.ErrDoNotRestart once it has succeeded.

# Usage

	tree, err := supervisor.NewSupervisorTree(slogger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewWarmupService(coord, 0, logger))
	tree.AddUpdateService(sched)
	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second, logger))
	return tree.Serve(ctx)

Stuck shutdowns can be inspected with UnstoppedServiceReport.
*/
package supervisor
