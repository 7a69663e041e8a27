// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

/*
Package api exposes the recommendation cache over HTTP using the Chi router.

Endpoints:

	GET  /api/v1/health                               liveness plus snapshot and database state
	GET  /api/v1/recommendations/user/{userID}        ranked item ids (?limit=N, ?explain=true)
	GET  /api/v1/recommendations/status               scheduler status
	POST /api/v1/recommendations/trigger              manual recomputation ({"item_id": N} optional)
	GET  /api/v1/recommendations/runs                 run log (?hours=24, newest first, at most 100)
	GET  /api/v1/users/{userID}/preferences           cached preference summary
	GET  /metrics                                     Prometheus metrics

Every JSON response uses the models.APIResponse envelope. The manual trigger
is rate limited per client IP with go-chi/httprate and its body is checked
with go-playground/validator.
*/
package api
