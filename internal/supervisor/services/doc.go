// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

// Package services adapts Stanza components that do not already implement
// suture.Service: the HTTP server and the one-shot cache warm-up.
package services
