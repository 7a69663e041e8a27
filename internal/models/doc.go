// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

/*
Package models defines the data structures shared across Stanza.

Key Components:

  - Item: A corpus entry (poem/document) with the content used for embedding,
    an optional topic label, and a popularity scalar (view count).
  - Interaction: An append-only (user, item, time, weight) record.
  - PreferenceSummary: Display-only per-user summary recomputed on full rebuilds.
  - APIResponse / Metadata / APIError: The standard HTTP response envelope.

Identifiers are int64 values assigned by the collaborator store. They are
stable and never reused, and ordering by identifier is used as the
deterministic tie-breaker throughout the recommendation code.
*/
package models
