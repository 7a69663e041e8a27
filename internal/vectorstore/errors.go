// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package vectorstore

import "errors"

var (
	// ErrEmbeddingUnavailable is returned when the embedding collaborator
	// cannot produce vectors. The current snapshot is left untouched.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrCacheMismatch means the durable cache was built from a different
	// ordered id list than the live corpus and must not be trusted.
	ErrCacheMismatch = errors.New("vector cache does not match corpus")

	// ErrCacheMissing means no durable cache exists yet.
	ErrCacheMissing = errors.New("vector cache not found")

	// ErrCacheCorrupt means the cache files exist but cannot be decoded.
	ErrCacheCorrupt = errors.New("vector cache corrupt")

	// ErrDimensionMismatch is returned when a vector's length disagrees with
	// the snapshot it is being added to.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
