// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

// Package recommend implements the hybrid recommender.
//
// # Strategies
//
// Four strategies contribute weighted scores to one candidate map:
//
//   - User-CF: the target's profile vector is compared with the profiles of
//     up to CandidateUsers other active users; the most similar Neighbors
//     each contribute their NeighborRecent latest items, scored by similarity.
//   - Item-CF: every item is scored by its mean cosine similarity to the
//     items the user has interacted with.
//   - Content: every item is scored by cosine similarity to the user's
//     profile vector.
//   - Popularity: normalized popularity, min(popularity/PopularityScale, 1),
//     over the top limit*2 popular items.
//
// # Regimes
//
// Weights depend on the user's interaction count n, looked up once per call:
//
//	cold   n == 0      user_cf 0.0  item_cf 0.0  content 0.4  popularity 0.6
//	light  0 < n < 10  user_cf 0.2  item_cf 0.4  content 0.3  popularity 0.1
//	heavy  n >= 10     user_cf 0.4  item_cf 0.4  content 0.2  popularity 0.0
//
// Popularity also runs when every other strategy came back empty.
//
// # Guarantees
//
// Recommend never returns an error and never returns an item the user has
// already interacted with, as long as their history could be read. When
// loading it fails the user is served as cold start, and popular items they
// have seen may come back. Other collaborator failures degrade the result to
// what the remaining strategies produced. Results short of the limit are padded
// from the global popularity ranking.
//
// The read path only touches the current vectorstore snapshot and the item
// store; it never waits on the update coordinator.
package recommend
