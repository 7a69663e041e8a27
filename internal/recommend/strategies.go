// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package recommend

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/stanza/internal/models"
	"github.com/tomtom215/stanza/internal/similarity"
	"github.com/tomtom215/stanza/internal/vectorstore"
)

// neighborFetchConcurrency bounds parallel interaction lookups in User-CF.
const neighborFetchConcurrency = 8

// userProfile is the target user's state shared by every strategy of one
// request.
type userProfile struct {
	userID  int64
	vector  []float32 // nil when no interaction is in the snapshot
	seen    map[int64]struct{}
	seenIDs []int64 // distinct, most recent first
}

func newUserProfile(userID int64, interactions []models.Interaction, snap *vectorstore.Snapshot) *userProfile {
	p := &userProfile{
		userID: userID,
		seen:   make(map[int64]struct{}, len(interactions)),
	}
	for _, in := range interactions {
		if _, dup := p.seen[in.ItemID]; !dup {
			p.seen[in.ItemID] = struct{}{}
			p.seenIDs = append(p.seenIDs, in.ItemID)
		}
	}
	p.vector = similarity.ProfileVector(weighted(interactions), snap)
	return p
}

func weighted(interactions []models.Interaction) []similarity.Weighted {
	out := make([]similarity.Weighted, len(interactions))
	for i, in := range interactions {
		out[i] = similarity.Weighted{ItemID: in.ItemID, Weight: in.EffectiveWeight()}
	}
	return out
}

type neighbor struct {
	userID       int64
	similarity   float64
	interactions []models.Interaction
}

// userCF proposes the recent items of the most similar users, each scored by
// that user's similarity. Negative similarities are kept: a dissimilar
// neighbour pushes its items down.
func (r *Recommender) userCF(ctx context.Context, p *userProfile, snap *vectorstore.Snapshot) ([]similarity.Scored, error) {
	others, err := r.store.ListActiveUsers(ctx, p.userID, r.cfg.CandidateUsers)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}

	fetched := make([][]models.Interaction, len(others))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(neighborFetchConcurrency)
	for i, uid := range others {
		g.Go(func() error {
			ints, err := r.store.ListInteractions(gctx, uid)
			if err != nil {
				return fmt.Errorf("interactions of user %d: %w", uid, err)
			}
			fetched[i] = ints
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	neighbors := make([]neighbor, 0, len(others))
	for i, uid := range others {
		vec := similarity.ProfileVector(weighted(fetched[i]), snap)
		if vec == nil {
			continue
		}
		neighbors = append(neighbors, neighbor{
			userID:       uid,
			similarity:   similarity.Cosine(p.vector, vec),
			interactions: fetched[i],
		})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].similarity != neighbors[j].similarity {
			return neighbors[i].similarity > neighbors[j].similarity
		}
		return neighbors[i].userID < neighbors[j].userID
	})
	if len(neighbors) > r.cfg.Neighbors {
		neighbors = neighbors[:r.cfg.Neighbors]
	}

	var out []similarity.Scored
	for _, nb := range neighbors {
		recent := nb.interactions
		if len(recent) > r.cfg.NeighborRecent {
			recent = recent[:r.cfg.NeighborRecent]
		}
		for _, in := range recent {
			if _, ok := p.seen[in.ItemID]; ok {
				continue
			}
			out = append(out, similarity.Scored{ItemID: in.ItemID, Score: nb.similarity})
		}
	}
	return out, nil
}

// itemCF scores every unseen item by its mean similarity to the seen items.
func (r *Recommender) itemCF(p *userProfile, snap *vectorstore.Snapshot) []similarity.Scored {
	means := similarity.MeanSimilarity(snap, p.seenIDs)
	if means == nil {
		return nil
	}
	ids := snap.IDs()
	scored := make([]similarity.Scored, 0, len(ids))
	for i, id := range ids {
		if _, ok := p.seen[id]; ok || means[i] <= 0 {
			continue
		}
		scored = append(scored, similarity.Scored{ItemID: id, Score: means[i]})
	}
	return similarity.TopN(scored, r.cfg.StrategyTopN)
}

// content ranks unseen items by similarity to the user's profile vector.
func (r *Recommender) content(p *userProfile, snap *vectorstore.Snapshot) []similarity.Scored {
	ranked := similarity.RankBySimilarity(p.vector, snap, p.seen, r.cfg.StrategyTopN)
	out := ranked[:0]
	for _, s := range ranked {
		if s.Score > 0 {
			out = append(out, s)
		}
	}
	return out
}

// popularity scores the top limit*2 popular unseen items by normalized
// popularity.
func (r *Recommender) popularity(ctx context.Context, p *userProfile, limit int) ([]similarity.Scored, error) {
	items, err := r.store.PopularItems(ctx, limit*2)
	if err != nil {
		return nil, fmt.Errorf("popular items: %w", err)
	}
	out := make([]similarity.Scored, 0, len(items))
	for _, it := range items {
		if _, ok := p.seen[it.ID]; ok {
			continue
		}
		out = append(out, similarity.Scored{ItemID: it.ID, Score: min(it.Popularity/r.cfg.PopularityScale, 1)})
	}
	return out, nil
}
