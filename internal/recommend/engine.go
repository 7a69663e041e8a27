// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/stanza/internal/logging"
	"github.com/tomtom215/stanza/internal/metrics"
	"github.com/tomtom215/stanza/internal/similarity"
	"github.com/tomtom215/stanza/internal/vectorstore"
)

// Recommender produces hybrid recommendations. It is safe for concurrent use
// and holds no per-request state.
type Recommender struct {
	cfg    *Config
	store  Store
	source SnapshotSource
	logger zerolog.Logger
}

// NewRecommender creates a recommender. A nil cfg uses DefaultConfig.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecommender(cfg *Config, store Store, source SnapshotSource, logger zerolog.Logger) (*Recommender, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Recommender{
		cfg:    cfg,
		store:  store,
		source: source,
		logger: logger.With().Str("component", "recommend").Logger(),
	}, nil
}

// Config returns the recommender configuration.
func (r *Recommender) Config() *Config { return r.cfg }

// Recommend returns up to limit item ids for userID, best first. It never
// fails; see Explain for the details behind the ranking.
func (r *Recommender) Recommend(ctx context.Context, userID int64, limit int) []int64 {
	return r.Explain(ctx, userID, limit).IDs()
}

// strategyOutcome is what one strategy produced for a request.
type strategyOutcome struct {
	ran    bool
	scored []similarity.Scored
	err    error
}

// Explain runs the hybrid ranking and returns scores, the regime and weights
// applied, and per-strategy candidate counts.
func (r *Recommender) Explain(ctx context.Context, userID int64, limit int) *Response {
	start := time.Now()
	limit = r.clampLimit(limit)
	logger := logging.Ctx(ctx, r.logger).With().Int64("user_id", userID).Logger()

	snap := r.source.Snapshot()
	resp := &Response{
		UserID:          userID,
		Limit:           limit,
		Items:           []ScoredItem{},
		Strategies:      make(map[string]StrategyReport, 5),
		SnapshotVersion: snap.Version(),
	}

	interactions, err := r.store.ListInteractions(ctx, userID)
	if err != nil {
		// Without history the user is served as cold start. Popularity may
		// then return items they have seen; an empty answer would be worse.
		logger.Warn().Err(err).Msg("Failed to load interactions, treating user as cold start")
		interactions = nil
	}

	regime := RegimeFor(r.cfg.Regimes, len(interactions))
	w := regime.Weights
	resp.Regime = regime.Name
	resp.Weights = w
	resp.InteractionCount = len(interactions)

	profile := newUserProfile(userID, interactions, snap)

	var (
		userCF, itemCF, content, popular strategyOutcome
		g                                errgroup.Group
	)
	if w.UserCF > 0 && profile.vector != nil {
		userCF.ran = true
		g.Go(func() error {
			userCF.scored, userCF.err = r.userCF(ctx, profile, snap)
			return nil
		})
	}
	if w.ItemCF > 0 && len(profile.seenIDs) > 0 {
		itemCF.ran = true
		g.Go(func() error {
			itemCF.scored = r.itemCF(profile, snap)
			return nil
		})
	}
	if w.Content > 0 && profile.vector != nil {
		content.ran = true
		g.Go(func() error {
			content.scored = r.content(profile, snap)
			return nil
		})
	}
	if w.Popularity > 0 {
		popular.ran = true
		g.Go(func() error {
			popular.scored, popular.err = r.popularity(ctx, profile, limit)
			return nil
		})
	}
	_ = g.Wait()

	acc := newAccumulator()
	r.merge(acc, resp, logger, StrategyUserCF, userCF, w.UserCF)
	r.merge(acc, resp, logger, StrategyItemCF, itemCF, w.ItemCF)
	r.merge(acc, resp, logger, StrategyContent, content, w.Content)

	if !popular.ran && acc.empty() {
		popular.ran = true
		popular.scored, popular.err = r.popularity(ctx, profile, limit)
	}
	r.merge(acc, resp, logger, StrategyPopularity, popular, w.Popularity)

	ranked := acc.ranked()
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	resp.Items = ranked

	if len(resp.Items) < limit {
		resp.Padded = r.pad(ctx, resp, profile, limit, logger)
	}

	resp.LatencyMS = time.Since(start).Milliseconds()
	metrics.RecordRecommendation(regime.Name, time.Since(start), len(resp.Items))

	logger.Debug().
		Str("regime", regime.Name).
		Int("interactions", resp.InteractionCount).
		Int("returned", len(resp.Items)).
		Int("padded", resp.Padded).
		Uint64("snapshot_version", resp.SnapshotVersion).
		Msg("Recommendation complete")

	return resp
}

func (r *Recommender) clampLimit(limit int) int {
	if limit <= 0 {
		limit = r.cfg.DefaultLimit
	}
	if limit > r.cfg.MaxLimit {
		limit = r.cfg.MaxLimit
	}
	return limit
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (r *Recommender) merge(acc *accumulator, resp *Response, logger zerolog.Logger, name string, out strategyOutcome, weight float64) {
	if !out.ran {
		return
	}
	report := StrategyReport{Ran: true, Candidates: len(out.scored)}
	if out.err != nil {
		report.Candidates = 0
		report.Error = out.err.Error()
		logger.Warn().Err(out.err).Str("strategy", name).Msg("Strategy failed, continuing without it")
	} else {
		for _, s := range out.scored {
			acc.add(s.ItemID, name, s.Score*weight)
		}
	}
	resp.Strategies[name] = report
	metrics.RecordStrategy(name, report.Candidates, out.err)
}

// pad fills a short result from the global popularity ranking.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (r *Recommender) pad(ctx context.Context, resp *Response, p *userProfile, limit int, logger zerolog.Logger) int {
	remaining := limit - len(resp.Items)
	items, err := r.store.PopularItems(ctx, remaining+r.cfg.PaddingOverfetch)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load popular items for padding")
		resp.Strategies[StrategyPadding] = StrategyReport{Ran: true, Error: err.Error()}
		metrics.RecordStrategy(StrategyPadding, 0, err)
		return 0
	}

	present := make(map[int64]struct{}, len(resp.Items))
	for _, it := range resp.Items {
		present[it.ItemID] = struct{}{}
	}

	added := 0
	for _, it := range items {
		if len(resp.Items) >= limit {
			break
		}
		if _, ok := p.seen[it.ID]; ok {
			continue
		}
		if _, ok := present[it.ID]; ok {
			continue
		}
		present[it.ID] = struct{}{}
		resp.Items = append(resp.Items, ScoredItem{ItemID: it.ID})
		added++
	}
	resp.Strategies[StrategyPadding] = StrategyReport{Ran: true, Candidates: added}
	metrics.RecordStrategy(StrategyPadding, added, nil)
	return added
}

// accumulator sums weighted contributions per item and remembers the order in
// which items were first proposed.
type accumulator struct {
	order []int64
	items map[int64]*ScoredItem
}

func newAccumulator() *accumulator {
	return &accumulator{items: make(map[int64]*ScoredItem)}
}

func (a *accumulator) add(itemID int64, strategy string, contribution float64) {
	it, ok := a.items[itemID]
	if !ok {
		it = &ScoredItem{ItemID: itemID, Contributions: make(map[string]float64, 2)}
		a.items[itemID] = it
		a.order = append(a.order, itemID)
	}
	it.Score += contribution
	it.Contributions[strategy] += contribution
}

func (a *accumulator) empty() bool { return len(a.order) == 0 }

// ranked orders by score descending, equal scores by lower item id.
func (a *accumulator) ranked() []ScoredItem {
	out := make([]ScoredItem, len(a.order))
	for i, id := range a.order {
		out[i] = *a.items[id]
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out
}

// compile-time check that the vector store satisfies SnapshotSource.
var _ SnapshotSource = (*vectorstore.Store)(nil)
