// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package recommend

// Weights are the per-strategy multipliers of one regime.
type Weights struct {
	UserCF     float64 `json:"user_cf"`
	ItemCF     float64 `json:"item_cf"`
	Content    float64 `json:"content"`
	Popularity float64 `json:"popularity"`
}

// Regime is a row of the weight table: it applies to users with at least
// MinInteractions interactions.
type Regime struct {
	Name            string  `json:"name"`
	MinInteractions int     `json:"min_interactions"`
	Weights         Weights `json:"weights"`
}

// DefaultRegimes is ordered by ascending MinInteractions.
var DefaultRegimes = []Regime{
	{Name: "cold", MinInteractions: 0, Weights: Weights{UserCF: 0, ItemCF: 0, Content: 0.4, Popularity: 0.6}},
	{Name: "light", MinInteractions: 1, Weights: Weights{UserCF: 0.2, ItemCF: 0.4, Content: 0.3, Popularity: 0.1}},
	{Name: "heavy", MinInteractions: 10, Weights: Weights{UserCF: 0.4, ItemCF: 0.4, Content: 0.2, Popularity: 0}},
}

// RegimeFor returns the last regime whose threshold n reaches. The table must
// be sorted by MinInteractions; n below every threshold gets the first row.
func RegimeFor(table []Regime, n int) Regime {
	chosen := table[0]
	for _, r := range table[1:] {
		if n < r.MinInteractions {
			break
		}
		chosen = r
	}
	return chosen
}
