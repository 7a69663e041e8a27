// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package recommend

import (
	"errors"
	"fmt"

	"github.com/tomtom215/stanza/internal/config"
)

// Config tunes the recommender.
type Config struct {
	// DefaultLimit applies when a caller passes limit <= 0.
	DefaultLimit int

	// MaxLimit caps the requested limit.
	MaxLimit int

	// Neighbors is the number of similar users User-CF keeps.
	Neighbors int

	// CandidateUsers bounds how many other users User-CF compares against.
	CandidateUsers int

	// NeighborRecent is how many of each neighbour's latest interactions
	// User-CF proposes.
	NeighborRecent int

	// StrategyTopN bounds the candidates of Item-CF and Content.
	StrategyTopN int

	// PopularityScale normalizes popularity into [0, 1].
	PopularityScale float64

	// PaddingOverfetch is added to the number of popular items fetched when
	// padding a short result.
	PaddingOverfetch int

	// Regimes is the weight table, ascending by MinInteractions.
	Regimes []Regime
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultLimit:     6,
		MaxLimit:         100,
		Neighbors:        10,
		CandidateUsers:   100,
		NeighborRecent:   5,
		StrategyTopN:     20,
		PopularityScale:  1000,
		PaddingOverfetch: 20,
		Regimes:          DefaultRegimes,
	}
}

// ConfigFrom maps the application configuration section.
func ConfigFrom(c config.RecommendConfig) *Config {
	return &Config{
		DefaultLimit:     c.DefaultLimit,
		MaxLimit:         c.MaxLimit,
		Neighbors:        c.Neighbors,
		CandidateUsers:   c.CandidateUsers,
		NeighborRecent:   c.NeighborRecent,
		StrategyTopN:     c.StrategyTopN,
		PopularityScale:  c.PopularityScale,
		PaddingOverfetch: c.PaddingOverfetch,
		Regimes:          DefaultRegimes,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.DefaultLimit <= 0 || c.MaxLimit < c.DefaultLimit {
		errs = append(errs, fmt.Errorf("limits: default %d, max %d", c.DefaultLimit, c.MaxLimit))
	}
	if c.Neighbors <= 0 || c.CandidateUsers <= 0 || c.NeighborRecent <= 0 || c.StrategyTopN <= 0 {
		errs = append(errs, errors.New("neighbour and top-n sizes must be positive"))
	}
	if c.PopularityScale <= 0 {
		errs = append(errs, fmt.Errorf("popularity scale must be positive, got %g", c.PopularityScale))
	}
	if c.PaddingOverfetch < 0 {
		errs = append(errs, fmt.Errorf("padding overfetch must be >= 0, got %d", c.PaddingOverfetch))
	}
	if len(c.Regimes) == 0 {
		errs = append(errs, errors.New("regime table is empty"))
	}
	for i := 1; i < len(c.Regimes); i++ {
		if c.Regimes[i].MinInteractions <= c.Regimes[i-1].MinInteractions {
			errs = append(errs, fmt.Errorf("regime %q must have a higher threshold than %q", c.Regimes[i].Name, c.Regimes[i-1].Name))
		}
	}
	return errors.Join(errs...)
}
