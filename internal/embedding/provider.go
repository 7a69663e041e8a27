// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

// Package embedding provides the embedding collaborators used by the vector
// store.
//
// Two providers are available:
//   - HashingProvider: deterministic feature hashing, no network, no
//     credentials. Suitable for development, tests and small corpora.
//   - OpenAIProvider: any OpenAI-compatible embeddings endpoint.
//
// New wraps the selected provider in a ResilientProvider, which adds a
// circuit breaker, a request rate limit and a per-call timeout.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stanza/internal/config"
)

// ErrEmptyInput is returned when Embed is called with no texts.
var ErrEmptyInput = errors.New("no texts provided for embedding")

// Provider turns texts into vectors, one per text, in input order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// New builds the configured provider wrapped with resilience controls.
func New(cfg config.EmbeddingConfig, logger zerolog.Logger) (*ResilientProvider, error) {
	var base Provider
	switch strings.ToLower(cfg.Provider) {
	case "hashing":
		base = NewHashingProvider(cfg.Dimensions)
	case "openai":
		base = NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	return NewResilientProvider(base, ResilienceSettings{
		Timeout:         cfg.Timeout,
		RateLimit:       cfg.RateLimit,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
	}, logger), nil
}
