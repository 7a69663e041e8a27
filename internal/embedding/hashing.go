// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package embedding

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// DefaultHashingDimensions is used when NewHashingProvider gets a
// non-positive dimension.
const DefaultHashingDimensions = 256

// HashingProvider embeds text with the signed feature-hashing trick: every
// token is hashed into one of dim buckets with a +1 or -1 sign, and the
// result is L2-normalized. Text with no tokens yields the zero vector.
//
// Han characters are treated as one token each; other scripts are split into
// runs of letters and digits.
type HashingProvider struct {
	dim int
}

// NewHashingProvider creates a provider producing dim-sized vectors.
func NewHashingProvider(dim int) *HashingProvider {
	if dim <= 0 {
		dim = DefaultHashingDimensions
	}
	return &HashingProvider{dim: dim}
}

// Name implements Provider.
func (p *HashingProvider) Name() string { return "hashing" }

// Dimensions returns the vector size.
func (p *HashingProvider) Dimensions() int { return p.dim }

// Embed implements Provider.
func (p *HashingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.vector(text)
	}
	return out, nil
}

func (p *HashingProvider) vector(text string) []float32 {
	acc := make([]float64, p.dim)
	for _, tok := range Tokenize(text) {
		h := xxhash.Sum64String(tok)
		bucket := h % uint64(p.dim)
		if h>>63 == 1 {
			acc[bucket]--
		} else {
			acc[bucket]++
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, p.dim)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

// Tokenize lower-cases text and splits it into tokens.
func Tokenize(text string) []string {
	var tokens []string
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.Is(unicode.Han, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}
