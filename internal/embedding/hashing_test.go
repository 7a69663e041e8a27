// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package embedding

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello, World!", []string{"hello", "world"}},
		{"go1.24 release", []string{"go1", "24", "release"}},
		{"推荐系统", []string{"推", "荐", "系", "统"}},
		{"Go语言 rocks", []string{"go", "语", "言", "rocks"}},
		{"   ", nil},
	}
	for _, tt := range tests {
		if got := Tokenize(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("Tokenize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestHashingProviderDeterministic(t *testing.T) {
	p := NewHashingProvider(64)
	ctx := context.Background()

	a, err := p.Embed(ctx, []string{"vector search with cosine similarity", "empty?"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	b, err := NewHashingProvider(64).Embed(ctx, []string{"vector search with cosine similarity", "empty?"})
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 2 || len(a[0]) != 64 {
		t.Fatalf("got %d vectors of dim %d", len(a), len(a[0]))
	}
	if !slices.Equal(a[0], b[0]) {
		t.Error("same text produced different vectors")
	}
	if math.Abs(norm(a[0])-1) > 1e-5 {
		t.Errorf("vector norm = %v, want 1", norm(a[0]))
	}
}

func TestHashingProviderEmptyText(t *testing.T) {
	vecs, err := NewHashingProvider(8).Embed(context.Background(), []string{"!!!"})
	if err != nil {
		t.Fatal(err)
	}
	if norm(vecs[0]) != 0 {
		t.Errorf("expected zero vector for text without tokens, got %v", vecs[0])
	}
}

func TestHashingProviderRejectsEmptyBatch(t *testing.T) {
	if _, err := NewHashingProvider(8).Embed(context.Background(), nil); !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Embed(nil) error = %v, want ErrEmptyInput", err)
	}
}

func TestHashingProviderDefaultDimensions(t *testing.T) {
	if got := NewHashingProvider(0).Dimensions(); got != DefaultHashingDimensions {
		t.Errorf("Dimensions() = %d, want %d", got, DefaultHashingDimensions)
	}
}
