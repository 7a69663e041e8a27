// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRunIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := RunIDFromContext(ctx); got != "" {
		t.Errorf("RunIDFromContext(empty) = %q, want empty", got)
	}

	id := GenerateRunID()
	if len(id) != 36 {
		t.Errorf("GenerateRunID() length = %d, want 36", len(id))
	}

	ctx = ContextWithRunID(ctx, id)
	if got := RunIDFromContext(ctx); got != id {
		t.Errorf("RunIDFromContext() = %q, want %q", got, id)
	}
}

func TestCtxAddsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	base := NewTestLogger(&buf)

	ctx := ContextWithRunID(context.Background(), "run-1")
	ctx = ContextWithRequestID(ctx, "req-9")

	logger := Ctx(ctx, base)
	logger.Info().Msg("hello")

	out := buf.String()
	for _, want := range []string{`"run_id":"run-1"`, `"request_id":"req-9"`, `"hello"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %s", out, want)
		}
	}
}

func TestCtxWithoutIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	logger := Ctx(context.Background(), NewTestLogger(&buf))
	logger.Info().Msg("plain")

	if strings.Contains(buf.String(), "run_id") {
		t.Errorf("unexpected run_id in %q", buf.String())
	}
	if got := GenerateRequestID(); len(got) != 8 {
		t.Errorf("GenerateRequestID() length = %d, want 8", len(got))
	}
}
