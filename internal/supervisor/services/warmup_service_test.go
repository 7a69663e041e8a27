// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

type fakeInitializer struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (f *fakeInitializer) Initialize(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeInitializer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestWarmupServiceServe(t *testing.T) {
	loadErr := errors.New("embedding unavailable")

	tests := []struct {
		name    string
		errs    []error
		wantErr error
	}{
		{"success stops restarts", nil, suture.ErrDoNotRestart},
		{"failure is returned", []error{loadErr}, loadErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &fakeInitializer{errs: tt.errs}
			err := NewWarmupService(cache, time.Second, zerolog.Nop()).Serve(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWarmupServiceRetriedBySupervisor(t *testing.T) {
	cache := &fakeInitializer{errs: []error{errors.New("db locked"), errors.New("db locked")}}

	sup := suture.New("test", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(NewWarmupService(cache, time.Second, zerolog.Nop()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sup.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for cache.callCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("Initialize called %d times, want 3", cache.callCount())
		}
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(50 * time.Millisecond)
	if got := cache.callCount(); got != 3 {
		t.Errorf("Initialize called %d times after success, want 3", got)
	}
}
