// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package resourceguard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// scriptedSampler returns the configured values in order and then repeats the
// last one.
type scriptedSampler struct {
	mu    sync.Mutex
	cpu   []float64
	mem   []float64
	calls int
	err   error
}

func (s *scriptedSampler) Sample(context.Context) (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return 0, 0, s.err
	}
	i := min(s.calls-1, len(s.cpu)-1)
	return s.cpu[i], s.mem[i], nil
}

func (s *scriptedSampler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func waitForSamples(t *testing.T, s *scriptedSampler, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.count() < n {
		if time.Now().After(deadline) {
			t.Fatalf("only %d samples taken, want %d", s.count(), n)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSessionReport(t *testing.T) {
	sampler := &scriptedSampler{cpu: []float64{90, 70}, mem: []float64{10, 30}}
	g := New(Config{Interval: 5 * time.Millisecond}, sampler, zerolog.Nop())

	sess := g.Start(context.Background())
	waitForSamples(t, sampler, 2)
	r := sess.Stop()

	if r.Samples < 2 {
		t.Fatalf("Samples = %d, want >= 2", r.Samples)
	}
	if r.PeakCPUPercent != 90 {
		t.Errorf("PeakCPUPercent = %v, want 90", r.PeakCPUPercent)
	}
	if r.PeakMemPercent != 30 {
		t.Errorf("PeakMemPercent = %v, want 30", r.PeakMemPercent)
	}
	if r.AvgCPUPercent <= 70 || r.AvgCPUPercent > 80 {
		t.Errorf("AvgCPUPercent = %v, want in (70, 80]", r.AvgCPUPercent)
	}
	if r.CPUExceeded || r.MemoryExceeded || r.OverBudget {
		t.Errorf("unexpected breach: %+v", r)
	}
}

func TestSessionThresholds(t *testing.T) {
	tests := []struct {
		name    string
		cpu     float64
		mem     float64
		wantCPU bool
		wantMem bool
	}{
		{"within", 50, 50, false, false},
		{"at threshold", 80, 80, false, false},
		{"cpu over", 95, 10, true, false},
		{"memory over", 10, 85, false, true},
		{"both over", 99, 99, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler := &scriptedSampler{cpu: []float64{tt.cpu}, mem: []float64{tt.mem}}
			g := New(Config{Interval: 2 * time.Millisecond}, sampler, zerolog.Nop())

			sess := g.Start(context.Background())
			waitForSamples(t, sampler, 1)
			r := sess.Stop()

			if r.CPUExceeded != tt.wantCPU || r.MemoryExceeded != tt.wantMem {
				t.Errorf("report = %+v", r)
			}
		})
	}
}

func TestSessionOverBudget(t *testing.T) {
	sampler := &scriptedSampler{cpu: []float64{1}, mem: []float64{1}}
	g := New(Config{Interval: time.Hour, Budget: 5 * time.Millisecond}, sampler, zerolog.Nop())

	sess := g.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	r := sess.Stop()

	if !r.OverBudget {
		t.Errorf("OverBudget = false after %v", r.Duration)
	}
	if r.Samples != 0 {
		t.Errorf("Samples = %d, want 0", r.Samples)
	}
}

func TestSessionSamplerErrors(t *testing.T) {
	sampler := &scriptedSampler{err: errors.New("no procfs")}
	g := New(Config{Interval: 2 * time.Millisecond}, sampler, zerolog.Nop())

	sess := g.Start(context.Background())
	waitForSamples(t, sampler, 3)
	r := sess.Stop()

	if r.Samples != 0 || r.AvgCPUPercent != 0 {
		t.Errorf("report = %+v, want no samples", r)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	sampler := &scriptedSampler{cpu: []float64{10}, mem: []float64{10}}
	g := New(Config{Interval: 2 * time.Millisecond}, sampler, zerolog.Nop())

	sess := g.Start(context.Background())
	waitForSamples(t, sampler, 1)
	first := sess.Stop()
	second := sess.Stop()
	if first != second {
		t.Errorf("second Stop() = %+v, want %+v", second, first)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	cfg := New(Config{}, &scriptedSampler{}, zerolog.Nop()).Config()
	if cfg.Interval != time.Second || cfg.CPUThreshold != 80 || cfg.MemoryThreshold != 80 {
		t.Errorf("Config() = %+v", cfg)
	}
}
