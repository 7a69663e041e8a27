// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

// Package resourceguard samples process CPU and memory usage while a
// recomputation runs and reports whether it stayed within its thresholds.
//
// The guard is advisory. It never cancels the run it observes; the report is
// logged, exported as metrics and attached to the run record.
package resourceguard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stanza/internal/config"
	"github.com/tomtom215/stanza/internal/metrics"
	"github.com/tomtom215/stanza/internal/models"
)

// Config holds sampling settings.
type Config struct {
	// Interval between samples. Default: 1s
	Interval time.Duration

	// CPUThreshold and MemoryThreshold are percentages the run averages are
	// compared against. Default: 80
	CPUThreshold    float64
	MemoryThreshold float64

	// Budget is the wall-clock allowance of a run. Zero disables the check.
	Budget time.Duration
}

// ConfigFrom maps the application configuration sections.
func ConfigFrom(r config.ResourcesConfig, budget time.Duration) Config {
	return Config{
		Interval:        r.SampleInterval,
		CPUThreshold:    r.CPUThreshold,
		MemoryThreshold: r.MemoryThreshold,
		Budget:          budget,
	}
}

// Guard starts sampling sessions.
type Guard struct {
	cfg     Config
	sampler Sampler
	logger  zerolog.Logger
}

// New creates a Guard.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg Config, sampler Sampler, logger zerolog.Logger) *Guard {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.CPUThreshold <= 0 {
		cfg.CPUThreshold = 80
	}
	if cfg.MemoryThreshold <= 0 {
		cfg.MemoryThreshold = 80
	}
	return &Guard{
		cfg:     cfg,
		sampler: sampler,
		logger:  logger.With().Str("component", "resourceguard").Logger(),
	}
}

// Config returns the effective configuration.
func (g *Guard) Config() Config { return g.cfg }

// Session samples until Stop is called or the context passed to Start ends.
type Session struct {
	guard   *Guard
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}

	mu      sync.Mutex
	cpu     []float64
	mem     []float64
	stopped bool
	report  models.ResourceReport
}

// Start begins a sampling session.
func (g *Guard) Start(ctx context.Context) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		guard:   g,
		started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.loop(ctx)
	return s
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.guard.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample(ctx)
		}
	}
}

func (s *Session) sample(ctx context.Context) {
	cpu, mem, err := s.guard.sampler.Sample(ctx)
	if err != nil {
		s.guard.logger.Debug().Err(err).Msg("Resource sample failed")
		return
	}
	s.mu.Lock()
	s.cpu = append(s.cpu, cpu)
	s.mem = append(s.mem, mem)
	s.mu.Unlock()
}

// Stop ends sampling and returns the report. Calling Stop again returns the
// same report.
func (s *Session) Stop() models.ResourceReport {
	s.cancel()
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return s.report
	}
	s.stopped = true

	cfg := s.guard.cfg
	r := models.ResourceReport{
		Samples:  len(s.cpu),
		Duration: time.Since(s.started),
	}
	r.AvgCPUPercent, r.PeakCPUPercent = avgPeak(s.cpu)
	r.AvgMemoryPercent, r.PeakMemPercent = avgPeak(s.mem)
	r.CPUExceeded = r.AvgCPUPercent > cfg.CPUThreshold
	r.MemoryExceeded = r.AvgMemoryPercent > cfg.MemoryThreshold
	r.OverBudget = cfg.Budget > 0 && r.Duration > cfg.Budget
	s.report = r

	metrics.RecordResourceReport(r.AvgCPUPercent, r.AvgMemoryPercent, r.CPUExceeded, r.MemoryExceeded, r.OverBudget)

	event := s.guard.logger.Debug()
	if r.CPUExceeded || r.MemoryExceeded || r.OverBudget {
		event = s.guard.logger.Warn()
	}
	event.
		Float64("avg_cpu_percent", r.AvgCPUPercent).
		Float64("avg_memory_percent", r.AvgMemoryPercent).
		Float64("peak_cpu_percent", r.PeakCPUPercent).
		Int("samples", r.Samples).
		Dur("duration", r.Duration).
		Bool("cpu_exceeded", r.CPUExceeded).
		Bool("memory_exceeded", r.MemoryExceeded).
		Bool("over_budget", r.OverBudget).
		Msg("Resource usage")

	return r
}

func avgPeak(samples []float64) (avg, peak float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
		peak = max(peak, v)
	}
	return sum / float64(len(samples)), peak
}
