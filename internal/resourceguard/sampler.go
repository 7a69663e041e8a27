// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package resourceguard

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/process"
)

// Sampler reads the current CPU and memory usage in percent.
type Sampler interface {
	Sample(ctx context.Context) (cpu, memory float64, err error)
}

// ProcessSampler samples this process through gopsutil. CPU percent is
// measured since the previous call, so the first sample of a fresh sampler
// covers the time since process start.
type ProcessSampler struct {
	proc *process.Process
}

// NewProcessSampler returns a sampler for the running process.
func NewProcessSampler(ctx context.Context) (*ProcessSampler, error) {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid())) //nolint:gosec // pid fits in int32
	if err != nil {
		return nil, fmt.Errorf("open process: %w", err)
	}
	return &ProcessSampler{proc: p}, nil
}

// Sample implements Sampler.
func (s *ProcessSampler) Sample(ctx context.Context) (float64, float64, error) {
	cpu, err := s.proc.PercentWithContext(ctx, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("cpu percent: %w", err)
	}
	mem, err := s.proc.MemoryPercentWithContext(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("memory percent: %w", err)
	}
	return cpu, float64(mem), nil
}
