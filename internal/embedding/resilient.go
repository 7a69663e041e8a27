// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/stanza/internal/metrics"
)

// ResilienceSettings tunes ResilientProvider. Zero values disable the
// corresponding control, except BreakerFailures which defaults to 5.
type ResilienceSettings struct {
	Timeout         time.Duration
	RateLimit       float64 // requests per second
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// ResilientProvider wraps a Provider with a circuit breaker, a token-bucket
// rate limiter and a per-call timeout. While the circuit is open calls fail
// immediately with gobreaker.ErrOpenState.
type ResilientProvider struct {
	next    Provider
	cb      *gobreaker.CircuitBreaker[[][]float32]
	limiter *rate.Limiter
	timeout time.Duration
	name    string
	logger  zerolog.Logger
}

// NewResilientProvider wraps next.
func NewResilientProvider(next Provider, s ResilienceSettings, logger zerolog.Logger) *ResilientProvider {
	name := "embedding-" + next.Name()
	logger = logger.With().Str("component", "embedding").Str("provider", next.Name()).Logger()

	failures := s.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	openTimeout := s.BreakerTimeout
	if openTimeout <= 0 {
		openTimeout = time.Minute
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[][]float32](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,

		// Rebuilds issue few, large requests, so trip on a run of consecutive
		// failures rather than on a ratio.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= failures
			if trip {
				logger.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logger.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	var limiter *rate.Limiter
	if s.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.RateLimit), 1)
	}

	return &ResilientProvider{
		next:    next,
		cb:      cb,
		limiter: limiter,
		timeout: s.Timeout,
		name:    name,
		logger:  logger,
	}
}

// Name implements Provider.
func (r *ResilientProvider) Name() string { return r.next.Name() }

// State returns the breaker state as "closed", "half-open" or "open".
func (r *ResilientProvider) State() string { return stateToString(r.cb.State()) }

// Embed implements Provider.
func (r *ResilientProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding rate limit: %w", err)
		}
	}

	start := time.Now()
	vecs, err := r.cb.Execute(func() ([][]float32, error) {
		callCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		return r.next.Embed(callCtx, texts)
	})
	metrics.RecordEmbedding(r.next.Name(), time.Since(start), err)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(r.name, "rejected").Inc()
			r.logger.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(r.name, "failure").Inc()
			counts := r.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(r.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(r.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(r.name).Set(0)
	return vecs, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
