// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package coordinator

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned when another recomputation holds the lock.
	ErrAlreadyRunning = errors.New("recomputation already running")

	// ErrRecomputeFailed matches every *RecomputeError.
	ErrRecomputeFailed = errors.New("recomputation failed")
)

// RecomputeError wraps a collaborator failure during a recomputation.
type RecomputeError struct {
	Op  string
	Err error
}

func (e *RecomputeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RecomputeError) Unwrap() error { return e.Err }

// Is reports ErrRecomputeFailed as a match.
func (e *RecomputeError) Is(target error) bool {
	return target == ErrRecomputeFailed
}

func recomputeErr(op, step string, err error) error {
	return &RecomputeError{Op: op, Err: fmt.Errorf("%s: %w", step, err)}
}
