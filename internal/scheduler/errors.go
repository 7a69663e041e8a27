// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package scheduler

import "errors"

// ErrBudgetExceeded is recorded when a run outlives its wall-clock budget.
var ErrBudgetExceeded = errors.New("recomputation exceeded its time budget")
