// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

// Package scheduler turns change notifications into debounced, budgeted and
// retried recomputations.
//
// A single goroutine, the suture service's Serve, owns the state machine:
//
//	idle ──notify──▶ pending ──debounce──▶ running ──success──▶ idle
//	                                          │
//	                                       failure
//	                                          ▼
//	                 retry_wait ──delay──▶ running (same recomputation)
//
// Notify, TriggerManual and Status talk to it through channels and a
// mutex-guarded status copy. Notifications arriving while a run is in
// progress or waiting for a retry open the next batch once the scheduler is
// idle again.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stanza/internal/logging"
	"github.com/tomtom215/stanza/internal/metrics"
	"github.com/tomtom215/stanza/internal/models"
	"github.com/tomtom215/stanza/internal/resourceguard"
)

const notifyBuffer = 64

type manualRequest struct {
	itemID int64
	reply  chan ManualResult
}

type runResult struct {
	id  string
	err error
}

// activeRun is the run in flight.
type activeRun struct {
	record  models.RunRecord
	cancel  context.CancelFunc
	session *resourceguard.Session
	budget  *time.Timer
	manual  chan ManualResult
}

// Scheduler is the update scheduler. Create it with New and run it under a
// supervisor.
type Scheduler struct {
	cfg    Config
	target Recomputer
	guard  *resourceguard.Guard
	runs   RunSink
	logger zerolog.Logger

	notifyCh chan models.ChangeReason
	manualCh chan manualRequest
	results  chan runResult

	mu      sync.RWMutex
	status  Status
	history []models.RunRecord // ring, oldest first

	// Loop-owned state; touched only by Serve.
	state      State
	batch      []models.ChangeReason
	next       []models.ChangeReason
	retryCount int
	timer      *time.Timer
	timerC     <-chan time.Time
	current    *activeRun
	retryPlan  plan

	// Runs that outlived their budget, still working; cancelled at shutdown.
	abandoned map[string]context.CancelFunc
}

// New creates a Scheduler. guard and runs may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(cfg Config, target Recomputer, guard *resourceguard.Guard, runs RunSink, logger zerolog.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.Budget <= 0 {
		cfg.Budget = def.Budget
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	s := &Scheduler{
		cfg:      cfg,
		target:   target,
		guard:    guard,
		runs:     runs,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		notifyCh: make(chan models.ChangeReason, notifyBuffer),
		manualCh: make(chan manualRequest),
		results:  make(chan runResult, 4),
		state:    StateIdle,

		abandoned: make(map[string]context.CancelFunc),
	}

	ec := EffectiveConfig{
		DebounceDelay:  cfg.DebounceDelay,
		Budget:         cfg.Budget,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
	}
	if guard != nil {
		gc := guard.Config()
		ec.SampleInterval = gc.Interval
		ec.CPUThreshold = gc.CPUThreshold
		ec.MemoryThreshold = gc.MemoryThreshold
	}
	s.status = Status{State: StateIdle, PendingItemIDs: []int64{}, Config: ec}
	metrics.SetSchedulerState(string(StateIdle))
	return s
}

// Notify reports a change. It blocks only while the notification queue is
// full.
func (s *Scheduler) Notify(ctx context.Context, reason models.ChangeReason) error {
	select {
	case s.notifyCh <- reason:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TriggerManual runs a recomputation now if the scheduler is idle. itemID > 0
// applies that single item; otherwise the whole cache is rebuilt. The call
// blocks until the run finishes.
func (s *Scheduler) TriggerManual(ctx context.Context, itemID int64) ManualResult {
	req := manualRequest{itemID: itemID, reply: make(chan ManualResult, 1)}
	select {
	case s.manualCh <- req:
	case <-ctx.Done():
		return ManualResult{Detail: fmt.Sprintf("not accepted: %v", ctx.Err())}
	}
	select {
	case res := <-req.reply:
		return res
	case <-ctx.Done():
		return ManualResult{Detail: fmt.Sprintf("accepted, result not awaited: %v", ctx.Err())}
	}
}

// Status returns a copy of the current status.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.PendingItemIDs = append([]int64(nil), s.status.PendingItemIDs...)
	if s.status.LastRun != nil {
		last := *s.status.LastRun
		st.LastRun = &last
	}
	if s.status.LastSuccessTime != nil {
		t := *s.status.LastSuccessTime
		st.LastSuccessTime = &t
	}
	return st
}

// History returns the retained run records, newest first.
func (s *Scheduler) History() []models.RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RunRecord, len(s.history))
	for i, r := range s.history {
		out[len(s.history)-1-i] = r
	}
	return out
}

// Serve implements suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("debounce", s.cfg.DebounceDelay).
		Dur("budget", s.cfg.Budget).
		Int("max_retries", s.cfg.MaxRetries).
		Msg("Update scheduler started")

	defer s.shutdown()

	if s.state == StatePending {
		// Restarted with a carried-over batch.
		s.startTimer(s.cfg.DebounceDelay)
	}

	for {
		var budgetC <-chan time.Time
		if s.current != nil {
			budgetC = s.current.budget.C
		}

		select {
		case <-ctx.Done():
			s.logger.Info().Str("state", string(s.state)).Msg("Update scheduler stopping")
			return ctx.Err()

		case reason := <-s.notifyCh:
			s.onNotify(reason)

		case <-s.timerC:
			s.timerC = nil
			s.onTimer(ctx)

		case req := <-s.manualCh:
			s.onManual(ctx, req)

		case res := <-s.results:
			if s.current == nil || res.id != s.current.record.ID {
				if cancel, ok := s.abandoned[res.id]; ok {
					cancel()
					delete(s.abandoned, res.id)
				}
				s.logger.Info().Str("run_id", res.id).AnErr("late_error", res.err).
					Msg("Abandoned run finished, result discarded")
				continue
			}
			s.finish(res.err)

		case <-budgetC:
			s.logger.Warn().
				Str("run_id", s.current.record.ID).
				Dur("budget", s.cfg.Budget).
				Msg("Run exceeded its budget, no longer waiting for it")
			s.abandoned[s.current.record.ID] = s.current.cancel
			s.finish(ErrBudgetExceeded)
		}
	}
}

// String implements fmt.Stringer for suture.
func (s *Scheduler) String() string { return "update-scheduler" }

func (s *Scheduler) shutdown() {
	s.stopTimer()
	if s.current != nil {
		s.current.cancel()
		s.current.budget.Stop()
		if s.current.session != nil {
			s.current.session.Stop()
		}
		if s.current.manual != nil {
			s.current.manual <- ManualResult{Detail: "scheduler stopped", RunID: s.current.record.ID}
		}
		s.current = nil
	}
	for id, cancel := range s.abandoned {
		cancel()
		delete(s.abandoned, id)
	}
	// Pending changes survive a supervisor restart.
	s.batch = append(s.batch, s.next...)
	s.next = nil
	s.retryCount = 0
	if len(s.batch) > 0 {
		s.setState(StatePending)
	} else {
		s.setState(StateIdle)
	}
	s.publish()
}

func (s *Scheduler) onNotify(reason models.ChangeReason) {
	logger := s.logger.With().
		Str("kind", reason.Kind).
		Int64("delta", reason.Delta).
		Int64("latest_id", reason.LatestID).
		Logger()

	switch s.state {
	case StateIdle:
		s.batch = append(s.batch[:0], reason)
		s.setState(StatePending)
		s.startTimer(s.cfg.DebounceDelay)
		logger.Info().Dur("debounce", s.cfg.DebounceDelay).Msg("Change received, recomputation scheduled")
	case StatePending:
		s.batch = append(s.batch, reason)
		logger.Debug().Int("batch", len(s.batch)).Msg("Change joined pending batch")
	case StateRunning, StateRetryWait:
		s.next = append(s.next, reason)
		logger.Debug().Str("state", string(s.state)).Int("next_batch", len(s.next)).Msg("Change queued for next cycle")
	}
	s.publish()
}

func (s *Scheduler) onTimer(ctx context.Context) {
	switch s.state {
	case StatePending:
		s.retryPlan = planFor(s.batch)
		s.start(ctx, models.TriggerScheduled, s.retryPlan, nil)
	case StateRetryWait:
		s.start(ctx, models.TriggerRetry, s.retryPlan, nil)
	}
}

func (s *Scheduler) onManual(ctx context.Context, req manualRequest) {
	if s.state != StateIdle {
		req.reply <- ManualResult{Detail: "busy: " + string(s.state)}
		return
	}
	p := plan{op: models.OperationRebuildAll}
	if req.itemID > 0 {
		p = plan{op: models.OperationApplyNewItem, itemID: req.itemID}
	}
	s.start(ctx, models.TriggerManual, p, req.reply)
}

// start launches a run in its own goroutine and arms the budget timer.
func (s *Scheduler) start(ctx context.Context, trigger string, p plan, manual chan ManualResult) {
	id := logging.GenerateRunID()
	// The run is never interrupted by the budget; only shutdown cancels it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(logging.ContextWithRunID(ctx, id)))

	run := &activeRun{
		record: models.RunRecord{
			ID:        id,
			Trigger:   trigger,
			Operation: p.op,
			ItemID:    p.itemID,
			BatchSize: len(s.batch),
			Attempt:   s.retryCount + 1,
			StartedAt: time.Now().UTC(),
		},
		cancel: cancel,
		budget: time.NewTimer(s.cfg.Budget),
		manual: manual,
	}
	if trigger == models.TriggerManual {
		run.record.BatchSize = 0
		run.record.Attempt = 1
	}
	if s.guard != nil {
		run.session = s.guard.Start(runCtx)
	}
	s.current = run
	s.setState(StateRunning)
	s.publish()

	s.logger.Info().
		Str("run_id", id).
		Str("trigger", trigger).
		Str("operation", p.op).
		Int64("item_id", p.itemID).
		Int("attempt", run.record.Attempt).
		Msg("Recomputation started")

	go func() {
		err := s.execute(runCtx, p)
		select {
		case s.results <- runResult{id: id, err: err}:
		case <-ctx.Done():
		}
	}()
}

func (s *Scheduler) execute(ctx context.Context, p plan) error {
	if p.op == models.OperationApplyNewItem {
		return s.target.ApplyNewItem(ctx, p.itemID)
	}
	return s.target.RebuildAll(ctx)
}

// finish records the current run and moves the state machine on.
func (s *Scheduler) finish(runErr error) {
	run := s.current
	s.current = nil
	run.budget.Stop()
	if _, ok := s.abandoned[run.record.ID]; !ok {
		run.cancel()
	}

	rec := run.record
	rec.FinishedAt = time.Now().UTC()
	rec.Duration = rec.FinishedAt.Sub(rec.StartedAt)
	if run.session != nil {
		report := run.session.Stop()
		rec.Resources = &report
	}
	switch {
	case runErr == nil:
		rec.Outcome = models.OutcomeSuccess
	case errors.Is(runErr, ErrBudgetExceeded):
		rec.Outcome = models.OutcomeAborted
		rec.Error = runErr.Error()
	default:
		rec.Outcome = models.OutcomeFailure
		rec.Error = runErr.Error()
	}
	s.record(&rec)

	logger := s.logger.With().
		Str("run_id", rec.ID).
		Str("trigger", rec.Trigger).
		Str("operation", rec.Operation).
		Str("outcome", rec.Outcome).
		Dur("duration", rec.Duration).
		Logger()

	if run.manual != nil {
		res := ManualResult{Success: runErr == nil, Detail: "completed", RunID: rec.ID}
		if runErr != nil {
			res.Detail = runErr.Error()
			logger.Warn().Err(runErr).Msg("Manual recomputation failed")
		} else {
			logger.Info().Msg("Manual recomputation complete")
		}
		run.manual <- res
		s.toIdle()
		return
	}

	if runErr == nil {
		logger.Info().Int("batch", len(s.batch)).Msg("Recomputation complete")
		s.retryCount = 0
		s.batch = nil
		s.toIdle()
		return
	}

	if s.retryCount < s.cfg.MaxRetries {
		s.retryCount++
		delay := s.cfg.RetryBaseDelay * time.Duration(s.retryCount)
		logger.Warn().Err(runErr).
			Int("retry", s.retryCount).
			Int("max_retries", s.cfg.MaxRetries).
			Dur("delay", delay).
			Msg("Recomputation failed, retry scheduled")
		s.setState(StateRetryWait)
		s.startTimer(delay)
		s.publish()
		return
	}

	logger.Error().Err(runErr).
		Int("retries", s.retryCount).
		Int("batch", len(s.batch)).
		Msg("Recomputation failed permanently, dropping batch")
	s.retryCount = 0
	s.batch = nil
	s.toIdle()
}

// toIdle enters idle, or opens the next batch if changes arrived meanwhile.
func (s *Scheduler) toIdle() {
	s.stopTimer()
	if len(s.next) > 0 {
		s.batch = s.next
		s.next = nil
		s.setState(StatePending)
		s.startTimer(s.cfg.DebounceDelay)
	} else {
		s.setState(StateIdle)
	}
	s.publish()
}

func (s *Scheduler) record(rec *models.RunRecord) {
	metrics.RecordRun(rec.Trigger, rec.Outcome)

	s.mu.Lock()
	s.history = append(s.history, *rec)
	if over := len(s.history) - s.cfg.HistorySize; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
	last := *rec
	s.status.LastRun = &last
	if rec.Outcome == models.OutcomeSuccess {
		t := rec.FinishedAt
		s.status.LastSuccessTime = &t
	}
	s.mu.Unlock()

	if s.runs != nil {
		if err := s.runs.PutRun(rec); err != nil {
			s.logger.Warn().Err(err).Str("run_id", rec.ID).Msg("Failed to persist run record")
		}
	}
}

func (s *Scheduler) setState(st State) {
	s.state = st
	metrics.SetSchedulerState(string(st))
}

// publish copies loop state into the status snapshot.
func (s *Scheduler) publish() {
	metrics.SchedulerRetryCount.Set(float64(s.retryCount))
	metrics.SchedulerPendingBatch.Set(float64(len(s.batch)))

	s.mu.Lock()
	s.status.State = s.state
	s.status.PendingBatchSize = len(s.batch)
	s.status.PendingItemIDs = pendingItemIDs(s.batch)
	s.status.RetryCount = s.retryCount
	s.mu.Unlock()
}

func (s *Scheduler) startTimer(d time.Duration) {
	s.stopTimer()
	s.timer = time.NewTimer(d)
	s.timerC = s.timer.C
}

func (s *Scheduler) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerC = nil
}
