// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stanza/internal/models"
)

// scriptedCounter returns counts in order, repeating the last one. A nil
// entry in errs at position i means poll i succeeds.
type scriptedCounter struct {
	mu     sync.Mutex
	counts []int64
	errs   []error
	calls  int
	latest int64
}

func (c *scriptedCounter) CountItems(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return 0, c.errs[i]
	}
	if i >= len(c.counts) {
		i = len(c.counts) - 1
	}
	return c.counts[i], nil
}

func (c *scriptedCounter) LatestItemID(context.Context) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.latest > 0, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	reasons []models.ChangeReason
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, r models.ChangeReason) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.reasons = append(n.reasons, r)
	return nil
}

func (n *recordingNotifier) got() []models.ChangeReason {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.ChangeReason(nil), n.reasons...)
}

func TestPollSequence(t *testing.T) {
	boom := errors.New("database locked")
	tests := []struct {
		name   string
		counts []int64
		errs   []error
		want   []int64 // deltas
	}{
		{"no growth", []int64{5, 5, 5}, nil, nil},
		{"growth", []int64{5, 5, 8}, nil, []int64{3}},
		{"two growths", []int64{5, 6, 9}, nil, []int64{1, 3}},
		{"shrink moves baseline", []int64{5, 3, 4}, nil, []int64{1}},
		{"error before baseline", []int64{0, 5, 7}, []error{boom}, []int64{2}},
		{"error between polls", []int64{5, 0, 7}, []error{nil, boom}, []int64{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := &scriptedCounter{counts: tt.counts, errs: tt.errs, latest: 99}
			n := &recordingNotifier{}
			w := New(counter, n, time.Hour, zerolog.Nop())

			for range tt.counts {
				w.poll(context.Background())
			}

			got := n.got()
			if len(got) != len(tt.want) {
				t.Fatalf("notifications = %+v, want deltas %v", got, tt.want)
			}
			for i, r := range got {
				if r.Kind != models.ReasonNewItems || r.Delta != tt.want[i] || r.LatestID != 99 {
					t.Errorf("notification %d = %+v, want delta %d", i, r, tt.want[i])
				}
			}
		})
	}
}

func TestFailedNotificationIsRetried(t *testing.T) {
	counter := &scriptedCounter{counts: []int64{5, 7, 7}, latest: 7}
	n := &recordingNotifier{err: errors.New("queue closed")}
	w := New(counter, n, time.Hour, zerolog.Nop())

	w.poll(context.Background())
	w.poll(context.Background())

	n.mu.Lock()
	n.err = nil
	n.mu.Unlock()
	w.poll(context.Background())

	got := n.got()
	if len(got) != 1 || got[0].Delta != 2 {
		t.Errorf("notifications = %+v, want one delta of 2", got)
	}
}

func TestServePollsUntilCanceled(t *testing.T) {
	counter := &scriptedCounter{counts: []int64{1, 1, 2}, latest: 2}
	n := &recordingNotifier{}
	w := New(counter, n, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(n.got()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no notification received")
		}
		time.Sleep(2 * time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if got := n.got(); got[0].Delta != 1 || got[0].LatestID != 2 {
		t.Errorf("notification = %+v", got[0])
	}
}
