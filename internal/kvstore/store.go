// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

// Package kvstore persists preference summaries and the recomputation run log
// in BadgerDB. Values are JSON encoded.
package kvstore

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/stanza/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	preferenceKeyPrefix = "pref:"
	runKeyPrefix        = "run:"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("not found")

// Options configures Open.
type Options struct {
	Path         string
	InMemory     bool
	RunRetention time.Duration // 0 keeps run records forever
}

// Store is a BadgerDB-backed key-value store.
type Store struct {
	db           *badger.DB
	runRetention time.Duration
}

// Open opens (or creates) the store.
func Open(o Options) (*Store, error) {
	opts := badger.DefaultOptions(o.Path)
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB internal logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db, runRetention: o.RunRetention}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func preferenceKey(userID int64) []byte {
	return []byte(preferenceKeyPrefix + strconv.FormatInt(userID, 10))
}

// runKey sorts chronologically: a zero-padded start time then the run id.
func runKey(r *models.RunRecord) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", runKeyPrefix, r.StartedAt.UnixNano(), r.ID))
}

// PutPreferences replaces the stored summaries of the given users in one
// transaction batch.
func (s *Store) PutPreferences(summaries []models.PreferenceSummary) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range summaries {
		data, err := json.Marshal(&summaries[i])
		if err != nil {
			return fmt.Errorf("marshal preference summary: %w", err)
		}
		if err := wb.Set(preferenceKey(summaries[i].UserID), data); err != nil {
			return fmt.Errorf("set preference summary: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush preference summaries: %w", err)
	}
	return nil
}

// GetPreference returns the stored summary for userID.
func (s *Store) GetPreference(userID int64) (*models.PreferenceSummary, error) {
	var summary models.PreferenceSummary

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(preferenceKey(userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get preference summary: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &summary)
		})
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// PutRun appends a run record to the persisted run log. Records expire after
// the configured retention.
func (s *Store) PutRun(r *models.RunRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(runKey(r), data)
		if s.runRetention > 0 {
			e = e.WithTTL(s.runRetention)
		}
		return txn.SetEntry(e)
	})
}

// RecentRuns returns up to limit run records started at or after since,
// newest first.
func (s *Store) RecentRuns(since time.Time, limit int) ([]models.RunRecord, error) {
	runs := make([]models.RunRecord, 0)
	floor := []byte(runKeyPrefix)
	if !since.IsZero() {
		floor = []byte(fmt.Sprintf("%s%020d", runKeyPrefix, since.UnixNano()))
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(runKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts from the largest key <= seek.
		for it.Seek([]byte(runKeyPrefix + "\xff")); it.Valid(); it.Next() {
			item := it.Item()
			if string(item.Key()) < string(floor) {
				break
			}
			var r models.RunRecord
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("decode run record: %w", err)
			}
			runs = append(runs, r)
			if limit > 0 && len(runs) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}
