// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package cdn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const pendingKeyPrefix = "cdn_pending:"

// pendingRetention bounds how long a failing invalidation is retried.
// After that the cached copy has expired on its own.
const pendingRetention = 7 * 24 * time.Hour

// Pending is an invalidation waiting for retry.
type Pending struct {
	ID        string    `json:"id"`
	Paths     []string  `json:"paths"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PendingStore persists deferred invalidations in BadgerDB.
type PendingStore struct {
	db *badger.DB
}

func NewPendingStore(db *badger.DB) *PendingStore {
	return &PendingStore{db: db}
}

// Save inserts or replaces p.
func (s *PendingStore) Save(ctx context.Context, p Pending) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pending invalidation: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(pendingKeyPrefix+p.ID), data).WithTTL(pendingRetention)
		return txn.SetEntry(e)
	})
}

// Remove deletes the record for id. Missing records are ignored.
func (s *PendingStore) Remove(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(pendingKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// List returns up to limit records. A limit of zero returns all.
func (s *PendingStore) List(ctx context.Context, limit int) ([]Pending, error) {
	var out []Pending
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(pendingKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var p Pending
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list pending invalidations: %w", err)
	}
	return out, nil
}

// Count returns the number of pending records.
func (s *PendingStore) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(pendingKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
