// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package upload

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/stox-gateway/internal/events"
)

const orphanKeyPrefix = "upload_orphan:"

// Ledger durably records objects left behind by failed compensations.
// Records have no TTL; the Sweeper removes them once the object is gone.
type Ledger struct {
	db *badger.DB
}

// NewLedger returns a Ledger backed by db.
func NewLedger(db *badger.DB) *Ledger {
	return &Ledger{db: db}
}

// RecordOrphan stores o under its transaction ID, replacing an earlier
// record for the same transaction.
func (l *Ledger) RecordOrphan(ctx context.Context, o events.OrphanedObject) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal orphan record: %w", err)
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(orphanKeyPrefix+o.TransactionID), data)
	})
}

// Orphans returns every unresolved record in transaction ID order.
func (l *Ledger) Orphans(ctx context.Context) ([]events.OrphanedObject, error) {
	var out []events.OrphanedObject
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(orphanKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var o events.OrphanedObject
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &o)
			}); err != nil {
				return err
			}
			out = append(out, o)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}
	return out, nil
}

// ResolveOrphan removes the record once the object has been cleaned up.
func (l *Ledger) ResolveOrphan(ctx context.Context, transactionID string) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(orphanKeyPrefix + transactionID))
	})
}
