// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package idempotency stores upload idempotency records in BadgerDB.
//
// A record is claimed (in progress) before any side effect runs and is
// either completed with the response to replay or released on failure.
// Completed records expire after the retention window; in-progress records
// expire sooner so a crashed instance cannot hold a key forever.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/stox-gateway/internal/metrics"
)

const recordKeyPrefix = "idempotency:"

var (
	ErrInProgress          = errors.New("request with this idempotency key is in progress")
	ErrFingerprintMismatch = errors.New("idempotency key reused with a different request")
	ErrNotClaimed          = errors.New("idempotency key is not claimed")
)

type State string

const (
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// Decision is the outcome of Begin.
type Decision int

const (
	// Acquired means the caller owns the key and must Complete or Release it.
	Acquired Decision = iota
	// Replay means a completed result exists for the same request.
	Replay
	// InProgress means another execution holds the key.
	InProgress
	// Mismatch means the key was used for a different request.
	Mismatch
)

func (d Decision) String() string {
	switch d {
	case Acquired:
		return "acquired"
	case Replay:
		return "replay"
	case InProgress:
		return "in_progress"
	case Mismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// Record is the persisted state of one idempotency key.
type Record struct {
	Key         string          `json:"key"`
	Scope       string          `json:"scope"`
	Fingerprint string          `json:"fingerprint"`
	State       State           `json:"state"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Store is the BadgerDB-backed record store.
type Store struct {
	db            *badger.DB
	retention     time.Duration
	inProgressTTL time.Duration
	now           func() time.Time
}

// NewStore creates a store. retention applies to completed records and
// inProgressTTL to claimed ones.
func NewStore(db *badger.DB, retention, inProgressTTL time.Duration) *Store {
	return &Store{
		db:            db,
		retention:     retention,
		inProgressTTL: inProgressTTL,
		now:           time.Now,
	}
}

// Begin claims key within scope for fingerprint, or reports why it cannot.
// On Replay the completed record is returned.
func (s *Store) Begin(ctx context.Context, scope, key, fingerprint string) (Decision, *Record, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	var (
		decision Decision
		existing *Record
	)
	err := s.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, scope, key)
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if rec != nil {
			existing = rec
			switch {
			case rec.Fingerprint != fingerprint:
				decision = Mismatch
			case rec.State == StateCompleted:
				decision = Replay
			default:
				decision = InProgress
			}
			return nil
		}

		now := s.now().UTC()
		decision = Acquired
		return s.put(txn, &Record{
			Key:         key,
			Scope:       scope,
			Fingerprint: fingerprint,
			State:       StateInProgress,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, s.inProgressTTL)
	})
	if errors.Is(err, badger.ErrConflict) {
		// Another instance claimed the key between our read and commit.
		decision, err = InProgress, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("begin idempotent request: %w", err)
	}

	metrics.IdempotencyDecisions.WithLabelValues(decision.String()).Inc()
	if decision == Replay {
		return decision, existing, nil
	}
	return decision, nil, nil
}

// Complete stores result for replay and starts the retention window.
func (s *Store) Complete(ctx context.Context, scope, key, fingerprint string, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal idempotent result: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, scope, key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotClaimed
		}
		if err != nil {
			return err
		}
		if rec.Fingerprint != fingerprint {
			return ErrFingerprintMismatch
		}
		rec.State = StateCompleted
		rec.Result = data
		rec.UpdatedAt = s.now().UTC()
		return s.put(txn, rec, s.retention)
	})
}

// Release drops an in-progress claim so the client may retry with the
// same key. Completed records are left alone.
func (s *Store) Release(ctx context.Context, scope, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, scope, key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if rec.State == StateCompleted {
			return nil
		}
		return txn.Delete(recordKey(scope, key))
	})
}

// Forget drops the record for key whatever its state. It is used when the
// upload a completed record points at has been deleted, so the key must
// not replay it any more.
func (s *Store) Forget(ctx context.Context, scope, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(recordKey(scope, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// Get returns the record for key, or nil when none exists.
func (s *Store) Get(ctx context.Context, scope, key string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(txn *badger.Txn) error {
		r, err := getRecord(txn, scope, key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		rec = r
		return err
	})
	return rec, err
}

func (s *Store) put(txn *badger.Txn, rec *Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	e := badger.NewEntry(recordKey(rec.Scope, rec.Key), data)
	if ttl > 0 {
		e = e.WithTTL(ttl)
	}
	return txn.SetEntry(e)
}

func getRecord(txn *badger.Txn, scope, key string) (*Record, error) {
	item, err := txn.Get(recordKey(scope, key))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, nil
}

func recordKey(scope, key string) []byte {
	return []byte(recordKeyPrefix + scope + ":" + key)
}
