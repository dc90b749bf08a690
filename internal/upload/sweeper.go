// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package upload

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/stox-gateway/internal/events"
	"github.com/tomtom215/stox-gateway/internal/idempotency"
	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/metrics"
	"github.com/tomtom215/stox-gateway/internal/storage"
)

// Sweeper deletes objects that a failed compensation left in the store and
// clears their ledger records. It runs as a supervised service.
//
// Object keys are derived from owner and idempotency key, so a retry of the
// same upload writes to the key an orphan record points at. Before deleting,
// the sweeper claims that idempotency key. If a completed upload owns it the
// bytes are live and only the record is cleared; if an upload is in flight
// the record waits for the next pass.
type Sweeper struct {
	store    storage.ObjectStore
	ledger   *Ledger
	records  *idempotency.Store
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewSweeper creates a Sweeper that runs every interval (five minutes when
// interval is not positive).
func NewSweeper(store storage.ObjectStore, ledger *Ledger, records *idempotency.Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		store:    store,
		ledger:   ledger,
		records:  records,
		interval: interval,
		timeout:  30 * time.Second,
		logger:   logging.WithComponent("orphan-sweeper"),
	}
}

// Serve implements suture.Service. It sweeps once per interval until ctx
// is canceled.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *Sweeper) String() string { return "orphan-sweeper" }

// RunOnce makes one pass over the ledger and returns how many records were
// resolved. A record whose delete fails stays for the next pass.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	orphans, err := s.ledger.Orphans(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load orphan records")
		return 0
	}

	resolved := 0
	for _, o := range orphans {
		if ctx.Err() != nil {
			break
		}
		if !s.sweep(ctx, o) {
			continue
		}
		if err := s.ledger.ResolveOrphan(ctx, o.TransactionID); err != nil {
			s.logger.Error().Err(err).Str("transaction_id", o.TransactionID).Msg("failed to clear orphan record")
			continue
		}
		metrics.UploadOrphansResolved.Inc()
		resolved++
	}

	if resolved > 0 {
		s.logger.Info().Int("count", resolved).Msg("orphan records resolved")
	}
	return resolved
}

// sweep reports whether the record can be cleared.
func (s *Sweeper) sweep(ctx context.Context, o events.OrphanedObject) bool {
	log := s.logger.With().Str("transaction_id", o.TransactionID).Str("key", o.Key).Logger()

	owner, idemKey, ok := storage.ParseObjectKey(o.Key)
	if o.OwnerID != "" {
		owner = o.OwnerID
	}
	if o.IdempotencyKey != "" {
		idemKey = o.IdempotencyKey
	}
	if !ok && (owner == "" || idemKey == "") {
		return s.delete(ctx, log, o.Key)
	}

	decision, _, err := s.records.Begin(ctx, owner, idemKey, "orphan-sweep:"+o.TransactionID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to claim idempotency key")
		return false
	}
	if decision != idempotency.Acquired {
		rec, err := s.records.Get(ctx, owner, idemKey)
		if err != nil {
			log.Warn().Err(err).Msg("failed to read idempotency record")
			return false
		}
		if rec != nil && rec.State == idempotency.StateCompleted {
			log.Info().Msg("object belongs to a completed upload, keeping it")
			return true
		}
		log.Debug().Msg("upload in flight for key, retrying next pass")
		return false
	}

	deleted := s.deleteIfStale(ctx, log, o)
	if err := s.records.Release(context.WithoutCancel(ctx), owner, idemKey); err != nil {
		log.Warn().Err(err).Msg("failed to release idempotency key")
	}
	return deleted
}

// deleteIfStale deletes the object unless it was written after the orphan
// was recorded, which means a later upload whose record has expired owns it.
func (s *Sweeper) deleteIfStale(ctx context.Context, log zerolog.Logger, o events.OrphanedObject) bool {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	obj, err := s.store.Get(callCtx, o.Key)
	cancel()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return true
	case err != nil:
		log.Warn().Err(err).Msg("failed to read orphaned object")
		return false
	case obj.CreatedAt.After(o.OccurredAt):
		log.Info().Time("created_at", obj.CreatedAt).Msg("object rewritten after orphan was recorded, keeping it")
		return true
	}
	return s.delete(ctx, log, o.Key)
}

func (s *Sweeper) delete(ctx context.Context, log zerolog.Logger, key string) bool {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.Delete(callCtx, key); err != nil {
		log.Warn().Err(err).Msg("orphaned object delete failed")
		return false
	}
	return true
}
