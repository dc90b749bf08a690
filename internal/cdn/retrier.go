// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package cdn

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/stox-gateway/internal/events"
	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/metrics"
)

// Retrier re-submits invalidations that failed on the request path. It
// runs as a supervised service.
type Retrier struct {
	inv       Invalidator
	store     *PendingStore
	publisher events.Publisher
	interval  time.Duration
	batch     int
	timeout   time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRetrier creates a retrier. publisher may be nil.
func NewRetrier(inv Invalidator, store *PendingStore, publisher events.Publisher, interval time.Duration, batch int) *Retrier {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 50
	}
	return &Retrier{
		inv:       inv,
		store:     store,
		publisher: publisher,
		interval:  interval,
		batch:     batch,
		timeout:   30 * time.Second,
		logger:    logging.WithComponent("cdn-retrier"),
		now:       time.Now,
	}
}

// Defer records a failed invalidation for retry and publishes
// cdn.invalidation_failed. cause may be nil when the request was canceled
// before the invalidation ran.
func (r *Retrier) Defer(ctx context.Context, paths []string, cause error) (string, error) {
	now := r.now().UTC()
	p := Pending{
		ID:        uuid.NewString(),
		Paths:     NormalizePaths(paths),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if cause != nil {
		p.LastError = cause.Error()
	}

	if err := r.store.Save(ctx, p); err != nil {
		return "", err
	}
	metrics.CDNPendingInvalidations.Inc()

	if r.publisher != nil {
		evt := events.InvalidationFailed{ID: p.ID, Paths: p.Paths, Error: p.LastError, OccurredAt: now}
		if err := r.publisher.Publish(ctx, events.TopicInvalidationFailed, evt); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("pending_id", p.ID).Msg("failed to publish invalidation failure")
		}
	}
	return p.ID, nil
}

func (r *Retrier) Serve(ctx context.Context) error {
	r.refreshGauge()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

func (r *Retrier) String() string { return "cdn-retrier" }

// RunOnce retries one batch and returns how many succeeded.
func (r *Retrier) RunOnce(ctx context.Context) int {
	pending, err := r.store.List(ctx, r.batch)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to load pending invalidations")
		return 0
	}

	done := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			break
		}

		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.inv.Invalidate(callCtx, p.Paths)
		cancel()

		if err == nil {
			if err := r.store.Remove(ctx, p.ID); err != nil {
				r.logger.Error().Err(err).Str("pending_id", p.ID).Msg("failed to remove pending invalidation")
				continue
			}
			done++
			continue
		}

		p.Attempts++
		p.LastError = err.Error()
		p.UpdatedAt = r.now().UTC()
		if err := r.store.Save(ctx, p); err != nil {
			r.logger.Error().Err(err).Str("pending_id", p.ID).Msg("failed to update pending invalidation")
		}
		r.logger.Warn().Err(err).Str("pending_id", p.ID).Int("attempts", p.Attempts).Msg("invalidation retry failed")
	}

	if done > 0 {
		r.logger.Info().Int("count", done).Msg("deferred invalidations completed")
	}
	r.refreshGauge()
	return done
}

func (r *Retrier) refreshGauge() {
	n, err := r.store.Count()
	if err != nil {
		return
	}
	metrics.CDNPendingInvalidations.Set(float64(n))
}
