// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package upload

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/events"
	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/storage"
)

// Remove deletes a registered image owned by ownerID: unregister, delete
// the stored bytes, then invalidate the cached copies. A failed object
// delete after unregistering is recorded as an orphan. The idempotency
// record of the upload is dropped so its key can be used again. admin skips
// the ownership check.
func (o *Orchestrator) Remove(ctx context.Context, ownerID, registrationID string, admin bool) error {
	md, err := o.registry.ResolveObject(ctx, registrationID)
	if err != nil {
		return err
	}
	if md.OwnerID != ownerID && !admin {
		return apierr.Forbidden("image belongs to another user")
	}

	if err := o.registry.UnregisterObject(ctx, registrationID); err != nil {
		return err
	}

	log := logging.CtxWith(ctx).
		Str("registration_id", registrationID).
		Str("object_key", md.Key).
		Logger()

	// The registration is gone; the rest must finish even if the client
	// disconnects.
	_, idemKey, _ := storage.ParseObjectKey(md.Key)
	attempts, err := o.deleteObject(ctx, md.Key)

	// Forget only after the delete so a new upload under the same key
	// cannot have its bytes removed. Until then it replays.
	if idemKey != "" {
		if ferr := o.records.Forget(context.WithoutCancel(ctx), md.OwnerID, idemKey); ferr != nil {
			log.Warn().Err(ferr).Str("idempotency_key", idemKey).Msg("failed to clear idempotency record")
		}
	}

	if err != nil {
		o.recordOrphan(ctx, events.OrphanedObject{
			TransactionID:  uuid.NewString(),
			Key:            md.Key,
			OwnerID:        md.OwnerID,
			IdempotencyKey: idemKey,
			Attempts:       attempts,
			Error:          err.Error(),
			OccurredAt:     time.Now().UTC(),
		}, &log)
		return apierr.Internal("image unregistered but its object could not be removed", err)
	}

	paths := []string{"/" + md.Key}
	if md.EnhancedKey != "" {
		paths = append(paths, "/"+md.EnhancedKey)
	}
	err = o.step(ctx, StepInvalidate, func(sctx context.Context) error {
		return o.cdn.Invalidate(sctx, paths)
	})
	if err != nil {
		o.deferInvalidation(ctx, paths, err, &log)
	}

	log.Info().Msg("image removed")
	return nil
}
