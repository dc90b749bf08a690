// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package upload runs the image write path: store the bytes, register the
// object with the image backend, then invalidate the CDN.
//
// Each upload is a Transaction that only moves forward through
//
//	Received -> Stored -> Registered -> Invalidated -> Completed
//
// or drops to Failed and then Compensated, undoing the completed steps in
// reverse. Invalidation is best effort: when it fails the upload still
// completes and the invalidation is handed to the CDN retrier.
//
// Cancellation is only observed between steps. A step that has started
// runs to its own timeout on a context detached from the request, so a
// client disconnect never leaves a half-finished side effect unaccounted.
package upload

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/backend"
	"github.com/tomtom215/stox-gateway/internal/cdn"
	"github.com/tomtom215/stox-gateway/internal/clients"
	"github.com/tomtom215/stox-gateway/internal/config"
	"github.com/tomtom215/stox-gateway/internal/events"
	"github.com/tomtom215/stox-gateway/internal/idempotency"
	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/metrics"
	"github.com/tomtom215/stox-gateway/internal/storage"
	"github.com/tomtom215/stox-gateway/internal/validation"
)

// Registry is the image-metadata backend as the upload path uses it.
// *clients.Images implements it.
type Registry interface {
	RegisterObject(ctx context.Context, reg clients.ObjectRegistration) (string, error)
	ResolveObject(ctx context.Context, id string) (*clients.ObjectMetadata, error)
	UnregisterObject(ctx context.Context, id string) error
}

// Deferrer takes over an invalidation that could not run inline.
// *cdn.Retrier implements it.
type Deferrer interface {
	Defer(ctx context.Context, paths []string, cause error) (string, error)
}

// Options tunes validation and step behavior.
type Options struct {
	MaxBytes          int64
	AllowedTypes      []string
	AllowedExtensions []string
	StepTimeout       time.Duration
	Compensation      backend.Policy

	// OnFinish, when set, receives every transaction that reached a
	// terminal state.
	OnFinish func(*Transaction)
}

// OptionsFromConfig builds Options from the upload and retry sections.
func OptionsFromConfig(u config.UploadConfig, r config.RetryConfig) Options {
	return Options{
		MaxBytes:          u.MaxBytes,
		AllowedTypes:      u.AllowedTypes,
		AllowedExtensions: u.AllowedExtensions,
		StepTimeout:       u.StepTimeout,
		Compensation: backend.Policy{
			MaxAttempts: u.CompensationAttempts,
			BaseDelay:   r.BaseDelay,
			MaxDelay:    r.MaxDelay,
		},
	}
}

// Deps are the collaborators of the orchestrator. Deferrer, Ledger and
// Publisher may be nil.
type Deps struct {
	Store     storage.ObjectStore
	Registry  Registry
	CDN       cdn.Invalidator
	Records   *idempotency.Store
	Deferrer  Deferrer
	Ledger    *Ledger
	Publisher events.Publisher
}

// Request is one upload as received from the client.
type Request struct {
	OwnerID        string `json:"ownerId" validate:"required,max=128"`
	IdempotencyKey string `json:"idempotencyKey" validate:"required,idempotency_key"`
	FileName       string `json:"fileName" validate:"max=255"`
	ContentType    string `json:"contentType"`
	ProductName    string `json:"productName" validate:"max=200"`
	Data           []byte `json:"-"`
}

// Result is returned for a completed upload and replayed for repeats.
type Result struct {
	ObjectURL        string `json:"objectUrl"`
	RegistrationID   string `json:"registrationId"`
	Key              string `json:"key"`
	TransactionState State  `json:"transactionState"`
	TransactionID    string `json:"transactionId"`

	// Replayed is set when the result came from the idempotency store.
	Replayed bool `json:"-"`
}

// Orchestrator executes uploads.
type Orchestrator struct {
	store     storage.ObjectStore
	registry  Registry
	cdn       cdn.Invalidator
	records   *idempotency.Store
	deferrer  Deferrer
	ledger    *Ledger
	publisher events.Publisher
	opts      Options
	group     singleflight.Group
}

// NewOrchestrator wires the upload dependencies. A zero StepTimeout or
// compensation policy falls back to the defaults.
func NewOrchestrator(d Deps, opts Options) *Orchestrator {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 20 * time.Second
	}
	if opts.Compensation.MaxAttempts <= 0 {
		opts.Compensation = backend.DefaultPolicy()
	}
	return &Orchestrator{
		store:     d.Store,
		registry:  d.Registry,
		cdn:       d.CDN,
		records:   d.Records,
		deferrer:  d.Deferrer,
		ledger:    d.Ledger,
		publisher: d.Publisher,
		opts:      opts,
	}
}

// Execute validates req and runs it through the state machine, or replays
// the stored result of an identical earlier request.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Result, error) {
	ext, err := o.validate(&req)
	if err != nil {
		return nil, err
	}
	fp := Fingerprint(req.OwnerID, req.ContentType, req.Data)

	// Identical concurrent requests in this process share one execution.
	v, err, _ := o.group.Do(req.OwnerID+"\x00"+req.IdempotencyKey+"\x00"+fp, func() (any, error) {
		return o.run(ctx, req, ext, fp)
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*Result)
	return &res, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request, ext, fp string) (*Result, error) {
	decision, rec, err := o.records.Begin(ctx, req.OwnerID, req.IdempotencyKey, fp)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apierr.From(ctxErr)
		}
		return nil, apierr.Internal("idempotency check failed", err)
	}

	switch decision {
	case idempotency.Replay:
		var res Result
		if err := json.Unmarshal(rec.Result, &res); err != nil {
			return nil, apierr.Internal("stored upload result is unreadable", err)
		}
		res.Replayed = true
		logging.Ctx(ctx).Info().Str("idempotency_key", req.IdempotencyKey).Msg("replaying completed upload")
		return &res, nil
	case idempotency.InProgress:
		return nil, apierr.Conflict("an upload with this idempotency key is already in progress")
	case idempotency.Mismatch:
		return nil, apierr.Conflict("idempotency key was already used for a different upload")
	}

	tx := newTransaction(uuid.NewString(), req.OwnerID, req.IdempotencyKey, storage.ObjectKey(req.OwnerID, req.IdempotencyKey, ext))
	log := logging.CtxWith(ctx).
		Str("transaction_id", tx.ID).
		Str("object_key", tx.ObjectKey).
		Logger()
	defer o.finish(tx, &log)

	res, err := o.drive(ctx, tx, req, &log)
	if err != nil {
		if relErr := o.records.Release(context.WithoutCancel(ctx), req.OwnerID, req.IdempotencyKey); relErr != nil {
			log.Error().Err(relErr).Msg("failed to release idempotency key")
		}
		return nil, err
	}

	if err := o.records.Complete(context.WithoutCancel(ctx), req.OwnerID, req.IdempotencyKey, fp, res); err != nil {
		// The upload itself succeeded; a retry with this key sees the
		// in-progress claim until it expires.
		log.Error().Err(err).Msg("failed to persist idempotent upload result")
	}
	return res, nil
}

func (o *Orchestrator) drive(ctx context.Context, tx *Transaction, req Request, log *zerolog.Logger) (*Result, error) {
	if err := ctx.Err(); err != nil {
		tx.fail(err)
		_ = o.compensate(ctx, tx, log)
		return nil, apierr.From(err)
	}

	// store
	err := o.step(ctx, StepStore, func(sctx context.Context) error {
		return o.store.Put(sctx, tx.ObjectKey, req.ContentType, req.Data)
	})
	if err != nil {
		tx.fail(err)
		_ = o.compensate(ctx, tx, log)
		log.Warn().Err(err).Msg("upload failed at store step")
		return nil, storageError(err)
	}
	if err := tx.advance(StateStored, StepStore); err != nil {
		return nil, apierr.Internal("upload state", err)
	}

	if err := ctx.Err(); err != nil {
		tx.fail(err)
		if cerr := o.compensate(ctx, tx, log); cerr != nil {
			return nil, cerr
		}
		return nil, apierr.From(err)
	}

	// register
	var registrationID string
	err = o.step(ctx, StepRegister, func(sctx context.Context) error {
		id, err := o.registry.RegisterObject(sctx, clients.ObjectRegistration{
			Key:         tx.ObjectKey,
			OwnerID:     req.OwnerID,
			ContentType: req.ContentType,
			Size:        int64(len(req.Data)),
			FileName:    req.FileName,
			ProductName: req.ProductName,
		})
		registrationID = id
		return err
	})
	if err != nil {
		tx.fail(err)
		log.Warn().Err(err).Msg("upload failed at register step")
		if cerr := o.compensate(ctx, tx, log); cerr != nil {
			return nil, cerr
		}
		return nil, apierr.From(err)
	}
	tx.RegistrationID = registrationID
	if err := tx.advance(StateRegistered, StepRegister); err != nil {
		return nil, apierr.Internal("upload state", err)
	}

	// invalidate
	paths := []string{"/" + tx.ObjectKey}
	if err := ctx.Err(); err != nil {
		o.deferInvalidation(ctx, paths, err, log)
	} else {
		err := o.step(ctx, StepInvalidate, func(sctx context.Context) error {
			return o.cdn.Invalidate(sctx, paths)
		})
		if err != nil {
			o.deferInvalidation(ctx, paths, err, log)
		} else if err := tx.advance(StateInvalidated, StepInvalidate); err != nil {
			return nil, apierr.Internal("upload state", err)
		}
	}

	if err := tx.advance(StateCompleted, ""); err != nil {
		return nil, apierr.Internal("upload state", err)
	}

	return &Result{
		ObjectURL:        o.cdn.URL(tx.ObjectKey),
		RegistrationID:   tx.RegistrationID,
		Key:              tx.ObjectKey,
		TransactionState: StateCompleted,
		TransactionID:    tx.ID,
	}, nil
}

// step runs fn with the step timeout on a context that ignores the
// request's cancellation.
func (o *Orchestrator) step(ctx context.Context, step Step, fn func(context.Context) error) error {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.StepTimeout)
	defer cancel()

	start := time.Now()
	err := fn(sctx)
	metrics.RecordUploadStep(string(step), time.Since(start), err)
	return err
}

// compensate undoes the completed steps of a failed transaction and moves
// it to Compensated. Only the store step has an undo; the register step
// never completes on a failed transaction. A non-nil return means the
// stored object could not be removed.
func (o *Orchestrator) compensate(ctx context.Context, tx *Transaction, log *zerolog.Logger) error {
	defer func() {
		if err := tx.advance(StateCompensated, ""); err != nil {
			log.Error().Err(err).Msg("compensation transition rejected")
		}
	}()

	if !tx.hasCompleted(StepStore) {
		return nil
	}

	attempts, err := o.deleteObject(ctx, tx.ObjectKey)
	if err == nil {
		log.Info().Int("attempts", attempts).Msg("compensated stored object")
		return nil
	}

	o.recordOrphan(ctx, events.OrphanedObject{
		TransactionID:  tx.ID,
		Key:            tx.ObjectKey,
		OwnerID:        tx.OwnerID,
		IdempotencyKey: tx.IdempotencyKey,
		Attempts:       attempts,
		Error:          err.Error(),
		OccurredAt:     time.Now().UTC(),
	}, log)
	return apierr.Internal("upload failed and the stored object could not be removed", err)
}

// deleteObject removes key with the compensation retry policy.
func (o *Orchestrator) deleteObject(ctx context.Context, key string) (int, error) {
	budget := o.opts.StepTimeout * time.Duration(o.opts.Compensation.MaxAttempts)
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), budget)
	defer cancel()

	_, attempts, err := backend.RetryIf(cctx, o.opts.Compensation, func(err error) bool {
		return !errors.Is(err, storage.ErrInvalidKey)
	}, func(c context.Context) (struct{}, error) {
		sctx, cancel := context.WithTimeout(c, o.opts.StepTimeout)
		defer cancel()
		return struct{}{}, o.store.Delete(sctx, key)
	})
	return attempts, err
}

func (o *Orchestrator) recordOrphan(ctx context.Context, orphan events.OrphanedObject, log *zerolog.Logger) {
	metrics.UploadOrphanedObjects.Inc()
	log.Error().
		Str("orphan_key", orphan.Key).
		Int("attempts", orphan.Attempts).
		Str("error", orphan.Error).
		Msg("stored object orphaned after failed compensation")

	bg := context.WithoutCancel(ctx)
	if o.ledger != nil {
		if err := o.ledger.RecordOrphan(bg, orphan); err != nil {
			log.Error().Err(err).Msg("failed to record orphaned object")
		}
	}
	if o.publisher != nil {
		if err := o.publisher.Publish(bg, events.TopicUploadOrphaned, orphan); err != nil {
			log.Warn().Err(err).Msg("failed to publish orphaned object event")
		}
	}
}

func (o *Orchestrator) deferInvalidation(ctx context.Context, paths []string, cause error, log *zerolog.Logger) {
	log.Warn().Err(cause).Strs("paths", paths).Msg("cdn invalidation deferred")
	if o.deferrer == nil {
		return
	}
	if _, err := o.deferrer.Defer(context.WithoutCancel(ctx), paths, cause); err != nil {
		log.Error().Err(err).Msg("failed to defer cdn invalidation")
	}
}

func (o *Orchestrator) finish(tx *Transaction, log *zerolog.Logger) {
	state := tx.State()
	metrics.UploadTransactionsTotal.WithLabelValues(string(state)).Inc()
	log.Debug().
		Str("state", string(state)).
		Int("steps", len(tx.CompletedSteps())).
		Msg("upload transaction finished")
	if o.opts.OnFinish != nil {
		o.opts.OnFinish(tx)
	}
}

// validate checks req and normalizes its content type. It returns the
// lowercased file extension.
func (o *Orchestrator) validate(req *Request) (string, error) {
	if err := validation.Validate(req); err != nil {
		return "", err
	}

	size := int64(len(req.Data))
	if size == 0 {
		return "", apierr.Validation("file is empty")
	}
	if size > o.opts.MaxBytes {
		return "", apierr.Validationf("file size exceeds maximum allowed size of %dMB", o.opts.MaxBytes>>20)
	}

	ct := normalizeContentType(req.ContentType)
	if ct == "" {
		ct = normalizeContentType(http.DetectContentType(req.Data))
	}
	if !slices.Contains(o.opts.AllowedTypes, ct) {
		return "", apierr.Validationf("invalid file type %q: only JPEG, PNG and WebP images are allowed", ct)
	}
	req.ContentType = ct

	ext := strings.ToLower(filepath.Ext(req.FileName))
	if !slices.Contains(o.opts.AllowedExtensions, ext) {
		return "", apierr.Validationf("invalid file extension %q", ext)
	}

	if err := storage.ValidateKey(storage.ObjectKey(req.OwnerID, req.IdempotencyKey, ext)); err != nil {
		return "", apierr.Validation("owner id cannot be used in an object key")
	}
	return ext, nil
}

func normalizeContentType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

func storageError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apierr.Timeout("object storage", err)
	}
	return apierr.Unavailable("object storage", err)
}
