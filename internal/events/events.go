// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package events publishes operational events for out-of-band cleanup.
//
// Two conditions leave work for an operator or a cleanup job: a stored
// object whose compensating delete never succeeded, and a CDN
// invalidation that failed. Both are published through Watermill, either
// in-process (gochannel) or to NATS when a URL is configured.
package events

import (
	"time"
)

// Topics
const (
	TopicUploadOrphaned     = "upload.orphaned"
	TopicInvalidationFailed = "cdn.invalidation_failed"
)

// OrphanedObject is published when an object could not be removed after a
// failed upload.
type OrphanedObject struct {
	TransactionID  string    `json:"transactionId"`
	Key            string    `json:"key"`
	OwnerID        string    `json:"ownerId"`
	IdempotencyKey string    `json:"idempotencyKey"`
	Attempts       int       `json:"attempts"`
	Error          string    `json:"error"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// InvalidationFailed is published when a CDN invalidation is deferred to
// the retrier.
type InvalidationFailed struct {
	ID         string    `json:"id"`
	Paths      []string  `json:"paths"`
	Error      string    `json:"error"`
	OccurredAt time.Time `json:"occurredAt"`
}
