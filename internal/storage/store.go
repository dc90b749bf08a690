// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package storage is the gateway's object store adapter.
//
// Uploaded image bytes live here under deterministic keys. The default
// implementation is BadgerStore; reads by third parties go through
// short-lived presigned URLs served by the gateway's /objects route.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

// ObjectInfo describes a stored object without its bytes.
type ObjectInfo struct {
	Key         string    `json:"key"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	Chunks      int       `json:"chunks"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Object is a stored object with its bytes.
type Object struct {
	ObjectInfo
	Data []byte
}

// ObjectStore is the storage contract used by the upload path.
//
// Put overwrites an existing key. Delete of a missing key succeeds, so a
// retried compensation never fails on an object that is already gone.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	PresignGet(key string, ttl time.Duration) (string, error)
}

// ObjectKey derives the storage key for an upload. The same owner and
// idempotency key always map to the same object, so a retried store step
// overwrites rather than duplicates.
func ObjectKey(ownerID, idempotencyKey, ext string) string {
	return "images/" + ownerID + "/" + idempotencyKey + strings.ToLower(ext)
}

// ParseObjectKey splits a key built by ObjectKey back into owner and
// idempotency key. ok is false for keys outside the images namespace.
func ParseObjectKey(key string) (ownerID, idempotencyKey string, ok bool) {
	rest, found := strings.CutPrefix(key, "images/")
	if !found {
		return "", "", false
	}
	i := strings.LastIndex(rest, "/")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	file := rest[i+1:]
	idempotencyKey = strings.TrimSuffix(file, path.Ext(file))
	if idempotencyKey == "" {
		return "", "", false
	}
	return rest[:i], idempotencyKey, true
}

// ValidateKey rejects keys that could escape the images namespace.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	if path.Clean(key) != key {
		return ErrInvalidKey
	}
	return nil
}
