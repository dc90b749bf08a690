// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package auth authenticates inbound requests against the identity backend.
//
// The gateway holds no session state. Every request carrying a bearer token
// pays exactly one validation round trip, and any failure on that path
// (missing header, bad token, backend error, timeout) ends the request
// with 401 before the handler runs.
package auth

import (
	"context"
	"time"
)

// Principal is the authenticated caller of one request.
type Principal struct {
	SubjectID string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// Expired reports whether the credential had expired at now. A zero
// ExpiresAt means the identity backend did not report an expiry.
func (p Principal) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by the interceptor.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
