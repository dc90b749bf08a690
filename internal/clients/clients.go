// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package clients holds the typed clients for the gateway's backends. Each
// client resolves its shared handle from the backend Manager per call, so
// a reconnect is picked up without the client holding stale state.
package clients

import (
	"context"

	"github.com/tomtom215/stox-gateway/internal/backend"
)

// Backend service names registered with the Manager.
const (
	ServiceIdentity = "identity"
	ServiceImages   = "images"
	ServiceCommerce = "commerce"
)

// HandleSource yields backend handles. *backend.Manager implements it.
type HandleSource interface {
	GetClient(ctx context.Context, name string) (*backend.Handle, error)
}

func call(ctx context.Context, src HandleSource, service string, req backend.Request, out any) error {
	h, err := src.GetClient(ctx, service)
	if err != nil {
		return err
	}
	return h.Call(ctx, req, out)
}
