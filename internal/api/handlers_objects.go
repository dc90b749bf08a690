// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/storage"
)

// ServeObject streams a stored object to holders of a valid presigned
// token for its key.
func (router *Router) ServeObject(w http.ResponseWriter, r *http.Request) error {
	key := chi.URLParam(r, "*")
	if err := storage.ValidateKey(key); err != nil {
		return apierr.NotFound("object not found")
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		return apierr.Unauthorized("missing object token", storage.ErrPresignInvalid)
	}
	if err := router.deps.Presigner.Verify(key, token); err != nil {
		return apierr.Forbidden("invalid or expired object token")
	}

	obj, err := router.deps.Objects.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apierr.NotFound("object not found")
		}
		return apierr.Internal("failed to read object", err)
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Data)
	return nil
}
