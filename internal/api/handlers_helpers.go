// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/auth"
	"github.com/tomtom215/stox-gateway/internal/authz"
	"github.com/tomtom215/stox-gateway/internal/logging"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// maxJSONBody bounds product and integrate payloads.
	maxJSONBody = 1 << 20
)

// principal returns the authenticated caller. Routes mounted under the
// auth middleware always have one.
func principal(r *http.Request) (auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok || p.SubjectID == "" {
		return auth.Principal{}, apierr.Unauthorized("authentication required", auth.ErrMissingCredential)
	}
	return p, nil
}

// canManageAny reports whether p may act on other principals' images.
func (router *Router) canManageAny(r *http.Request, p auth.Principal) bool {
	ok, err := router.deps.Enforcer.Enforce(p.Role, authz.ResourceImages, authz.ActionManageAny)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("manage_any check failed")
		return false
	}
	return ok
}

// pathID returns a required, non-blank chi URL parameter.
func pathID(r *http.Request, name string) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, name))
	if id == "" {
		return "", apierr.Validationf("%s is required", name)
	}
	return id, nil
}

// decodeJSON decodes a bounded JSON body into v, rejecting trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apierr.Validation("request body too large")
		case errors.Is(err, io.EOF):
			return apierr.Validation("request body is required")
		default:
			return apierr.Validation("invalid JSON body")
		}
	}
	if dec.More() {
		return apierr.Validation("request body must contain a single JSON object")
	}
	return nil
}

// parsePagination reads page and pageSize. Both must be positive integers
// and pageSize is capped at 100.
func parsePagination(r *http.Request) (page, pageSize int, err error) {
	page, pageSize = 1, defaultPageSize
	q := r.URL.Query()

	if v := q.Get("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return 0, 0, apierr.Validation("page must be a positive integer")
		}
	}
	if v := q.Get("pageSize"); v != "" {
		pageSize, err = strconv.Atoi(v)
		if err != nil || pageSize < 1 || pageSize > maxPageSize {
			return 0, 0, apierr.Validationf("pageSize must be between 1 and %d", maxPageSize)
		}
	}
	return page, pageSize, nil
}
