// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/metrics"
)

// ErrorBody is the payload of the error envelope.
type ErrorBody struct {
	Kind          apierr.Kind `json:"kind"`
	Message       string      `json:"message"`
	CorrelationID string      `json:"correlationId"`
}

// ErrorEnvelope is the body of every non-2xx response.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// handlerFunc is a route handler that reports failure by returning an error.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts h to net/http. A returned error is written exactly once,
// unless h already started the response.
func handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

// writeError classifies err and writes the envelope. 5xx causes are logged
// here and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apierr.From(err)
	correlationID := logging.CorrelationIDFromContext(r.Context())

	logger := logging.Ctx(r.Context())
	if e.Status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("kind", string(e.Kind)).Int("status", e.Status).
			Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	} else {
		logger.Debug().Err(err).Str("kind", string(e.Kind)).Int("status", e.Status).Msg("request rejected")
	}
	metrics.APIErrorsTotal.WithLabelValues(string(e.Kind)).Inc()

	if e.Status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="stox-gateway"`)
	}

	writeJSON(w, r, e.Status, ErrorEnvelope{Error: ErrorBody{
		Kind:          e.Kind,
		Message:       e.PublicMessage(),
		CorrelationID: correlationID,
	}})
}

// writeJSON encodes v with status. Encoding failures can only be logged
// because the header is already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to encode JSON response")
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apierr.NotFound("route not found"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, &apierr.Error{
		Kind:    apierr.KindValidation,
		Status:  http.StatusMethodNotAllowed,
		Message: "method not allowed",
	})
}
