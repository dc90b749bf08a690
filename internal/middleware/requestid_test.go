// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/stox-gateway/internal/logging"
)

func TestRequestID_GeneratesIDs(t *testing.T) {
	var requestID, correlationID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = logging.RequestIDFromContext(r.Context())
		correlationID = logging.CorrelationIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	if _, err := uuid.Parse(rec.Header().Get(HeaderRequestID)); err != nil {
		t.Errorf("X-Request-ID is not a UUID: %v", err)
	}
	if requestID != rec.Header().Get(HeaderRequestID) {
		t.Errorf("context request id %q != header %q", requestID, rec.Header().Get(HeaderRequestID))
	}
	if len(correlationID) != 8 {
		t.Errorf("correlation id = %q, want 8 chars", correlationID)
	}
	if correlationID != rec.Header().Get(HeaderCorrelationID) {
		t.Errorf("context correlation id %q != header %q", correlationID, rec.Header().Get(HeaderCorrelationID))
	}
}

func TestRequestID_PreservesClientIDs(t *testing.T) {
	var correlationID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID = logging.CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderRequestID, "req-12345")
	req.Header.Set(HeaderCorrelationID, "corr-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(HeaderRequestID); got != "req-12345" {
		t.Errorf("X-Request-ID = %q", got)
	}
	if correlationID != "corr-abc" {
		t.Errorf("correlation id = %q, want corr-abc", correlationID)
	}
}

func TestRequestID_ReplacesUnsafeIDs(t *testing.T) {
	tests := []string{
		"bad\nid",
		"has space",
		string(make([]byte, 65)),
	}

	for _, id := range tests {
		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderCorrelationID, id)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get(HeaderCorrelationID); got == id || got == "" {
			t.Errorf("unsafe id %q was not replaced (got %q)", id, got)
		}
	}
}
