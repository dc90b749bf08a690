// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseRequestTimeout(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"", 0, false},
		{"1500", 1500 * time.Millisecond, true},
		{"2s", 2 * time.Second, true},
		{"250ms", 250 * time.Millisecond, true},
		{"0", 0, false},
		{"-5", 0, false},
		{"-1s", 0, false},
		{"soon", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseRequestTimeout(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRequestTimeout(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRequestTimeout_UsesMinimum(t *testing.T) {
	tests := []struct {
		name   string
		header string
		def    time.Duration
		max    time.Duration
	}{
		{"default only", "", 10 * time.Second, 10 * time.Second},
		{"client shorter", "100ms", 10 * time.Second, 100 * time.Millisecond},
		{"client longer ignored", "1m", time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var remaining time.Duration
			handler := RequestTimeout(tt.def)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				deadline, ok := r.Context().Deadline()
				if !ok {
					t.Fatal("no deadline set")
				}
				remaining = time.Until(deadline)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(HeaderRequestTimeout, tt.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if remaining > tt.max || remaining < tt.max-time.Second/2 {
				t.Errorf("remaining = %v, want about %v", remaining, tt.max)
			}
		})
	}
}
