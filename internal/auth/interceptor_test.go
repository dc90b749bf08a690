// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/stox-gateway/internal/apierr"
)

type fakeValidator struct {
	calls     atomic.Int32
	principal Principal
	err       error
	delay     time.Duration
	lastToken atomic.Value
}

func (f *fakeValidator) ValidateToken(ctx context.Context, token string) (Principal, error) {
	f.calls.Add(1)
	f.lastToken.Store(token)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Principal{}, ctx.Err()
		}
	}
	return f.principal, f.err
}

func recordingWriter(got *error) ErrorWriter {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		*got = err
		w.WriteHeader(apierr.StatusOf(err))
	}
}

func sentinel(t *testing.T, reached *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*reached = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestInterceptor_RejectsWithoutCallingHandler(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		validator *fakeValidator
		wantCalls int32
		wantErr   error
	}{
		{
			name:      "missing header",
			validator: &fakeValidator{},
			wantCalls: 0,
			wantErr:   ErrMissingCredential,
		},
		{
			name:      "wrong scheme",
			header:    "Basic dXNlcjpwYXNz",
			validator: &fakeValidator{},
			wantCalls: 0,
			wantErr:   ErrMalformedCredential,
		},
		{
			name:      "empty token",
			header:    "Bearer   ",
			validator: &fakeValidator{},
			wantCalls: 0,
			wantErr:   ErrMalformedCredential,
		},
		{
			name:      "invalid token",
			header:    "Bearer nope",
			validator: &fakeValidator{err: ErrInvalidToken},
			wantCalls: 1,
			wantErr:   ErrInvalidToken,
		},
		{
			name:      "backend unavailable",
			header:    "Bearer tok",
			validator: &fakeValidator{err: apierr.Unavailable("identity", errors.New("connection refused"))},
			wantCalls: 1,
		},
		{
			name:   "expired token",
			header: "Bearer tok",
			validator: &fakeValidator{principal: Principal{
				SubjectID: "u1",
				ExpiresAt: time.Now().Add(-time.Minute),
			}},
			wantCalls: 1,
			wantErr:   ErrExpiredToken,
		},
		{
			name:      "empty subject",
			header:    "Bearer tok",
			validator: &fakeValidator{principal: Principal{}},
			wantCalls: 1,
			wantErr:   ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotErr error
			reached := false
			i := NewInterceptor(tt.validator, recordingWriter(&gotErr), 0)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/images", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			i.Middleware(sentinel(t, &reached)).ServeHTTP(rec, req)

			if reached {
				t.Fatal("handler ran for a rejected request")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if !apierr.Is(gotErr, apierr.KindAuth) {
				t.Errorf("error kind: got %v, want KindAuth", gotErr)
			}
			if tt.wantErr != nil && !errors.Is(gotErr, tt.wantErr) {
				t.Errorf("error = %v, want wrapping %v", gotErr, tt.wantErr)
			}
			if got := tt.validator.calls.Load(); got != tt.wantCalls {
				t.Errorf("validator calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestInterceptor_ValidTokenAttachesPrincipal(t *testing.T) {
	v := &fakeValidator{principal: Principal{
		SubjectID: "user-42",
		Email:     "a@example.com",
		Role:      "seller",
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	var gotErr error
	i := NewInterceptor(v, recordingWriter(&gotErr), time.Second)

	var seen Principal
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			t.Error("principal missing from context")
		}
		seen = p
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	rec := httptest.NewRecorder()
	i.Middleware(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204 (err %v)", rec.Code, gotErr)
	}
	if seen.SubjectID != "user-42" || seen.Role != "seller" {
		t.Errorf("principal = %+v", seen)
	}
	if tok, _ := v.lastToken.Load().(string); tok != "abc.def" {
		t.Errorf("token forwarded = %q, want abc.def", tok)
	}
}

func TestInterceptor_ValidatesEveryRequest(t *testing.T) {
	v := &fakeValidator{principal: Principal{SubjectID: "u"}}
	var gotErr error
	i := NewInterceptor(v, recordingWriter(&gotErr), 0)
	h := i.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for n := 0; n < 3; n++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer same-token")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := v.calls.Load(); got != 3 {
		t.Errorf("validator calls = %d, want 3 (no caching)", got)
	}
}

func TestInterceptor_ValidationTimeout(t *testing.T) {
	v := &fakeValidator{principal: Principal{SubjectID: "u"}, delay: time.Second}
	var gotErr error
	reached := false
	i := NewInterceptor(v, recordingWriter(&gotErr), 20*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer slow")
	rec := httptest.NewRecorder()
	i.Middleware(sentinel(t, &reached)).ServeHTTP(rec, req)

	if reached {
		t.Fatal("handler ran after validation timeout")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if !errors.Is(gotErr, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", gotErr)
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    error
	}{
		{"Bearer abc", "abc", nil},
		{"bearer abc", "abc", nil},
		{"", "", ErrMissingCredential},
		{"Bearer", "", ErrMalformedCredential},
		{"Token abc", "", ErrMalformedCredential},
	}
	for _, tt := range tests {
		got, err := ExtractBearer(tt.header)
		if !errors.Is(err, tt.err) {
			t.Errorf("ExtractBearer(%q) err = %v, want %v", tt.header, err, tt.err)
		}
		if got != tt.want {
			t.Errorf("ExtractBearer(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestPrincipal_Expired(t *testing.T) {
	now := time.Now()
	if (Principal{}).Expired(now) {
		t.Error("zero expiry should not be expired")
	}
	if !(Principal{ExpiresAt: now}).Expired(now) {
		t.Error("expiry equal to now should be expired")
	}
	if (Principal{ExpiresAt: now.Add(time.Second)}).Expired(now) {
		t.Error("future expiry reported expired")
	}
}
