// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/backend"
)

// newTestSource registers identity and images against one server.
func newTestSource(t *testing.T, h http.HandlerFunc) *backend.Manager {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	endpoint := func(name string) backend.Endpoint {
		return backend.Endpoint{
			Name:          name,
			BaseURL:       srv.URL,
			HealthPath:    "/health",
			Timeout:       time.Second,
			ProbeInterval: time.Minute,
			MaxConns:      2,
		}
	}
	m, err := backend.NewManager(backend.Options{
		Policy:  backend.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		Breaker: backend.BreakerSettings{ConsecutiveFailures: 50},
	}, endpoint(ServiceIdentity), endpoint(ServiceImages))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func writeJSONBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestIdentity_Login(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/auth/login" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var in LoginInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in.Password != "Str0ng!pass" {
			writeJSONBody(w, http.StatusUnauthorized, map[string]string{"message": "invalid email or password"})
			return
		}
		writeJSONBody(w, http.StatusOK, map[string]any{
			"success":   true,
			"userData":  map[string]any{"id": "u1", "email": in.Email, "role": "seller"},
			"tokenData": map[string]any{"accessToken": "at", "refreshToken": "rt", "expiresIn": 3600, "tokenType": "Bearer"},
		})
	})
	c := NewIdentity(src)

	out, err := c.Login(context.Background(), LoginInput{Email: "ana@stox.test", Password: "Str0ng!pass"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if out.User == nil || out.User.Role != "seller" || out.Token == nil || out.Token.AccessToken != "at" {
		t.Errorf("result = %+v", out)
	}

	_, err = c.Login(context.Background(), LoginInput{Email: "ana@stox.test", Password: "wrong"})
	if !apierr.Is(err, apierr.KindAuth) || apierr.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 auth error", err)
	}
	if got := apierr.From(err).Message; got != "invalid email or password" {
		t.Errorf("message = %q", got)
	}
}

func TestIdentity_RegisterConflict(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, http.StatusConflict, map[string]string{"message": "email already registered"})
	})

	_, err := NewIdentity(src).Register(context.Background(), RegisterInput{Email: "a@stox.test"})
	if !apierr.Is(err, apierr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestIdentity_CheckTokenKeepsInvalidVerdict(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, http.StatusOK, map[string]any{"valid": false, "message": "token expired"})
	})

	out, err := NewIdentity(src).CheckToken(context.Background(), "stale")
	if err != nil {
		t.Fatalf("CheckToken: %v", err)
	}
	if out.Valid || out.Message != "token expired" {
		t.Errorf("status = %+v", out)
	}
}

func TestIdentity_Profile(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/users/u1":
			writeJSONBody(w, http.StatusOK, map[string]any{"success": true, "userData": map[string]any{"id": "u1", "firstName": "Ana"}})
		case "/v1/users/empty":
			writeJSONBody(w, http.StatusOK, map[string]any{"success": false})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	c := NewIdentity(src)

	p, err := c.Profile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.ID != "u1" || p.FirstName != "Ana" {
		t.Errorf("profile = %+v", p)
	}

	for _, id := range []string{"empty", "missing"} {
		if _, err := c.Profile(context.Background(), id); !apierr.Is(err, apierr.KindNotFound) {
			t.Errorf("Profile(%q) err = %v, want not found", id, err)
		}
	}
}

func TestImages_ProcessImage(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		var in ProcessInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		if r.URL.Path != "/v1/images/process" || string(in.Data) != "raw" || in.ProductName != "Lamp" {
			t.Errorf("request = %s %+v", r.URL.Path, in)
		}
		writeJSONBody(w, http.StatusOK, ProcessedImage{Data: []byte("enhanced")})
	})

	out, err := NewImages(src).ProcessImage(context.Background(), ProcessInput{Data: []byte("raw"), MimeType: "image/png", ProductName: "Lamp"})
	if err != nil {
		t.Fatalf("ProcessImage: %v", err)
	}
	if string(out.Data) != "enhanced" || out.MimeType != "image/png" {
		t.Errorf("out = %+v", out)
	}
}

func TestImages_ProcessImageEmptyResult(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(w, http.StatusOK, map[string]string{"message": "nothing to do"})
	})

	_, err := NewImages(src).ProcessImage(context.Background(), ProcessInput{Data: []byte("raw"), MimeType: "image/png"})
	if !apierr.Is(err, apierr.KindBackendUnavailable) {
		t.Fatalf("err = %v, want backend unavailable", err)
	}
}
