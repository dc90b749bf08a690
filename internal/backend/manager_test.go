// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/logging"
)

func testPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

// newTestManager registers a single backend named "images" pointing at srv.
func newTestManager(t *testing.T, srv *httptest.Server) *Manager {
	t.Helper()
	m, err := NewManager(Options{Policy: testPolicy(), Breaker: BreakerSettings{ConsecutiveFailures: 50}}, Endpoint{
		Name:          "images",
		BaseURL:       srv.URL,
		HealthPath:    "/health",
		APIKey:        "secret-key",
		Timeout:       time.Second,
		ProbeInterval: time.Minute,
		MaxConns:      4,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m
}

func TestGetClientConnectsLazily(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			probes.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newTestManager(t, srv)
	if got := m.Statuses()[0].State; got != "disconnected" {
		t.Fatalf("state before first use = %s, want disconnected", got)
	}

	h, err := m.GetClient(context.Background(), "images")
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if h.State() != StateReady {
		t.Errorf("state = %s, want ready", h.State())
	}

	h2, err := m.GetClient(context.Background(), "images")
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if h != h2 {
		t.Error("expected the cached handle to be returned")
	}
	if probes.Load() != 1 {
		t.Errorf("probes = %d, want 1", probes.Load())
	}
}

func TestGetClientUnknownService(t *testing.T) {
	m, err := NewManager(Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.GetClient(context.Background(), "nope")
	if !errors.Is(err, ErrUnknownService) {
		t.Errorf("expected ErrUnknownService, got %v", err)
	}
	if apierr.StatusOf(err) != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", apierr.StatusOf(err))
	}
}

func TestNewManagerRejectsDuplicates(t *testing.T) {
	_, err := NewManager(Options{}, Endpoint{Name: "a", BaseURL: "http://a"}, Endpoint{Name: "a", BaseURL: "http://b"})
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestCallRetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			return
		}
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"registrationId":"reg-1"}`))
	}))
	defer srv.Close()

	m := newTestManager(t, srv)
	h, err := m.GetClient(context.Background(), "images")
	if err != nil {
		t.Fatal(err)
	}

	var out struct {
		RegistrationID string `json:"registrationId"`
	}
	if err := h.Call(context.Background(), Request{Method: http.MethodPost, Path: "/v1/objects", Body: map[string]string{"key": "k"}}, &out); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out.RegistrationID != "reg-1" {
		t.Errorf("registrationId = %q", out.RegistrationID)
	}
	if hits.Load() != 3 {
		t.Errorf("attempts = %d, want 3", hits.Load())
	}
}

func TestCallExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			return
		}
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := newTestManager(t, srv)
	h, _ := m.GetClient(context.Background(), "images")

	err := h.Call(context.Background(), Request{Path: "/v1/objects/1"}, nil)
	if !apierr.Is(err, apierr.KindBackendUnavailable) {
		t.Fatalf("expected BackendUnavailable, got %v", err)
	}
	if apierr.StatusOf(err) != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", apierr.StatusOf(err))
	}
	if hits.Load() != 5 {
		t.Errorf("attempts = %d, want 5", hits.Load())
	}
	if h.State() != StateDegraded {
		t.Errorf("state = %s, want degraded", h.State())
	}
}

func TestCallDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			return
		}
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no such object"}`))
	}))
	defer srv.Close()

	m := newTestManager(t, srv)
	h, _ := m.GetClient(context.Background(), "images")

	err := h.Call(context.Background(), Request{Path: "/v1/objects/missing"}, nil)
	if apierr.StatusOf(err) != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (err %v)", apierr.StatusOf(err), err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Message != "no such object" {
		t.Errorf("expected wrapped StatusError with message, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("attempts = %d, want 1", hits.Load())
	}
	if h.State() != StateReady {
		t.Errorf("client errors must not degrade the handle, got %s", h.State())
	}
}

func TestCallHonoursDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			return
		}
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	m := newTestManager(t, srv)
	h, _ := m.GetClient(context.Background(), "images")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := h.Call(ctx, Request{Path: "/slow"}, nil)
	if apierr.StatusOf(err) != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504 (err %v)", apierr.StatusOf(err), err)
	}
	if time.Since(start) > time.Second {
		t.Error("call outlived its deadline")
	}
}

func TestCallRetriesAttemptTimeout(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			return
		}
		if hits.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(300 * time.Millisecond):
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"img-1"}`))
	}))
	defer srv.Close()

	m, err := NewManager(Options{Policy: testPolicy(), Breaker: BreakerSettings{ConsecutiveFailures: 50}}, Endpoint{
		Name:          "images",
		BaseURL:       srv.URL,
		HealthPath:    "/health",
		Timeout:       100 * time.Millisecond,
		ProbeInterval: time.Minute,
		MaxConns:      4,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	h, err := m.GetClient(context.Background(), "images")
	if err != nil {
		t.Fatal(err)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := h.Call(context.Background(), Request{Path: "/v1/objects/img-1"}, &out); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out.ID != "img-1" {
		t.Errorf("id = %q", out.ID)
	}
	if hits.Load() != 2 {
		t.Errorf("attempts = %d, want 2", hits.Load())
	}
}

func TestCallPropagatesHeaders(t *testing.T) {
	var gotKey, gotCorrelation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			return
		}
		gotKey = r.Header.Get("X-API-Key")
		gotCorrelation = r.Header.Get("X-Correlation-ID")
	}))
	defer srv.Close()

	m := newTestManager(t, srv)
	h, _ := m.GetClient(context.Background(), "images")

	ctx := logging.ContextWithCorrelationID(context.Background(), "corr0001")
	if err := h.Call(ctx, Request{Path: "/v1/ping"}, nil); err != nil {
		t.Fatal(err)
	}
	if gotKey != "secret-key" {
		t.Errorf("X-API-Key = %q", gotKey)
	}
	if gotCorrelation != "corr0001" {
		t.Errorf("X-Correlation-ID = %q", gotCorrelation)
	}
}

func TestProbeDegradesAndRecovers(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	m := newTestManager(t, srv)
	h, err := m.GetClient(context.Background(), "images")
	if err != nil {
		t.Fatal(err)
	}

	healthy.Store(false)
	m.probeAll(context.Background(), time.Now().Add(time.Hour))
	if h.State() != StateDegraded {
		t.Fatalf("state = %s, want degraded", h.State())
	}

	healthy.Store(true)
	m.probeAll(context.Background(), time.Now().Add(2*time.Hour))
	if h.State() != StateReady {
		t.Fatalf("state = %s, want ready", h.State())
	}
}

func TestConnectFailureLeavesDisconnected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := newTestManager(t, srv)
	_, err := m.GetClient(context.Background(), "images")
	if !apierr.Is(err, apierr.KindBackendUnavailable) {
		t.Fatalf("expected BackendUnavailable, got %v", err)
	}
	if got := m.Statuses()[0].State; got != "disconnected" {
		t.Errorf("state = %s, want disconnected", got)
	}
}

func TestCloseDrainsInflightCalls(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			return
		}
		close(started)
		<-release
	}))
	defer srv.Close()

	m := newTestManager(t, srv)
	h, _ := m.GetClient(context.Background(), "images")

	callErr := make(chan error, 1)
	go func() { callErr <- h.Call(context.Background(), Request{Path: "/work"}, nil) }()
	<-started

	closed := make(chan error, 1)
	go func() { closed <- m.Close(context.Background()) }()

	select {
	case <-closed:
		t.Fatal("Close returned before the in-flight call finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-callErr; err != nil {
		t.Errorf("in-flight call failed: %v", err)
	}
	if err := <-closed; err != nil {
		t.Errorf("Close: %v", err)
	}

	if _, err := m.GetClient(context.Background(), "images"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
	if h.State() != StateDisconnected {
		t.Errorf("state = %s, want disconnected", h.State())
	}
}

func TestCloseForceCancelsAfterGrace(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			return
		}
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	m := newTestManager(t, srv)
	h, _ := m.GetClient(context.Background(), "images")

	callErr := make(chan error, 1)
	go func() { callErr <- h.Call(context.Background(), Request{Path: "/hang"}, nil) }()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := m.Close(ctx); err == nil {
		t.Error("expected Close to report the exceeded grace period")
	}
	if err := <-callErr; err == nil {
		t.Error("expected the hung call to be cancelled")
	}
}
