// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/metrics"
)

const maxResponseBytes = 8 << 20

// Endpoint describes a backend the manager can connect to.
type Endpoint struct {
	Name          string
	BaseURL       string
	HealthPath    string
	APIKey        string
	Timeout       time.Duration
	ProbeInterval time.Duration
	MaxConns      int
	Required      bool
}

// Request is one logical backend call. Body is JSON-encoded once and
// replayed on every attempt.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Handle is the shared, long-lived client for one backend. All requests
// use the same pooled transport; only the owning Manager changes its state.
type Handle struct {
	endpoint  Endpoint
	base      *url.URL
	transport *http.Transport
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[any]
	manager   *Manager

	state     atomic.Int32
	lastProbe atomic.Int64
	failures  atomic.Int64
}

func newHandle(m *Manager, ep Endpoint) (*Handle, error) {
	base, err := url.Parse(strings.TrimSuffix(ep.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse %s base url: %w", ep.Name, err)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          ep.MaxConns,
		MaxIdleConnsPerHost:   ep.MaxConns,
		MaxConnsPerHost:       ep.MaxConns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	h := &Handle{
		endpoint:  ep,
		base:      base,
		transport: transport,
		client:    &http.Client{Transport: transport},
		breaker:   NewBreaker("backend:"+ep.Name, m.breaker),
		manager:   m,
	}
	h.setState(StateDisconnected)
	return h, nil
}

// Name returns the backend service name.
func (h *Handle) Name() string { return h.endpoint.Name }

// State returns the current connection state.
func (h *Handle) State() State { return State(h.state.Load()) }

func (h *Handle) setState(s State) {
	old := State(h.state.Swap(int32(s)))
	metrics.BackendState.WithLabelValues(h.endpoint.Name).Set(float64(s))
	if old != s {
		logging.Info().
			Str("backend", h.endpoint.Name).
			Str("from", old.String()).
			Str("to", s.String()).
			Msg("backend state changed")
	}
}

// Call performs req with the manager's retry policy and decodes a JSON
// response into out when out is non-nil. Errors are already classified
// into the gateway taxonomy.
func (h *Handle) Call(ctx context.Context, req Request, out any) error {
	release, err := h.manager.acquire()
	if err != nil {
		return classify(ctx, h.endpoint.Name, err)
	}
	defer release()

	// Calls are force-cancelled when the manager's grace period ends.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(h.manager.forceCtx, cancel)
	defer stop()

	var payload []byte
	if req.Body != nil {
		if payload, err = json.Marshal(req.Body); err != nil {
			return fmt.Errorf("encode %s request: %w", h.endpoint.Name, err)
		}
	}

	start := time.Now()
	body, attempts, err := Retry(ctx, h.manager.policy, func(ctx context.Context) ([]byte, error) {
		res, err := h.breaker.Execute(func() (any, error) {
			return h.roundTrip(ctx, req, payload)
		})
		if err != nil {
			return nil, err
		}
		b, _ := res.([]byte)
		return b, nil
	})
	metrics.RecordBackendCall(h.endpoint.Name, attempts, time.Since(start), err)

	if err != nil {
		if !isClientError(err) && ctx.Err() == nil {
			h.noteFailure()
		}
		logging.Ctx(ctx).Debug().Err(err).
			Str("backend", h.endpoint.Name).
			Int("attempts", attempts).
			Msg("backend call failed")
		return classify(ctx, h.endpoint.Name, err)
	}
	h.noteSuccess()

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s response: %w", h.endpoint.Name, err)
		}
	}
	return nil
}

// roundTrip performs a single attempt bounded by the endpoint timeout.
func (h *Handle) roundTrip(ctx context.Context, req Request, payload []byte) ([]byte, error) {
	if h.endpoint.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.endpoint.Timeout)
		defer cancel()
	}

	u := *h.base
	u.Path = h.base.Path + req.Path
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", h.endpoint.Name, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if h.endpoint.APIKey != "" {
		httpReq.Header.Set("X-API-Key", h.endpoint.APIKey)
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		httpReq.Header.Set("X-Correlation-ID", id)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", h.endpoint.Name, err)
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{
			Backend:    h.endpoint.Name,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
		}
	}
	return data, nil
}

// probe checks the backend's health endpoint once, bypassing retries so
// that the result reflects the backend right now.
func (h *Handle) probe(ctx context.Context) error {
	_, err := h.roundTrip(ctx, Request{Method: http.MethodGet, Path: h.endpoint.HealthPath}, nil)
	h.lastProbe.Store(time.Now().UnixNano())
	return err
}

func (h *Handle) noteFailure() {
	h.failures.Add(1)
	if h.State() == StateReady {
		h.setState(StateDegraded)
	}
}

func (h *Handle) noteSuccess() {
	h.failures.Store(0)
	if h.State() == StateDegraded {
		h.setState(StateReady)
	}
}

func (h *Handle) probeDue(now time.Time) bool {
	interval := h.endpoint.ProbeInterval
	if interval <= 0 {
		return false
	}
	return now.Sub(time.Unix(0, h.lastProbe.Load())) >= interval
}

// errorMessage extracts "message" or "error" from a JSON error body.
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if json.Unmarshal(data, &body) != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	switch e := body.Error.(type) {
	case string:
		return e
	case map[string]any:
		if m, ok := e["message"].(string); ok {
			return m
		}
	}
	return ""
}
