// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package backend owns the gateway's connections to downstream services.
//
// A Manager holds one Handle per registered backend. Handles are created and
// connected lazily by GetClient, shared by every request, and kept healthy by
// a background liveness probe (Manager.Serve, run under the supervisor).
// All backend calls go through Handle.Call, which applies the single retry
// policy and a per-backend circuit breaker, so handlers only ever see
// success or a classified BackendUnavailable error.
package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/logging"
)

// Options configures a Manager.
type Options struct {
	Policy  Policy
	Breaker BreakerSettings

	// ProbeTick is how often the probe loop wakes up. Each handle is probed
	// according to its own ProbeInterval.
	ProbeTick time.Duration
}

// Manager owns every backend Handle.
type Manager struct {
	policy    Policy
	breaker   BreakerSettings
	probeTick time.Duration

	mu        sync.RWMutex
	endpoints map[string]Endpoint
	handles   map[string]*Handle
	closed    bool
	inflight  sync.WaitGroup
	connects  singleflight.Group

	forceCtx    context.Context
	forceCancel context.CancelFunc
}

// NewManager registers endpoints without connecting to any of them.
func NewManager(opts Options, endpoints ...Endpoint) (*Manager, error) {
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = DefaultPolicy()
	}
	if opts.ProbeTick <= 0 {
		opts.ProbeTick = time.Second
	}

	forceCtx, forceCancel := context.WithCancel(context.Background())
	m := &Manager{
		policy:      opts.Policy,
		breaker:     opts.Breaker,
		probeTick:   opts.ProbeTick,
		endpoints:   make(map[string]Endpoint, len(endpoints)),
		handles:     make(map[string]*Handle, len(endpoints)),
		forceCtx:    forceCtx,
		forceCancel: forceCancel,
	}
	for _, ep := range endpoints {
		if ep.Name == "" {
			forceCancel()
			return nil, fmt.Errorf("backend endpoint without a name")
		}
		if _, dup := m.endpoints[ep.Name]; dup {
			forceCancel()
			return nil, fmt.Errorf("backend %q registered twice", ep.Name)
		}
		if ep.MaxConns <= 0 {
			ep.MaxConns = 32
		}
		m.endpoints[ep.Name] = ep
	}
	return m, nil
}

// Policy returns the retry policy applied to every backend call.
func (m *Manager) Policy() Policy { return m.policy }

// GetClient returns the shared handle for name, connecting on first use.
func (m *Manager) GetClient(ctx context.Context, name string) (*Handle, error) {
	m.mu.RLock()
	closed := m.closed
	h := m.handles[name]
	_, known := m.endpoints[name]
	m.mu.RUnlock()

	switch {
	case closed:
		return nil, apierr.Unavailable(name, ErrClosed)
	case !known:
		return nil, apierr.Unavailable(name, fmt.Errorf("%w: %s", ErrUnknownService, name))
	case h != nil && h.State() != StateDisconnected:
		return h, nil
	}

	v, err, _ := m.connects.Do(name, func() (any, error) {
		return m.connect(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

// connect creates the handle if needed and establishes the first pooled
// connection by probing the backend's health endpoint.
func (m *Manager) connect(ctx context.Context, name string) (*Handle, error) {
	m.mu.Lock()
	h := m.handles[name]
	if h == nil {
		var err error
		if h, err = newHandle(m, m.endpoints[name]); err != nil {
			m.mu.Unlock()
			return nil, apierr.Internal("backend misconfigured", err)
		}
		m.handles[name] = h
	}
	m.mu.Unlock()

	if s := h.State(); s == StateReady || s == StateDegraded {
		return h, nil
	}

	h.setState(StateConnecting)
	if h.endpoint.HealthPath != "" {
		_, attempts, err := Retry(ctx, m.policy, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, h.probe(ctx)
		})
		if err != nil {
			h.setState(StateDisconnected)
			logging.Ctx(ctx).Warn().Err(err).
				Str("backend", name).
				Int("attempts", attempts).
				Msg("backend connect failed")
			return nil, classify(ctx, name, err)
		}
	}
	h.setState(StateReady)
	return h, nil
}

// Warm connects every registered backend. Failures are logged, not
// returned; the probe loop keeps retrying disconnected backends.
func (m *Manager) Warm(ctx context.Context) {
	for _, name := range m.names() {
		if _, err := m.GetClient(ctx, name); err != nil {
			logging.Warn().Err(err).Str("backend", name).Msg("backend not reachable at startup")
		}
	}
}

// Serve runs the liveness probe loop until ctx is cancelled.
func (m *Manager) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.probeTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			m.probeAll(ctx, now)
		}
	}
}

func (m *Manager) String() string { return "backend-manager" }

func (m *Manager) probeAll(ctx context.Context, now time.Time) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return
	}
	handles := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		handles = append(handles, h)
	}
	m.mu.RUnlock()

	for _, h := range handles {
		if h.endpoint.HealthPath == "" || !h.probeDue(now) {
			continue
		}
		err := h.probe(ctx)
		switch {
		case err == nil && h.State() != StateReady:
			h.setState(StateReady)
		case err != nil && h.State() == StateReady:
			logging.Warn().Err(err).Str("backend", h.Name()).Msg("backend liveness probe failed")
			h.setState(StateDegraded)
		}
	}
}

// acquire registers an in-flight call. It fails once Close has begun.
func (m *Manager) acquire() (func(), error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	m.inflight.Add(1)
	return m.inflight.Done, nil
}

// Close stops new calls, waits for in-flight calls until ctx expires, then
// cancels whatever is still running and drops pooled connections.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(drained)
	}()

	var graceErr error
	select {
	case <-drained:
	case <-ctx.Done():
		graceErr = fmt.Errorf("backend calls still running after grace period: %w", ctx.Err())
		logging.Warn().Msg("force-closing in-flight backend calls")
	}
	m.forceCancel()
	<-drained

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.handles {
		h.transport.CloseIdleConnections()
		h.setState(StateDisconnected)
	}
	return graceErr
}

// Statuses reports every registered backend, sorted by name.
func (m *Manager) Statuses() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Status, 0, len(m.endpoints))
	for name, ep := range m.endpoints {
		state := StateDisconnected
		if h := m.handles[name]; h != nil {
			state = h.State()
		}
		out = append(out, Status{Name: name, State: state.String(), Required: ep.Required})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (m *Manager) names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.endpoints))
	for name := range m.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
