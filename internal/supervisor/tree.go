// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	// FailureThreshold is the number of failures before entering backoff.
	// Default: 5
	FailureThreshold float64

	// FailureDecay is the rate at which failures decay in seconds.
	// Default: 30
	FailureDecay float64

	// FailureBackoff is the duration to wait when threshold is exceeded.
	// Default: 15s
	FailureBackoff time.Duration

	// ShutdownTimeout bounds how long each service may take to stop.
	// Default: 30s, the HTTP drain budget.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig returns the settings main starts from. Only
// ShutdownTimeout is overridden, from server.shutdown_timeout.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  30 * time.Second,
	}
}

// SupervisorTree runs the gateway's long-lived services in three layers:
//   - backends: the backend manager's health probe loop
//   - workers: the CDN invalidation retrier and the orphan sweeper
//   - api: the HTTP server
//
// A probe loop or retrier crash restarts inside its own layer and never
// interrupts request serving.
//
// # Restart Policy
//
// Each layer counts failures independently. Once a layer's failure count
// passes FailureThreshold it waits FailureBackoff before restarting
// anything; the count decays over FailureDecay seconds. A service that
// returns nil or ctx.Err() after cancellation is not counted.
//
// # Example
//
//	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
//	tree.AddBackendService(manager)
//	tree.AddWorkerService(retrier)
//	tree.AddWorkerService(upload.NewSweeper(objects, ledger, records, time.Minute))
//	tree.AddAPIService(services.NewHTTPServerService(server, addr, 30*time.Second))
//
//	errCh := tree.ServeBackground(ctx)
//	<-ctx.Done()
//	<-errCh
//
// # Configuration
//
// Only ShutdownTimeout is configurable at runtime, through SHUTDOWN_TIMEOUT
// (server.shutdown_timeout). The failure settings keep their defaults.
type SupervisorTree struct {
	root     *suture.Supervisor
	backends *suture.Supervisor
	workers  *suture.Supervisor
	api      *suture.Supervisor
	config   TreeConfig
}

// NewSupervisorTree builds the tree. Zero config fields take defaults.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) *SupervisorTree {
	def := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = def.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = def.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = def.ShutdownTimeout
	}

	// MustHook has a pointer receiver.
	handler := &sutureslog.Handler{Logger: logger}

	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	// Children inherit the event hook when added to the root.
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New("stox-gateway", rootSpec)
	backends := suture.New("backend-layer", childSpec)
	workers := suture.New("worker-layer", childSpec)
	api := suture.New("api-layer", childSpec)

	root.Add(backends)
	root.Add(workers)
	root.Add(api)

	return &SupervisorTree{
		root:     root,
		backends: backends,
		workers:  workers,
		api:      api,
		config:   config,
	}
}

// Root exposes the root supervisor for tests and ad hoc services.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// AddBackendService adds a backend connectivity service, such as the
// manager's probe loop.
func (t *SupervisorTree) AddBackendService(svc suture.Service) suture.ServiceToken {
	return t.backends.Add(svc)
}

// AddWorkerService adds a background worker, such as the invalidation
// retrier.
func (t *SupervisorTree) AddWorkerService(svc suture.Service) suture.ServiceToken {
	return t.workers.Add(svc)
}

// AddAPIService adds the HTTP server.
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve runs the tree until ctx is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The channel receives the
// result when the tree stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that outlived the shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
