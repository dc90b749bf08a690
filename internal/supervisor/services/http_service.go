// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package services adapts blocking servers to suture.Service.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/stox-gateway/internal/logging"
)

// HTTPServer is the lifecycle subset of *http.Server.
//
// Satisfied by *http.Server from net/http:
//   - ListenAndServe() error
//   - Shutdown(ctx context.Context) error
//
// Tests pass a stub to drive start failures and slow drains.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs an HTTP server until its context is canceled,
// then drains in-flight requests for at most shutdownTimeout.
//
// It translates between http.Server's blocking ListenAndServe and suture's
// context-aware Serve:
//
//  1. ListenAndServe runs in a goroutine
//  2. Serve waits for either context cancellation or a server error
//  3. On cancellation, Shutdown runs on a fresh context bounded by
//     shutdownTimeout
//
// A listen failure such as a taken port is returned as an error, so the
// supervisor restarts the service with backoff.
//
// Example:
//
//	server := &http.Server{Addr: cfg.Server.Addr(), Handler: router.SetupChi()}
//	svc := services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Server.ShutdownTimeout)
//	tree.AddAPIService(svc)
//
// # Configuration
//
// shutdownTimeout comes from SHUTDOWN_TIMEOUT (server.shutdown_timeout,
// default 30s). It should not exceed the supervisor tree's own shutdown
// timeout, or the tree reports the server as unstopped.
type HTTPServerService struct {
	server          HTTPServer
	addr            string
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps server. addr is only logged. A non-positive
// shutdownTimeout falls back to 30 seconds.
func NewHTTPServerService(server HTTPServer, addr string, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve implements suture.Service. http.ErrServerClosed is not a failure.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	logger := logging.WithComponent("http")

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", h.addr).Msg("http server listening")
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		// The serve context is already canceled; drain on a fresh one.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		start := time.Now()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh

		logger.Info().Dur("drain", time.Since(start)).Msg("http server stopped")
		return ctx.Err()
	}
}

func (h *HTTPServerService) String() string {
	return "http-server"
}
