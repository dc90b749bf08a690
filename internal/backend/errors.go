// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tomtom215/stox-gateway/internal/apierr"
)

var (
	// ErrUnknownService is returned for a backend name that was never registered.
	ErrUnknownService = errors.New("unknown backend service")

	// ErrClosed is returned once the manager has started shutting down.
	ErrClosed = errors.New("backend manager closed")
)

// StatusError is a non-2xx response from a backend.
type StatusError struct {
	Backend    string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned %d: %s", e.Backend, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s returned %d", e.Backend, e.StatusCode)
}

// isClientError is true for 4xx responses that retrying cannot fix.
func isClientError(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return se.StatusCode >= 400 && se.StatusCode < 500
}

// retryable reports whether another attempt may succeed. ctx is the
// caller's context: a deadline error while it is still live came from the
// attempt's own timeout.
func retryable(ctx context.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return ctx.Err() == nil
	case errors.Is(err, ErrClosed), IsBreakerRejection(err):
		return false
	case isClientError(err):
		return false
	}
	return true
}

// classify maps a final call error into the gateway taxonomy. ctx is the
// caller's context and decides between unavailable and timed out.
func classify(ctx context.Context, name string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return apierr.Timeout(name, err)
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusNotFound:
			e := apierr.NotFound(name + ": resource not found")
			e.Err = err
			return e
		case se.StatusCode == http.StatusConflict:
			e := apierr.Conflict(name + ": " + messageOr(se, "conflict"))
			e.Err = err
			return e
		case se.StatusCode == http.StatusBadRequest, se.StatusCode == http.StatusUnprocessableEntity:
			e := apierr.Validation(messageOr(se, "rejected by "+name))
			e.Err = err
			return e
		}
	}
	return apierr.Unavailable(name, err)
}

func messageOr(se *StatusError, fallback string) string {
	if se.Message != "" {
		return se.Message
	}
	return fallback
}
