// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package apierr defines the gateway's error taxonomy.
//
// Handlers and middleware return *Error values (or plain errors, which are
// classified by From). The HTTP layer is the only place that turns an error
// into a status code and an envelope.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind is the error category reported to clients in the envelope.
type Kind string

const (
	KindValidation         Kind = "ValidationError"
	KindAuth               Kind = "AuthError"
	KindNotFound           Kind = "NotFound"
	KindConflict           Kind = "Conflict"
	KindBackendUnavailable Kind = "BackendUnavailable"
	KindRateLimited        Kind = "RateLimited"
	KindInternal           Kind = "InternalError"
)

// Error is a classified gateway error.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// PublicMessage is the message safe to show a client. Server-side failures
// never leak their cause.
func (e *Error) PublicMessage() string {
	switch {
	case e.Status == http.StatusGatewayTimeout:
		return "upstream service timed out"
	case e.Kind == KindBackendUnavailable:
		return "upstream service unavailable"
	case e.Status >= http.StatusInternalServerError:
		return "internal server error"
	}
	return e.Message
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: msg}
}

func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

func Unauthorized(msg string, err error) *Error {
	return &Error{Kind: KindAuth, Status: http.StatusUnauthorized, Message: msg, Err: err}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindAuth, Status: http.StatusForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Message: msg}
}

func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Status: http.StatusTooManyRequests, Message: "rate limit exceeded"}
}

// Unavailable reports a backend that could not be reached after retries.
func Unavailable(service string, err error) *Error {
	return &Error{
		Kind:    KindBackendUnavailable,
		Status:  http.StatusBadGateway,
		Message: service + " unavailable",
		Err:     err,
	}
}

// Timeout reports a backend call that ran out of deadline.
func Timeout(service string, err error) *Error {
	return &Error{
		Kind:    KindBackendUnavailable,
		Status:  http.StatusGatewayTimeout,
		Message: service + " timed out",
		Err:     err,
	}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: msg, Err: err}
}

// From classifies any error. A nil error yields nil.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Timeout("request", err)
	}
	return Internal("unexpected error", err)
}

// Is reports whether err classifies as kind.
func Is(err error, kind Kind) bool {
	e := From(err)
	return e != nil && e.Kind == kind
}

// StatusOf returns the HTTP status err maps to, 200 for nil.
func StatusOf(err error) int {
	if e := From(err); e != nil {
		return e.Status
	}
	return http.StatusOK
}
