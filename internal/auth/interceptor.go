// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/metrics"
)

var (
	ErrMissingCredential   = errors.New("missing bearer credential")
	ErrMalformedCredential = errors.New("malformed authorization header")
	ErrInvalidToken        = errors.New("invalid token")
	ErrExpiredToken        = errors.New("token expired")
)

// TokenValidator calls the identity backend.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (Principal, error)
}

// ErrorWriter renders an error response. The HTTP layer supplies it so that
// auth failures share the gateway's error envelope.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Interceptor is the authentication middleware.
type Interceptor struct {
	validator TokenValidator
	writeErr  ErrorWriter
	timeout   time.Duration
	now       func() time.Time
}

// NewInterceptor builds an interceptor. timeout bounds each validation call
// on top of the request deadline; zero leaves only the request deadline.
func NewInterceptor(v TokenValidator, writeErr ErrorWriter, timeout time.Duration) *Interceptor {
	return &Interceptor{
		validator: v,
		writeErr:  writeErr,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Middleware rejects the request unless its bearer token validates.
func (i *Interceptor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := i.Authenticate(r)
		if err != nil {
			metrics.AuthValidationsTotal.WithLabelValues(authResult(err)).Inc()
			logging.Ctx(r.Context()).Info().Err(err).Str("path", r.URL.Path).Msg("request rejected by auth")
			i.writeErr(w, r, apierr.Unauthorized("invalid or expired credential", err))
			return
		}
		metrics.AuthValidationsTotal.WithLabelValues("valid").Inc()
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Authenticate validates the bearer token on r. It never returns a
// principal together with an error.
func (i *Interceptor) Authenticate(r *http.Request) (Principal, error) {
	token, err := ExtractBearer(r.Header.Get("Authorization"))
	if err != nil {
		return Principal{}, err
	}

	ctx := r.Context()
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	p, err := i.validator.ValidateToken(ctx, token)
	if err != nil {
		return Principal{}, err
	}
	if p.SubjectID == "" {
		return Principal{}, ErrInvalidToken
	}
	if p.Expired(i.now()) {
		return Principal{}, ErrExpiredToken
	}
	return p, nil
}

// ExtractBearer returns the token from an "Authorization: Bearer" value.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredential
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrMalformedCredential
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMalformedCredential
	}
	return token, nil
}

func authResult(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "missing"
	case errors.Is(err, ErrMalformedCredential):
		return "malformed"
	case errors.Is(err, ErrExpiredToken):
		return "expired"
	case errors.Is(err, ErrInvalidToken):
		return "invalid"
	default:
		return "backend_error"
	}
}
