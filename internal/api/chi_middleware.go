// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package api

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/config"
)

// ChiMiddleware builds the CORS and rate limit middleware from config.
type ChiMiddleware struct {
	cors      func(http.Handler) http.Handler
	rateLimit config.RateLimitConfig
}

// NewChiMiddleware creates the middleware factory. An empty origin list
// allows no cross-origin requests.
func NewChiMiddleware(c config.CORSConfig, rl config.RateLimitConfig) *ChiMiddleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   c.AllowedMethods,
		AllowedHeaders:   c.AllowedHeaders,
		ExposedHeaders:   []string{"X-Request-ID", "X-Correlation-ID", "Idempotent-Replayed"},
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAge,
	})

	return &ChiMiddleware{
		cors:      corsHandler,
		rateLimit: rl,
	}
}

// CORS returns the go-chi/cors allow-list middleware.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit limits requests per client IP. Rejections use the error
// envelope.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	if !m.rateLimit.Enabled || m.rateLimit.Requests <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		m.rateLimit.Requests,
		m.rateLimit.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, apierr.RateLimited())
		}),
	)
}

// APISecurityHeaders adds headers appropriate for JSON API responses.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Cache-Control", "no-store")

			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
