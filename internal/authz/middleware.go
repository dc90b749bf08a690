// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package authz

import (
	"net/http"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/auth"
	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/metrics"
)

// Middleware enforces per-route permissions after authentication.
type Middleware struct {
	enforcer *Enforcer
	writeErr auth.ErrorWriter
}

func NewMiddleware(enforcer *Enforcer, writeErr auth.ErrorWriter) *Middleware {
	return &Middleware{enforcer: enforcer, writeErr: writeErr}
}

// Require allows the request only if the principal's role grants action
// on object.
func (m *Middleware) Require(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				m.writeErr(w, r, apierr.Forbidden("no authenticated principal"))
				return
			}

			allowed, err := m.enforcer.Enforce(p.Role, object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("authorization error")
				m.writeErr(w, r, apierr.Internal("authorization failed", err))
				return
			}
			if !allowed {
				metrics.AuthzDecisionsTotal.WithLabelValues(object, action, "deny").Inc()
				logging.Ctx(r.Context()).Info().
					Str("subject_id", p.SubjectID).
					Str("role", p.Role).
					Str("object", object).
					Str("action", action).
					Msg("request denied by policy")
				m.writeErr(w, r, apierr.Forbidden("insufficient permissions"))
				return
			}

			metrics.AuthzDecisionsTotal.WithLabelValues(object, action, "allow").Inc()
			next.ServeHTTP(w, r)
		})
	}
}
