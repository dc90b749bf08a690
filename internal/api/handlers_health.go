// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/stox-gateway/internal/backend"
)

type healthResponse struct {
	Status   string           `json:"status"`
	Uptime   float64          `json:"uptimeSeconds"`
	Backends []backend.Status `json:"backends,omitempty"`
}

// Health is the liveness probe. It never touches a backend.
func (router *Router) Health(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(router.startTime).Seconds(),
	})
	return nil
}

// HealthReady reports backend states. It returns 503 while any required
// backend is disconnected; a degraded backend still counts as ready.
func (router *Router) HealthReady(w http.ResponseWriter, r *http.Request) error {
	statuses := router.deps.Backends.Statuses()

	status, code := "ready", http.StatusOK
	for _, s := range statuses {
		if s.Required && s.State == backend.StateDisconnected.String() {
			status, code = "not_ready", http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, r, code, healthResponse{
		Status:   status,
		Uptime:   time.Since(router.startTime).Seconds(),
		Backends: statuses,
	})
	return nil
}
