// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

/*
Package middleware provides the infrastructure middleware shared by every
gateway route.

Key Components:
  - RequestID: request and correlation ids, echoed in response headers
  - AccessLog: one structured log line per request
  - PrometheusMetrics: request count, latency and in-flight gauge
  - RequestTimeout: per-request deadline from X-Request-Timeout

All middleware use the func(http.Handler) http.Handler shape so they can be
mounted with chi's r.Use. The api package fixes their order:

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

Metrics are labeled with the chi route pattern, never the raw path, so ids
in URLs do not create new series.
*/
package middleware
