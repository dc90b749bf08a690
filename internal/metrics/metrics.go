// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package metrics holds the gateway's Prometheus instrumentation. Metrics
// are registered with the default registry through promauto and exposed on
// /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	APIErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_api_errors_total",
			Help: "Error envelopes written, by kind",
		},
		[]string{"kind"},
	)

	// Auth
	AuthValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_auth_validations_total",
			Help: "Bearer credential checks by result",
		},
		[]string{"result"},
	)

	AuthzDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_authz_decisions_total",
			Help: "Authorization decisions by resource, action and result",
		},
		[]string{"object", "action", "result"},
	)

	// Backends
	BackendState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_backend_state",
			Help: "Backend connection state (0=disconnected, 1=connecting, 2=ready, 3=degraded)",
		},
		[]string{"backend"},
	)

	BackendCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_backend_calls_total",
			Help: "Backend calls after retries, by result",
		},
		[]string{"backend", "result"},
	)

	BackendRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_backend_retries_total",
			Help: "Backend call attempts beyond the first",
		},
		[]string{"backend"},
	)

	BackendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_backend_call_duration_seconds",
			Help:    "Backend call duration including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Uploads
	UploadTransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_upload_transactions_total",
			Help: "Upload transactions by terminal state",
		},
		[]string{"state"},
	)

	UploadStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_upload_step_duration_seconds",
			Help:    "Duration of each upload step",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step", "result"},
	)

	UploadOrphanedObjects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_upload_orphaned_objects_total",
			Help: "Stored objects whose compensating delete exhausted its retries",
		},
	)

	UploadOrphansResolved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_upload_orphans_resolved_total",
			Help: "Orphaned objects later deleted by the sweeper",
		},
	)

	IdempotencyDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_idempotency_decisions_total",
			Help: "Idempotency lookups by decision",
		},
		[]string{"decision"},
	)

	// CDN
	CDNInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_cdn_invalidations_total",
			Help: "CDN invalidation requests by result",
		},
		[]string{"result"},
	)

	CDNPendingInvalidations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_cdn_pending_invalidations",
			Help: "Failed invalidations waiting for retry",
		},
	)

	// Aggregation
	AggregationDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_aggregation_degraded_total",
			Help: "Aggregated responses served without image enrichment",
		},
		[]string{"operation"},
	)

	// Events
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_events_published_total",
			Help: "Operational events published, by topic and result",
		},
		[]string{"topic", "result"},
	)
)

// RecordAPIRequest records one completed request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight gauge up or down.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBackendCall records the outcome of one logical backend call.
func RecordBackendCall(backend string, attempts int, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	BackendCallsTotal.WithLabelValues(backend, result).Inc()
	BackendCallDuration.WithLabelValues(backend).Observe(duration.Seconds())
	if attempts > 1 {
		BackendRetriesTotal.WithLabelValues(backend).Add(float64(attempts - 1))
	}
}

// RecordUploadStep records the duration of a single orchestrator step.
func RecordUploadStep(step string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	UploadStepDuration.WithLabelValues(step, result).Observe(duration.Seconds())
}

func RecordPublish(topic string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsPublishedTotal.WithLabelValues(topic, result).Inc()
}
