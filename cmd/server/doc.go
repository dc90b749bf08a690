// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

/*
Package main is the Stox Gateway server.

The gateway is the single HTTP entry point for clients of three backends:
identity (accounts and token validation), images (object metadata
registry and enhancement) and commerce (products and orders). It
authenticates /api/v1 requests against the identity backend, dispatches
to the owning backend, stores uploaded image bytes in an embedded BadgerDB
object store and joins commerce products with their images. The OpenAPI
document is served at /swagger/.

# Startup

  - Load configuration (defaults, then config.yaml, then environment)
  - Initialize zerolog
  - Open the BadgerDB store used for objects, idempotency records,
    the transaction ledger and pending CDN invalidations
  - Register the three backends and warm their connections
  - Connect the event bus (NATS when configured, in-process otherwise)
  - Build the upload orchestrator, product aggregator and Casbin enforcer
  - Start the supervisor tree: backend probes in the backend layer, the
    CDN retrier and orphan sweeper in the worker layer, and the HTTP
    server in the api layer

A backend that is unreachable at startup does not stop the gateway.
Its routes answer 502 until the probe loop reconnects it, and
/health/ready reports not_ready while a required backend is down.

# Shutdown

SIGINT or SIGTERM cancels the tree. The HTTP server drains in-flight
requests within server.shutdown_timeout, after which backend connections,
the event bus and the store are closed in that order.

# Configuration

See internal/config for every key. The most common:

	HTTP_PORT=8080
	IDENTITY_SERVICE_URL=http://identity:9000
	IMAGE_SERVICE_URL=http://images:9001
	ECOMMERCE_BASE_URL=http://commerce:9002
	ECOMMERCE_API_KEY=...
	STORAGE_PATH=/data/objects
	STORAGE_PRESIGN_SECRET=...
	NATS_URL=nats://nats:4222
*/
package main
