// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// @title Stox Gateway API
// @version 1.0
// @description Single entry point for the identity, image and commerce backends.
// @description
// @description ## Authentication
// @description
// @description Every /api/v1 route except register, login and validate needs
// @description `Authorization: Bearer <token>`. Tokens are checked against the
// @description identity backend on each request and the gateway fails closed.
// @description
// @description ## Idempotency
// @description
// @description Uploads require an `Idempotency-Key` header. Repeating a request
// @description with the same key and body replays the first result and sets
// @description `Idempotent-Replayed: true`. The same key with a different body is a 409.
// @description
// @description ## Error Responses
// @description
// @description ```json
// @description {"error": {"kind": "validation", "message": "...", "correlationId": "..."}}
// @description ```
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token issued by /api/v1/auth/login.
//
// @tag.name auth
// @tag.description Account registration, login and token checks
//
// @tag.name images
// @tag.description Image upload, listing, processing and deletion
//
// @tag.name products
// @tag.description Commerce products, enrichment and image integration

package main
