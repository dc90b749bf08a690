// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

/*
Package api is the gateway's route dispatcher.

It owns the chi route table, the fixed middleware chain and the single
point where errors become HTTP responses. Handlers have the signature

	func(w http.ResponseWriter, r *http.Request) error

and are mounted through handle, which writes the error envelope for
any returned error:

	{"error":{"kind":"NotFound","message":"product not found","correlationId":"3f2a9c1e"}}

Middleware that rejects a request (rate limit, auth, authorization) writes
through the same function, so every failure a client sees has this shape.

Middleware Order:

	request id / correlation id
	real IP
	panic recovery
	CORS
	access log
	metrics
	request deadline
	rate limit          (/api/v1 only)
	authentication      (/api/v1 except register, login and validate)
	authorization       (per route)

CORS runs before the access log so rejected preflights stay out of it.

Routes:

	GET    /health
	GET    /health/ready
	GET    /metrics
	GET    /objects/*                              presigned object read
	GET    /swagger/*                              OpenAPI UI and doc.json
	POST   /api/v1/auth/register                   no token
	POST   /api/v1/auth/login                      no token
	POST   /api/v1/auth/validate                   no token
	GET    /api/v1/auth/profile                    ?userId= needs users:manage_any
	POST   /api/v1/images                          upload (alias /images/upload)
	GET    /api/v1/images                          caller's images (alias /images/list)
	GET    /api/v1/images/{id}                     includes a presigned downloadUrl
	DELETE /api/v1/images/{id}                     (alias /images/delete/{id})
	POST   /api/v1/image/process                   enhanced bytes, nothing stored
	GET    /api/v1/ecommerce/products
	POST   /api/v1/ecommerce/products
	GET    /api/v1/ecommerce/products/statistics
	POST   /api/v1/ecommerce/products/integrate
	POST   /api/v1/ecommerce/products/with-image   multipart product + image
	GET    /api/v1/ecommerce/products/{id}
	PUT    /api/v1/ecommerce/products/{id}
	DELETE /api/v1/ecommerce/products/{id}
	GET    /api/v1/ecommerce/products/{id}/enriched
	PUT    /api/v1/ecommerce/products/{id}/enhance-image
	GET    /api/v1/ecommerce/orders
*/
package api
