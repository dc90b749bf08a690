// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/stox-gateway/internal/auth"
	"github.com/tomtom215/stox-gateway/internal/authz"
	"github.com/tomtom215/stox-gateway/internal/backend"
	"github.com/tomtom215/stox-gateway/internal/clients"
	"github.com/tomtom215/stox-gateway/internal/commerce"
	"github.com/tomtom215/stox-gateway/internal/config"
	"github.com/tomtom215/stox-gateway/internal/middleware"
	"github.com/tomtom215/stox-gateway/internal/storage"
	"github.com/tomtom215/stox-gateway/internal/upload"
)

// Uploader runs and reverses uploads. *upload.Orchestrator implements it.
type Uploader interface {
	Execute(ctx context.Context, req upload.Request) (*upload.Result, error)
	Remove(ctx context.Context, ownerID, registrationID string, admin bool) error
}

// ImageCatalog reads image registrations. *clients.Images implements it.
type ImageCatalog interface {
	ResolveObject(ctx context.Context, id string) (*clients.ObjectMetadata, error)
	ListObjects(ctx context.Context, ownerID string) ([]clients.ObjectMetadata, error)
}

// CommerceBackend is the commerce passthrough. *clients.Commerce implements it.
type CommerceBackend interface {
	ListProducts(ctx context.Context, page, pageSize int) (*clients.ProductPage, error)
	GetProduct(ctx context.Context, id string) (*clients.Product, error)
	CreateProduct(ctx context.Context, in clients.ProductInput) (*clients.Product, error)
	UpdateProduct(ctx context.Context, id string, in clients.ProductInput) (*clients.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	Statistics(ctx context.Context) (*clients.ProductStatistics, error)
	Orders(ctx context.Context, sellerID string) ([]clients.Order, error)
}

// AccountService is the identity passthrough. *clients.Identity implements it.
type AccountService interface {
	Register(ctx context.Context, in clients.RegisterInput) (*clients.AuthResult, error)
	Login(ctx context.Context, in clients.LoginInput) (*clients.AuthResult, error)
	CheckToken(ctx context.Context, token string) (*clients.TokenStatus, error)
	Profile(ctx context.Context, userID string) (*clients.UserProfile, error)
}

// ImageProcessor enhances images. *clients.Images implements it.
type ImageProcessor interface {
	ProcessImage(ctx context.Context, in clients.ProcessInput) (*clients.ProcessedImage, error)
}

// ProductEnhancer writes products with enhanced images.
// *commerce.Enhancer implements it.
type ProductEnhancer interface {
	CreateWithImage(ctx context.Context, in clients.ProductInput, file commerce.ImageFile) (*commerce.ProductImageResult, error)
	EnhanceProductImage(ctx context.Context, id, productName string, file commerce.ImageFile) (*commerce.ProductImageResult, error)
}

// ProductAggregator joins commerce products with image data.
// *commerce.Aggregator implements it.
type ProductAggregator interface {
	ProductWithImages(ctx context.Context, id string) (*commerce.EnrichedProduct, error)
	Integrate(ctx context.Context, ownerID string, req commerce.IntegrateRequest) (*commerce.IntegrationResult, error)
}

// ObjectReader serves stored objects and signs read links to them.
// *storage.BadgerStore implements it.
type ObjectReader interface {
	Get(ctx context.Context, key string) (*storage.Object, error)
	PresignGet(key string, ttl time.Duration) (string, error)
}

// TokenVerifier checks presigned read tokens. *storage.Presigner implements it.
type TokenVerifier interface {
	Verify(key, token string) error
}

// BackendStatuser reports backend connection states. *backend.Manager
// implements it.
type BackendStatuser interface {
	Statuses() []backend.Status
}

// URLBuilder turns object keys into delivery URLs.
type URLBuilder interface {
	URL(key string) string
}

// Deps are the collaborators the routes dispatch to.
type Deps struct {
	Tokens     auth.TokenValidator
	Enforcer   *authz.Enforcer
	Uploads    Uploader
	Images     ImageCatalog
	Commerce   CommerceBackend
	Aggregator ProductAggregator
	Accounts   AccountService
	Processor  ImageProcessor
	Enhancer   ProductEnhancer
	Objects    ObjectReader
	Presigner  TokenVerifier
	Backends   BackendStatuser
	URLs       URLBuilder
}

// Router holds the route table dependencies.
type Router struct {
	deps          Deps
	cfg           *config.Config
	chiMiddleware *ChiMiddleware
	authn         *auth.Interceptor
	authz         *authz.Middleware
	startTime     time.Time
}

// NewRouter wires the dispatcher. Authentication gets its own deadline of
// the identity backend timeout.
func NewRouter(cfg *config.Config, deps Deps) *Router {
	return &Router{
		deps:          deps,
		cfg:           cfg,
		chiMiddleware: NewChiMiddleware(cfg.CORS, cfg.RateLimit),
		authn:         auth.NewInterceptor(deps.Tokens, writeError, cfg.Backends.Identity.Timeout),
		authz:         authz.NewMiddleware(deps.Enforcer, writeError),
		startTime:     time.Now(),
	}
}

// SetupChi builds the route table.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.RequestTimeout(router.cfg.Server.RequestTimeout))

	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	// ========================
	// Operational Endpoints
	// ========================
	r.Get("/health", handle(router.Health))
	r.Get("/health/ready", handle(router.HealthReady))
	r.Handle("/metrics", promhttp.Handler())

	// Presigned reads carry their own token instead of a bearer credential.
	r.Get("/objects/*", handle(router.ServeObject))

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
	))

	// ========================
	// API
	// ========================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())

		// Account creation and login happen before a token exists.
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handle(router.Register))
			r.Post("/login", handle(router.Login))
			r.Post("/validate", handle(router.ValidateToken))
			r.With(router.authn.Middleware).Get("/profile", handle(router.Profile))
		})

		r.Group(func(r chi.Router) {
			r.Use(router.authn.Middleware)

			r.Route("/images", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(router.authz.Require(authz.ResourceImages, authz.ActionWrite))
					r.Post("/", handle(router.UploadImage))
					r.Post("/upload", handle(router.UploadImage))
				})

				r.Group(func(r chi.Router) {
					r.Use(router.authz.Require(authz.ResourceImages, authz.ActionRead))
					r.Get("/", handle(router.ListImages))
					r.Get("/list", handle(router.ListImages))
					r.Get("/{id}", handle(router.GetImage))
				})

				r.Group(func(r chi.Router) {
					r.Use(router.authz.Require(authz.ResourceImages, authz.ActionDelete))
					r.Delete("/{id}", handle(router.DeleteImage))
					r.Delete("/delete/{id}", handle(router.DeleteImage))
				})
			})

			r.With(router.authz.Require(authz.ResourceImages, authz.ActionWrite)).
				Post("/image/process", handle(router.ProcessImage))

			r.Route("/ecommerce", func(r chi.Router) {
				read := router.authz.Require(authz.ResourceProducts, authz.ActionRead)
				write := router.authz.Require(authz.ResourceProducts, authz.ActionWrite)
				imageWrite := router.authz.Require(authz.ResourceImages, authz.ActionWrite)

				r.Route("/products", func(r chi.Router) {
					r.With(read).Get("/", handle(router.ListProducts))
					r.With(write).Post("/", handle(router.CreateProduct))
					r.With(read).Get("/statistics", handle(router.ProductStatistics))
					r.With(read, router.authz.Require(authz.ResourceImages, authz.ActionRead)).
						Post("/integrate", handle(router.IntegrateProducts))
					r.With(write, imageWrite).Post("/with-image", handle(router.CreateProductWithImage))

					r.With(read).Get("/{id}", handle(router.GetProduct))
					r.With(write).Put("/{id}", handle(router.UpdateProduct))
					r.With(write).Delete("/{id}", handle(router.DeleteProduct))
					r.With(read).Get("/{id}/enriched", handle(router.EnrichedProduct))
					r.With(write, imageWrite).Put("/{id}/enhance-image", handle(router.EnhanceProductImage))
				})

				r.With(router.authz.Require(authz.ResourceOrders, authz.ActionRead)).
					Get("/orders", handle(router.Orders))
			})
		})
	})

	return r
}
