// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package api

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/clients"
	"github.com/tomtom215/stox-gateway/internal/commerce"
	"github.com/tomtom215/stox-gateway/internal/validation"
)

// ListProducts pages through the commerce catalog.
//
// @Summary List products
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size, at most 100" default(20)
// @Success 200 {object} clients.ProductPage
// @Failure 400 {object} ErrorEnvelope
// @Router /api/v1/ecommerce/products [get]
func (router *Router) ListProducts(w http.ResponseWriter, r *http.Request) error {
	page, pageSize, err := parsePagination(r)
	if err != nil {
		return err
	}

	out, err := router.deps.Commerce.ListProducts(r.Context(), page, pageSize)
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusOK, out)
	return nil
}

// @Summary Get a product
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product id"
// @Success 200 {object} clients.Product
// @Failure 404 {object} ErrorEnvelope
// @Router /api/v1/ecommerce/products/{id} [get]
func (router *Router) GetProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	out, err := router.deps.Commerce.GetProduct(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusOK, out)
	return nil
}

// @Summary Create a product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body clients.ProductInput true "Product"
// @Success 201 {object} clients.Product
// @Failure 400 {object} ErrorEnvelope
// @Router /api/v1/ecommerce/products [post]
func (router *Router) CreateProduct(w http.ResponseWriter, r *http.Request) error {
	var in clients.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		return err
	}
	if err := validation.Validate(in); err != nil {
		return err
	}

	out, err := router.deps.Commerce.CreateProduct(r.Context(), in)
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusCreated, out)
	return nil
}

// @Summary Update a product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product id"
// @Param body body clients.ProductInput true "Product"
// @Success 200 {object} clients.Product
// @Failure 400 {object} ErrorEnvelope
// @Failure 404 {object} ErrorEnvelope
// @Router /api/v1/ecommerce/products/{id} [put]
func (router *Router) UpdateProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	var in clients.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		return err
	}
	if err := validation.Validate(in); err != nil {
		return err
	}

	out, err := router.deps.Commerce.UpdateProduct(r.Context(), id, in)
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusOK, out)
	return nil
}

// @Summary Delete a product
// @Tags products
// @Security BearerAuth
// @Param id path string true "Product id"
// @Success 204
// @Failure 404 {object} ErrorEnvelope
// @Router /api/v1/ecommerce/products/{id} [delete]
func (router *Router) DeleteProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}
	if err := router.deps.Commerce.DeleteProduct(r.Context(), id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// @Summary Catalog statistics
// @Tags products
// @Produce json
// @Security BearerAuth
// @Success 200 {object} clients.ProductStatistics
// @Router /api/v1/ecommerce/products/statistics [get]
func (router *Router) ProductStatistics(w http.ResponseWriter, r *http.Request) error {
	out, err := router.deps.Commerce.Statistics(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusOK, out)
	return nil
}

// Orders lists orders for the caller's products.
//
// @Summary List orders for the caller's products
// @Tags products
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /api/v1/ecommerce/orders [get]
func (router *Router) Orders(w http.ResponseWriter, r *http.Request) error {
	p, err := principal(r)
	if err != nil {
		return err
	}

	orders, err := router.deps.Commerce.Orders(r.Context(), p.SubjectID)
	if err != nil {
		return err
	}
	if orders == nil {
		orders = []clients.Order{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"orders": orders, "total": len(orders)})
	return nil
}

// EnrichedProduct returns a product with its images resolved. Image
// failures degrade the response instead of failing it.
//
// @Summary Get a product with its images resolved
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product id"
// @Success 200 {object} commerce.EnrichedProduct
// @Failure 404 {object} ErrorEnvelope
// @Router /api/v1/ecommerce/products/{id}/enriched [get]
func (router *Router) EnrichedProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	out, err := router.deps.Aggregator.ProductWithImages(r.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusOK, out)
	return nil
}

// IntegrateProducts swaps product images for the caller's uploads where
// they match.
//
// @Summary Attach the caller's uploads to products
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body commerce.IntegrateRequest false "Products to integrate"
// @Success 200 {object} commerce.IntegrationResult
// @Router /api/v1/ecommerce/products/integrate [post]
func (router *Router) IntegrateProducts(w http.ResponseWriter, r *http.Request) error {
	p, err := principal(r)
	if err != nil {
		return err
	}

	var req commerce.IntegrateRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			return err
		}
	}
	if err := validation.Validate(req); err != nil {
		return err
	}

	out, err := router.deps.Aggregator.Integrate(r.Context(), p.SubjectID, req)
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusOK, out)
	return nil
}

// CreateProductWithImage creates a product from the "product" form field
// (ProductInput JSON) with the enhanced "image" part as its primary image.
// An enhancement failure falls back to the original image.
//
// @Summary Create a product with an enhanced image
// @Tags products
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string true "Client key for the image upload"
// @Param product formData string true "Product as JSON"
// @Param image formData file true "JPEG, PNG or WebP image"
// @Success 201 {object} commerce.ProductImageResult
// @Failure 400 {object} ErrorEnvelope
// @Failure 409 {object} ErrorEnvelope
// @Failure 502 {object} ErrorEnvelope
// @Router /api/v1/ecommerce/products/with-image [post]
func (router *Router) CreateProductWithImage(w http.ResponseWriter, r *http.Request) error {
	p, err := principal(r)
	if err != nil {
		return err
	}

	defer cleanupMultipart(r)
	img, err := router.readImageForm(w, r)
	if err != nil {
		return err
	}

	raw := strings.TrimSpace(r.FormValue("product"))
	if raw == "" {
		return apierr.Validation(`multipart field "product" is required`)
	}
	var in clients.ProductInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return apierr.Validation(`multipart field "product" must be a JSON object`)
	}
	if err := validation.Validate(in); err != nil {
		return err
	}

	out, err := router.deps.Enhancer.CreateWithImage(r.Context(), in, router.imageFile(r, p.SubjectID, img))
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusCreated, out)
	return nil
}

// EnhanceProductImage replaces a product's images with the enhanced
// upload. Unlike CreateProductWithImage, enhancement failure fails the
// request.
//
// @Summary Replace a product image with an enhanced upload
// @Tags products
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product id"
// @Param Idempotency-Key header string true "Client key for the image upload"
// @Param image formData file true "JPEG, PNG or WebP image"
// @Param productName formData string false "Defaults to the product title"
// @Success 200 {object} commerce.ProductImageResult
// @Failure 400 {object} ErrorEnvelope
// @Failure 404 {object} ErrorEnvelope
// @Failure 502 {object} ErrorEnvelope
// @Router /api/v1/ecommerce/products/{id}/enhance-image [put]
func (router *Router) EnhanceProductImage(w http.ResponseWriter, r *http.Request) error {
	p, err := principal(r)
	if err != nil {
		return err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	defer cleanupMultipart(r)
	img, err := router.readImageForm(w, r)
	if err != nil {
		return err
	}

	name := formValue(r, "productName", "product_name")
	out, err := router.deps.Enhancer.EnhanceProductImage(r.Context(), id, name, router.imageFile(r, p.SubjectID, img))
	if err != nil {
		return err
	}
	writeJSON(w, r, http.StatusOK, out)
	return nil
}

func (router *Router) imageFile(r *http.Request, ownerID string, img *imageForm) commerce.ImageFile {
	return commerce.ImageFile{
		OwnerID:        ownerID,
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
		FileName:       img.fileName,
		ContentType:    img.contentType,
		Data:           img.data,
	}
}
