// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package commerce combines commerce products with image metadata.
//
// Commerce is the primary backend: if it fails, the request fails. The
// image backend only enriches the response, so its failures degrade the
// result (imageStatus "unavailable", enhancementStatus
// "fallback_original") instead of failing it.
package commerce

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/stox-gateway/internal/clients"
	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/metrics"
)

// Image statuses on enriched products.
const (
	ImageAvailable   = "available"
	ImageUnavailable = "unavailable"
	ImageUnlinked    = "unlinked"
)

// Enhancement statuses on integrated products.
const (
	EnhancementAI       = "ai_enhanced"
	EnhancementFallback = "fallback_original"
)

const defaultFanOut = 8

// ProductSource is the commerce backend. *clients.Commerce implements it.
type ProductSource interface {
	GetProduct(ctx context.Context, id string) (*clients.Product, error)
	ListProducts(ctx context.Context, page, pageSize int) (*clients.ProductPage, error)
}

// ImageSource is the image-metadata backend. *clients.Images implements it.
type ImageSource interface {
	ResolveObject(ctx context.Context, id string) (*clients.ObjectMetadata, error)
	ListObjects(ctx context.Context, ownerID string) ([]clients.ObjectMetadata, error)
}

// URLBuilder maps object keys to delivery URLs. cdn.Invalidator implements it.
type URLBuilder interface {
	URL(key string) string
}

// Aggregator serves the combined product views.
type Aggregator struct {
	products ProductSource
	images   ImageSource
	urls     URLBuilder
	fanOut   int
}

func NewAggregator(products ProductSource, images ImageSource, urls URLBuilder) *Aggregator {
	return &Aggregator{products: products, images: images, urls: urls, fanOut: defaultFanOut}
}

// EnrichedImage is a product image with its resolved delivery URLs.
type EnrichedImage struct {
	clients.ProductImage
	ImageStatus string `json:"imageStatus"`
	DeliveryURL string `json:"deliveryUrl,omitempty"`
	EnhancedURL string `json:"enhancedUrl,omitempty"`
}

// EnrichedProduct is a product whose images were resolved against the
// image backend.
type EnrichedProduct struct {
	clients.Product
	Images          []EnrichedImage `json:"images"`
	ImagesAvailable bool            `json:"imagesAvailable"`
}

// ProductWithImages fetches the product, then resolves its linked images
// in parallel.
func (a *Aggregator) ProductWithImages(ctx context.Context, id string) (*EnrichedProduct, error) {
	p, err := a.products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &EnrichedProduct{
		Product:         *p,
		Images:          make([]EnrichedImage, len(p.Images)),
		ImagesAvailable: true,
	}

	var g errgroup.Group
	g.SetLimit(a.fanOut)
	failed := make([]bool, len(p.Images))

	for i, img := range p.Images {
		out.Images[i] = EnrichedImage{ProductImage: img, ImageStatus: ImageUnlinked}
		if img.ImageID == "" {
			continue
		}
		g.Go(func() error {
			md, err := a.images.ResolveObject(ctx, img.ImageID)
			if err != nil {
				failed[i] = true
				out.Images[i].ImageStatus = ImageUnavailable
				logging.Ctx(ctx).Warn().Err(err).
					Str("product_id", id).
					Str("image_id", img.ImageID).
					Msg("image enrichment unavailable")
				return nil
			}
			out.Images[i].ImageStatus = ImageAvailable
			out.Images[i].DeliveryURL = a.urls.URL(md.Key)
			if md.EnhancedKey != "" {
				out.Images[i].EnhancedURL = a.urls.URL(md.EnhancedKey)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range failed {
		if f {
			out.ImagesAvailable = false
			metrics.AggregationDegradedTotal.WithLabelValues("product_with_images").Inc()
			break
		}
	}
	return out, nil
}

// IntegrateRequest selects the products to integrate. With no ids, the
// first Limit products of the catalogue are used.
type IntegrateRequest struct {
	ProductIDs []string `json:"productIds" validate:"max=100,dive,required"`
	Limit      int      `json:"limit" validate:"gte=0,lte=100"`
}

// IntegratedProduct is a product whose image was swapped for the owner's
// uploaded image where one matches.
type IntegratedProduct struct {
	clients.Product
	EnhancedImageURL  string `json:"enhancedImageUrl,omitempty"`
	EnhancementStatus string `json:"enhancementStatus"`
	MatchedImageID    string `json:"matchedImageId,omitempty"`
}

type IntegrationResult struct {
	Products        []IntegratedProduct `json:"products"`
	Total           int                 `json:"total"`
	Enhanced        int                 `json:"enhanced"`
	ImagesAvailable bool                `json:"imagesAvailable"`
}

// Integrate fetches the products and the owner's images concurrently and
// matches them up. An image matches a product when a product image links
// its registration id, or when its product name equals the product title.
func (a *Aggregator) Integrate(ctx context.Context, ownerID string, req IntegrateRequest) (*IntegrationResult, error) {
	var (
		products []clients.Product
		images   []clients.ObjectMetadata
		imageErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = a.fetchProducts(gctx, req)
		return err
	})
	g.Go(func() error {
		images, imageErr = a.images.ListObjects(gctx, ownerID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &IntegrationResult{
		Products:        make([]IntegratedProduct, len(products)),
		Total:           len(products),
		ImagesAvailable: imageErr == nil,
	}
	if imageErr != nil {
		metrics.AggregationDegradedTotal.WithLabelValues("integrate").Inc()
		logging.Ctx(ctx).Warn().Err(imageErr).Str("owner_id", ownerID).Msg("image list unavailable, using original product images")
	}

	byID, byName := indexImages(images)
	for i, p := range products {
		ip := IntegratedProduct{Product: p, EnhancementStatus: EnhancementFallback}
		if md, ok := matchImage(p, byID, byName); ok {
			key := md.Key
			if md.EnhancedKey != "" {
				key = md.EnhancedKey
			}
			u := a.urls.URL(key)
			ip.EnhancedImageURL = u
			ip.EnhancementStatus = EnhancementAI
			ip.MatchedImageID = md.ID
			ip.Images = replacePrimaryImage(p.Images, md.ID, u)
			res.Enhanced++
		}
		res.Products[i] = ip
	}
	return res, nil
}

func (a *Aggregator) fetchProducts(ctx context.Context, req IntegrateRequest) ([]clients.Product, error) {
	if len(req.ProductIDs) == 0 {
		limit := req.Limit
		if limit <= 0 {
			limit = 20
		}
		page, err := a.products.ListProducts(ctx, 1, limit)
		if err != nil {
			return nil, err
		}
		return page.Products, nil
	}

	out := make([]clients.Product, len(req.ProductIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.fanOut)
	for i, id := range req.ProductIDs {
		g.Go(func() error {
			p, err := a.products.GetProduct(gctx, id)
			if err != nil {
				return err
			}
			out[i] = *p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func indexImages(images []clients.ObjectMetadata) (map[string]clients.ObjectMetadata, map[string]clients.ObjectMetadata) {
	byID := make(map[string]clients.ObjectMetadata, len(images))
	byName := make(map[string]clients.ObjectMetadata, len(images))
	for _, md := range images {
		byID[md.ID] = md
		if md.ProductName != "" {
			byName[strings.ToLower(strings.TrimSpace(md.ProductName))] = md
		}
	}
	return byID, byName
}

func matchImage(p clients.Product, byID, byName map[string]clients.ObjectMetadata) (clients.ObjectMetadata, bool) {
	for _, img := range p.Images {
		if img.ImageID == "" {
			continue
		}
		if md, ok := byID[img.ImageID]; ok {
			return md, true
		}
	}
	md, ok := byName[strings.ToLower(strings.TrimSpace(p.Title))]
	return md, ok
}

// replacePrimaryImage returns a copy of images with the primary (or first)
// image pointing at url. A product without images gets one.
func replacePrimaryImage(images []clients.ProductImage, imageID, url string) []clients.ProductImage {
	if len(images) == 0 {
		return []clients.ProductImage{{ImageID: imageID, ImageURL: url, IsPrimary: true}}
	}
	out := append([]clients.ProductImage(nil), images...)
	idx := 0
	for i, img := range out {
		if img.IsPrimary {
			idx = i
			break
		}
	}
	out[idx].ImageURL = url
	out[idx].ImageID = imageID
	return out
}
