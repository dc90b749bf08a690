// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package commerce

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/clients"
	"github.com/tomtom215/stox-gateway/internal/metrics"
)

type fakeProducts struct {
	products map[string]clients.Product
	err      error
	listErr  error
}

func (f *fakeProducts) GetProduct(ctx context.Context, id string) (*clients.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, apierr.NotFound("product not found")
	}
	return &p, nil
}

func (f *fakeProducts) ListProducts(ctx context.Context, page, pageSize int) (*clients.ProductPage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := &clients.ProductPage{Page: page, PageSize: pageSize}
	for _, id := range []string{"p1", "p2"} {
		if p, ok := f.products[id]; ok {
			out.Products = append(out.Products, p)
		}
	}
	out.TotalCount = len(out.Products)
	return out, nil
}

type fakeImages struct {
	objects   map[string]clients.ObjectMetadata
	failIDs   map[string]bool
	listErr   error
	resolves  atomic.Int32
	listCalls atomic.Int32
}

func (f *fakeImages) ResolveObject(ctx context.Context, id string) (*clients.ObjectMetadata, error) {
	f.resolves.Add(1)
	if f.failIDs[id] {
		return nil, apierr.Unavailable("images", errors.New("down"))
	}
	md, ok := f.objects[id]
	if !ok {
		return nil, apierr.NotFound("image not found")
	}
	return &md, nil
}

func (f *fakeImages) ListObjects(ctx context.Context, ownerID string) ([]clients.ObjectMetadata, error) {
	f.listCalls.Add(1)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []clients.ObjectMetadata
	for _, md := range f.objects {
		if md.OwnerID == ownerID {
			out = append(out, md)
		}
	}
	return out, nil
}

type testURLs struct{}

func (testURLs) URL(key string) string { return "https://cdn.test/" + key }

func fixtures() (*fakeProducts, *fakeImages) {
	products := &fakeProducts{products: map[string]clients.Product{
		"p1": {
			ID:    "p1",
			Title: "Desk Lamp",
			Images: []clients.ProductImage{
				{ID: "i1", ImageID: "img-1", ImageURL: "https://shop/orig1.jpg", IsPrimary: true},
				{ID: "i2", ImageID: "img-2", ImageURL: "https://shop/orig2.jpg"},
				{ID: "i3", ImageURL: "https://shop/external.jpg"},
			},
		},
		"p2": {
			ID:     "p2",
			Title:  "Chair",
			Images: []clients.ProductImage{{ID: "i4", ImageURL: "https://shop/chair.jpg", IsPrimary: true}},
		},
	}}
	images := &fakeImages{objects: map[string]clients.ObjectMetadata{
		"img-1": {ID: "img-1", Key: "images/u1/a.png", OwnerID: "u1", EnhancedKey: "enhanced/u1/a.png"},
		"img-2": {ID: "img-2", Key: "images/u1/b.png", OwnerID: "u1"},
		"img-3": {ID: "img-3", Key: "images/u1/c.png", OwnerID: "u1", ProductName: "chair"},
	}}
	return products, images
}

func TestProductWithImages(t *testing.T) {
	products, images := fixtures()
	a := NewAggregator(products, images, testURLs{})

	got, err := a.ProductWithImages(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ProductWithImages: %v", err)
	}

	if !got.ImagesAvailable {
		t.Error("ImagesAvailable = false")
	}
	if len(got.Images) != 3 {
		t.Fatalf("images = %d", len(got.Images))
	}
	if img := got.Images[0]; img.ImageStatus != ImageAvailable ||
		img.DeliveryURL != "https://cdn.test/images/u1/a.png" ||
		img.EnhancedURL != "https://cdn.test/enhanced/u1/a.png" {
		t.Errorf("image 0 = %+v", img)
	}
	if img := got.Images[1]; img.ImageStatus != ImageAvailable || img.EnhancedURL != "" {
		t.Errorf("image 1 = %+v", img)
	}
	if img := got.Images[2]; img.ImageStatus != ImageUnlinked {
		t.Errorf("image 2 = %+v", img)
	}
	if images.resolves.Load() != 2 {
		t.Errorf("resolves = %d, want 2", images.resolves.Load())
	}
}

func TestProductWithImages_DegradesOnImageFailure(t *testing.T) {
	products, images := fixtures()
	images.failIDs = map[string]bool{"img-2": true}
	a := NewAggregator(products, images, testURLs{})

	before := testutil.ToFloat64(metrics.AggregationDegradedTotal.WithLabelValues("product_with_images"))

	got, err := a.ProductWithImages(context.Background(), "p1")
	if err != nil {
		t.Fatalf("image failure must not fail the request: %v", err)
	}
	if got.ImagesAvailable {
		t.Error("ImagesAvailable = true after a failed resolution")
	}
	if img := got.Images[1]; img.ImageStatus != ImageUnavailable || img.EnhancedURL != "" || img.DeliveryURL != "" {
		t.Errorf("failed image = %+v", img)
	}
	if got.Images[0].ImageStatus != ImageAvailable {
		t.Errorf("healthy image = %+v", got.Images[0])
	}
	if d := testutil.ToFloat64(metrics.AggregationDegradedTotal.WithLabelValues("product_with_images")) - before; d != 1 {
		t.Errorf("degraded delta = %v", d)
	}
}

func TestProductWithImages_PrimaryFailurePropagates(t *testing.T) {
	products, images := fixtures()
	products.err = apierr.Unavailable("commerce", errors.New("down"))
	a := NewAggregator(products, images, testURLs{})

	_, err := a.ProductWithImages(context.Background(), "p1")
	if apierr.StatusOf(err) != http.StatusBadGateway {
		t.Fatalf("err = %v, want 502", err)
	}
	if images.resolves.Load() != 0 {
		t.Error("images resolved after primary failure")
	}
}

func TestIntegrate(t *testing.T) {
	products, images := fixtures()
	a := NewAggregator(products, images, testURLs{})

	res, err := a.Integrate(context.Background(), "u1", IntegrateRequest{})
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	if res.Total != 2 || res.Enhanced != 2 || !res.ImagesAvailable {
		t.Errorf("result = %+v", res)
	}

	lamp := res.Products[0]
	if lamp.EnhancementStatus != EnhancementAI || lamp.EnhancedImageURL != "https://cdn.test/enhanced/u1/a.png" {
		t.Errorf("lamp = %+v", lamp)
	}
	if lamp.Images[0].ImageURL != lamp.EnhancedImageURL {
		t.Errorf("primary image not replaced: %+v", lamp.Images[0])
	}
	// The source product must not be modified.
	if products.products["p1"].Images[0].ImageURL != "https://shop/orig1.jpg" {
		t.Error("source product mutated")
	}

	chair := res.Products[1]
	if chair.MatchedImageID != "img-3" || chair.EnhancedImageURL != "https://cdn.test/images/u1/c.png" {
		t.Errorf("chair matched by name = %+v", chair)
	}
}

func TestIntegrate_ImageListFailure(t *testing.T) {
	products, images := fixtures()
	images.listErr = apierr.Timeout("images", context.DeadlineExceeded)
	a := NewAggregator(products, images, testURLs{})

	res, err := a.Integrate(context.Background(), "u1", IntegrateRequest{ProductIDs: []string{"p1", "p2"}})
	if err != nil {
		t.Fatalf("Integrate: %v", err)
	}
	if res.ImagesAvailable || res.Enhanced != 0 {
		t.Errorf("result = %+v", res)
	}
	for _, p := range res.Products {
		if p.EnhancementStatus != EnhancementFallback {
			t.Errorf("%s status = %s", p.ID, p.EnhancementStatus)
		}
	}
}

func TestIntegrate_CommerceFailure(t *testing.T) {
	products, images := fixtures()
	products.listErr = apierr.Unavailable("commerce", errors.New("down"))
	a := NewAggregator(products, images, testURLs{})

	if _, err := a.Integrate(context.Background(), "u1", IntegrateRequest{}); apierr.StatusOf(err) != http.StatusBadGateway {
		t.Errorf("err = %v, want 502", err)
	}
}

func TestIntegrate_UnknownProduct(t *testing.T) {
	products, images := fixtures()
	a := NewAggregator(products, images, testURLs{})

	_, err := a.Integrate(context.Background(), "u1", IntegrateRequest{ProductIDs: []string{"p1", "missing"}})
	if apierr.StatusOf(err) != http.StatusNotFound {
		t.Errorf("err = %v, want 404", err)
	}
}
