// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package commerce

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/clients"
	"github.com/tomtom215/stox-gateway/internal/upload"
)

type fakeProcessor struct {
	out   *clients.ProcessedImage
	err   error
	calls int
}

func (f *fakeProcessor) ProcessImage(ctx context.Context, in clients.ProcessInput) (*clients.ProcessedImage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type recordingUploads struct {
	requests []upload.Request
	err      error
}

func (f *recordingUploads) Execute(ctx context.Context, req upload.Request) (*upload.Result, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &upload.Result{
		ObjectURL:        "https://cdn.test/" + req.FileName,
		RegistrationID:   "reg-1",
		TransactionState: upload.StateCompleted,
	}, nil
}

type writableProducts struct {
	current *clients.Product
	created *clients.ProductInput
	updated *clients.ProductInput
}

func (f *writableProducts) GetProduct(ctx context.Context, id string) (*clients.Product, error) {
	if f.current == nil || f.current.ID != id {
		return nil, apierr.NotFound("product not found")
	}
	p := *f.current
	return &p, nil
}

func (f *writableProducts) CreateProduct(ctx context.Context, in clients.ProductInput) (*clients.Product, error) {
	f.created = &in
	return &clients.Product{ID: "p-new", Title: in.Title}, nil
}

func (f *writableProducts) UpdateProduct(ctx context.Context, id string, in clients.ProductInput) (*clients.Product, error) {
	f.updated = &in
	return &clients.Product{ID: id, Title: in.Title}, nil
}

func lampFile() ImageFile {
	return ImageFile{
		OwnerID:        "seller-1",
		IdempotencyKey: "k1",
		FileName:       "lamp.jpg",
		ContentType:    "image/jpeg",
		Data:           []byte("original"),
	}
}

func TestCreateWithImage_Enhanced(t *testing.T) {
	processor := &fakeProcessor{out: &clients.ProcessedImage{Data: []byte("enhanced"), MimeType: "image/png"}}
	uploads := &recordingUploads{}
	products := &writableProducts{}
	e := NewEnhancer(processor, uploads, products)

	in := clients.ProductInput{
		Title: "Desk Lamp",
		Price: 20,
		Images: []clients.ProductImageInput{
			{ImageURL: "https://img.test/old.jpg", IsPrimary: true},
		},
	}
	out, err := e.CreateWithImage(context.Background(), in, lampFile())
	if err != nil {
		t.Fatalf("CreateWithImage: %v", err)
	}
	if out.EnhancementStatus != EnhancementAI || out.Product.ID != "p-new" {
		t.Errorf("result = %+v", out)
	}

	req := uploads.requests[0]
	if string(req.Data) != "enhanced" || req.ContentType != "image/png" || req.FileName != "lamp.png" {
		t.Errorf("upload request = %+v", req)
	}
	if req.IdempotencyKey != "k1" || req.OwnerID != "seller-1" || req.ProductName != "Desk Lamp" {
		t.Errorf("upload identity = %+v", req)
	}

	images := products.created.Images
	if len(images) != 2 {
		t.Fatalf("images = %+v", images)
	}
	if images[0].IsPrimary {
		t.Error("previous primary image kept its flag")
	}
	last := images[1]
	if !last.IsPrimary || last.ImageURL != "https://cdn.test/lamp.png" || last.AltText != "Desk Lamp - AI Enhanced" {
		t.Errorf("primary image = %+v", last)
	}
}

func TestCreateWithImage_FallsBackToOriginal(t *testing.T) {
	processor := &fakeProcessor{err: apierr.Unavailable("images", errors.New("model offline"))}
	uploads := &recordingUploads{}
	products := &writableProducts{}
	e := NewEnhancer(processor, uploads, products)

	out, err := e.CreateWithImage(context.Background(), clients.ProductInput{Title: "Desk Lamp", Price: 20}, lampFile())
	if err != nil {
		t.Fatalf("CreateWithImage: %v", err)
	}
	if out.EnhancementStatus != EnhancementFallback {
		t.Errorf("status = %q", out.EnhancementStatus)
	}
	req := uploads.requests[0]
	if string(req.Data) != "original" || req.FileName != "lamp.jpg" {
		t.Errorf("upload request = %+v", req)
	}
	if alt := products.created.Images[0].AltText; alt != "Desk Lamp" {
		t.Errorf("alt = %q", alt)
	}
}

func TestCreateWithImage_InvalidProductSkipsUpload(t *testing.T) {
	processor := &fakeProcessor{}
	uploads := &recordingUploads{}
	e := NewEnhancer(processor, uploads, &writableProducts{})

	_, err := e.CreateWithImage(context.Background(), clients.ProductInput{Price: 20}, lampFile())
	if !apierr.Is(err, apierr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if processor.calls != 0 || len(uploads.requests) != 0 {
		t.Error("invalid product reached the image pipeline")
	}
}

func TestCreateWithImage_UploadFailureSkipsCreate(t *testing.T) {
	uploads := &recordingUploads{err: apierr.Conflict("idempotency key reused with a different payload")}
	products := &writableProducts{}
	e := NewEnhancer(&fakeProcessor{out: &clients.ProcessedImage{Data: []byte("x"), MimeType: "image/jpeg"}}, uploads, products)

	_, err := e.CreateWithImage(context.Background(), clients.ProductInput{Title: "Desk Lamp", Price: 20}, lampFile())
	if !apierr.Is(err, apierr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if products.created != nil {
		t.Error("product created without an image")
	}
}

func TestEnhanceProductImage(t *testing.T) {
	products := &writableProducts{current: &clients.Product{
		ID: "p1", Title: "Desk Lamp", Description: "Brass", Price: 20, Stock: 4, CategoryID: "c1",
		Images: []clients.ProductImage{{ImageURL: "https://img.test/old.jpg", IsPrimary: true}},
	}}
	uploads := &recordingUploads{}
	e := NewEnhancer(&fakeProcessor{out: &clients.ProcessedImage{Data: []byte("enhanced"), MimeType: "image/jpeg"}}, uploads, products)

	out, err := e.EnhanceProductImage(context.Background(), "p1", "", lampFile())
	if err != nil {
		t.Fatalf("EnhanceProductImage: %v", err)
	}
	if out.EnhancementStatus != EnhancementAI {
		t.Errorf("status = %q", out.EnhancementStatus)
	}
	if uploads.requests[0].ProductName != "Desk Lamp" {
		t.Errorf("product name = %q, want the product title", uploads.requests[0].ProductName)
	}

	got := products.updated
	if got.Title != "Desk Lamp" || got.Description != "Brass" || got.Stock != 4 || got.CategoryID != "c1" {
		t.Errorf("update lost fields: %+v", got)
	}
	if len(got.Images) != 1 || got.Images[0].ImageURL != "https://cdn.test/lamp.jpg" || !got.Images[0].IsPrimary {
		t.Errorf("images = %+v", got.Images)
	}
}

func TestEnhanceProductImage_Failures(t *testing.T) {
	t.Run("unknown product", func(t *testing.T) {
		uploads := &recordingUploads{}
		e := NewEnhancer(&fakeProcessor{}, uploads, &writableProducts{})
		_, err := e.EnhanceProductImage(context.Background(), "missing", "", lampFile())
		if !apierr.Is(err, apierr.KindNotFound) {
			t.Fatalf("err = %v", err)
		}
		if len(uploads.requests) != 0 {
			t.Error("upload ran for an unknown product")
		}
	})

	t.Run("enhancement failure is not masked", func(t *testing.T) {
		uploads := &recordingUploads{}
		products := &writableProducts{current: &clients.Product{ID: "p1", Title: "Desk Lamp"}}
		e := NewEnhancer(&fakeProcessor{err: apierr.Unavailable("images", errors.New("down"))}, uploads, products)
		_, err := e.EnhanceProductImage(context.Background(), "p1", "Lamp", lampFile())
		if !apierr.Is(err, apierr.KindBackendUnavailable) {
			t.Fatalf("err = %v", err)
		}
		if len(uploads.requests) != 0 || products.updated != nil {
			t.Error("failed enhancement still wrote")
		}
	})
}
