// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package commerce

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/tomtom215/stox-gateway/internal/clients"
	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/upload"
	"github.com/tomtom215/stox-gateway/internal/validation"
)

// ImageProcessor enhances images. *clients.Images implements it.
type ImageProcessor interface {
	ProcessImage(ctx context.Context, in clients.ProcessInput) (*clients.ProcessedImage, error)
}

// Uploader stores an image through the upload state machine.
// *upload.Orchestrator implements it.
type Uploader interface {
	Execute(ctx context.Context, req upload.Request) (*upload.Result, error)
}

// ProductWriter is the write side of the commerce backend.
type ProductWriter interface {
	GetProduct(ctx context.Context, id string) (*clients.Product, error)
	CreateProduct(ctx context.Context, in clients.ProductInput) (*clients.Product, error)
	UpdateProduct(ctx context.Context, id string, in clients.ProductInput) (*clients.Product, error)
}

// ImageFile is an image received with a product request.
type ImageFile struct {
	OwnerID        string
	IdempotencyKey string
	FileName       string
	ContentType    string
	Data           []byte
}

// ProductImageResult is a product written with a freshly uploaded image.
type ProductImageResult struct {
	Product           *clients.Product `json:"product"`
	Image             *upload.Result   `json:"image"`
	EnhancementStatus string           `json:"enhancementStatus"`
}

// Enhancer attaches enhanced images to commerce products. The image goes
// through the image backend, then the upload orchestrator, and its
// delivery URL becomes the product's primary image.
type Enhancer struct {
	processor ImageProcessor
	uploads   Uploader
	products  ProductWriter
}

func NewEnhancer(processor ImageProcessor, uploads Uploader, products ProductWriter) *Enhancer {
	return &Enhancer{processor: processor, uploads: uploads, products: products}
}

// CreateWithImage creates a product whose primary image is the enhanced
// version of file. If enhancement fails the original bytes are uploaded
// instead and the product is still created.
func (e *Enhancer) CreateWithImage(ctx context.Context, in clients.ProductInput, file ImageFile) (*ProductImageResult, error) {
	if err := validation.Validate(in); err != nil {
		return nil, err
	}

	res, status, err := e.storeImage(ctx, file, in.Title, true)
	if err != nil {
		return nil, err
	}

	in.Images = append(in.Images, primaryImage(res.ObjectURL, in.Title, status))
	for i := range in.Images[:len(in.Images)-1] {
		in.Images[i].IsPrimary = false
	}

	product, err := e.products.CreateProduct(ctx, in)
	if err != nil {
		return nil, err
	}
	return &ProductImageResult{Product: product, Image: res, EnhancementStatus: status}, nil
}

// EnhanceProductImage replaces the images of product id with the enhanced
// version of file. Enhancement failure fails the request.
func (e *Enhancer) EnhanceProductImage(ctx context.Context, id string, productName string, file ImageFile) (*ProductImageResult, error) {
	current, err := e.products.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if productName == "" {
		productName = current.Title
	}

	res, status, err := e.storeImage(ctx, file, productName, false)
	if err != nil {
		return nil, err
	}

	in := clients.ProductInput{
		Title:       current.Title,
		Description: current.Description,
		Price:       current.Price,
		Stock:       current.Stock,
		CategoryID:  current.CategoryID,
		Images:      []clients.ProductImageInput{primaryImage(res.ObjectURL, productName, status)},
	}
	product, err := e.products.UpdateProduct(ctx, id, in)
	if err != nil {
		return nil, err
	}
	return &ProductImageResult{Product: product, Image: res, EnhancementStatus: status}, nil
}

// storeImage enhances file and uploads the result. With fallback set, an
// enhancement failure uploads the original bytes instead.
func (e *Enhancer) storeImage(ctx context.Context, file ImageFile, productName string, fallback bool) (*upload.Result, string, error) {
	req := upload.Request{
		OwnerID:        file.OwnerID,
		IdempotencyKey: file.IdempotencyKey,
		FileName:       file.FileName,
		ContentType:    file.ContentType,
		ProductName:    productName,
		Data:           file.Data,
	}
	status := EnhancementAI

	processed, err := e.processor.ProcessImage(ctx, clients.ProcessInput{
		Data:        file.Data,
		MimeType:    file.ContentType,
		ProductName: productName,
	})
	switch {
	case err == nil:
		req.Data = processed.Data
		if processed.MimeType != file.ContentType {
			req.ContentType = processed.MimeType
			req.FileName = renameForType(file.FileName, processed.MimeType)
		}
	case fallback:
		logging.Ctx(ctx).Warn().Err(err).Str("product_name", productName).Msg("image enhancement failed, uploading original")
		status = EnhancementFallback
	default:
		return nil, "", err
	}

	res, err := e.uploads.Execute(ctx, req)
	if err != nil {
		return nil, "", err
	}
	return res, status, nil
}

func primaryImage(url, productName, status string) clients.ProductImageInput {
	alt := productName
	if status == EnhancementAI {
		alt += " - AI Enhanced"
	}
	return clients.ProductImageInput{ImageURL: url, IsPrimary: true, AltText: alt}
}

// renameForType swaps the extension of name to match contentType so the
// upload validation accepts the processed bytes.
func renameForType(name, contentType string) string {
	ext := ".jpg"
	switch strings.ToLower(contentType) {
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	}
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
