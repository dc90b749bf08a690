// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/stox-gateway/internal/backend"
)

const commerceProductsPath = "/api/v1/external/products"

type Product struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Price       float64        `json:"price"`
	Stock       int            `json:"stock"`
	IsActive    bool           `json:"isActive"`
	Status      string         `json:"status"`
	CategoryID  string         `json:"categoryId"`
	SellerID    string         `json:"sellerId"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Images      []ProductImage `json:"images"`
}

// ProductImage references an image. ImageID, when set, is the image
// backend's registration id.
type ProductImage struct {
	ID        string `json:"id"`
	ImageID   string `json:"imageId,omitempty"`
	ImageURL  string `json:"imageUrl"`
	IsPrimary bool   `json:"isPrimary"`
	AltText   string `json:"altText"`
}

type ProductInput struct {
	Title       string              `json:"title" validate:"required,max=200"`
	Description string              `json:"description" validate:"max=5000"`
	Price       float64             `json:"price" validate:"gt=0"`
	Stock       int                 `json:"stock" validate:"gte=0"`
	CategoryID  string              `json:"categoryId" validate:"omitempty,max=64"`
	Images      []ProductImageInput `json:"images,omitempty" validate:"max=20,dive"`
}

type ProductImageInput struct {
	ImageURL  string `json:"imageUrl" validate:"required,url"`
	IsPrimary bool   `json:"isPrimary"`
	AltText   string `json:"altText" validate:"max=200"`
}

type ProductPage struct {
	Products   []Product `json:"products"`
	TotalCount int       `json:"totalCount"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalPages int       `json:"totalPages"`
}

type ProductStatistics struct {
	TotalProducts        int     `json:"totalProducts"`
	ActiveProducts       int     `json:"activeProducts"`
	InactiveProducts     int     `json:"inactiveProducts"`
	DraftProducts        int     `json:"draftProducts"`
	ActiveStatusProducts int     `json:"activeStatusProducts"`
	BlockedProducts      int     `json:"blockedProducts"`
	TotalValue           float64 `json:"totalValue"`
}

type Order struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	CustomerID  string    `json:"customerId"`
	Status      string    `json:"status"`
	OrderDate   time.Time `json:"orderDate"`
	Product     *Product  `json:"product,omitempty"`
}

// Commerce is the external commerce backend client.
type Commerce struct {
	src HandleSource
}

func NewCommerce(src HandleSource) *Commerce {
	return &Commerce{src: src}
}

func (c *Commerce) ListProducts(ctx context.Context, page, pageSize int) (*ProductPage, error) {
	var out ProductPage
	err := call(ctx, c.src, ServiceCommerce, backend.Request{
		Path: commerceProductsPath,
		Query: url.Values{
			"page":     {strconv.Itoa(page)},
			"pageSize": {strconv.Itoa(pageSize)},
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.TotalPages == 0 && pageSize > 0 {
		out.TotalPages = (out.TotalCount + pageSize - 1) / pageSize
	}
	return &out, nil
}

func (c *Commerce) GetProduct(ctx context.Context, id string) (*Product, error) {
	var out Product
	if err := call(ctx, c.src, ServiceCommerce, backend.Request{
		Path: commerceProductsPath + "/" + url.PathEscape(id),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Commerce) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	var out Product
	if err := call(ctx, c.src, ServiceCommerce, backend.Request{
		Method: http.MethodPost,
		Path:   commerceProductsPath,
		Body:   in,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Commerce) UpdateProduct(ctx context.Context, id string, in ProductInput) (*Product, error) {
	var out Product
	if err := call(ctx, c.src, ServiceCommerce, backend.Request{
		Method: http.MethodPut,
		Path:   commerceProductsPath + "/" + url.PathEscape(id),
		Body:   in,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Commerce) DeleteProduct(ctx context.Context, id string) error {
	return call(ctx, c.src, ServiceCommerce, backend.Request{
		Method: http.MethodDelete,
		Path:   commerceProductsPath + "/" + url.PathEscape(id),
	}, nil)
}

func (c *Commerce) Statistics(ctx context.Context) (*ProductStatistics, error) {
	var out ProductStatistics
	if err := call(ctx, c.src, ServiceCommerce, backend.Request{
		Path: commerceProductsPath + "/statistics",
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Orders lists the orders placed against sellerID's products.
func (c *Commerce) Orders(ctx context.Context, sellerID string) ([]Order, error) {
	var out struct {
		Data []Order `json:"data"`
	}
	if err := call(ctx, c.src, ServiceCommerce, backend.Request{
		Path:  "/api/v1/external/orders",
		Query: url.Values{"sellerId": {sellerID}},
	}, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}
