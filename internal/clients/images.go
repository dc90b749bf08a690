// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package clients

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/backend"
)

// ObjectRegistration records a stored object with the image-metadata backend.
type ObjectRegistration struct {
	Key         string `json:"key"`
	OwnerID     string `json:"ownerId"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	FileName    string `json:"fileName,omitempty"`
	ProductName string `json:"productName,omitempty"`
}

// ObjectMetadata is the image backend's view of a registered object.
type ObjectMetadata struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	OwnerID     string    `json:"ownerId"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	FileName    string    `json:"fileName,omitempty"`
	ProductName string    `json:"productName,omitempty"`
	EnhancedKey string    `json:"enhancedKey,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Images is the image-metadata backend client.
type Images struct {
	src HandleSource
}

func NewImages(src HandleSource) *Images {
	return &Images{src: src}
}

// RegisterObject records key as owned by reg.OwnerID and returns the
// registration id.
func (c *Images) RegisterObject(ctx context.Context, reg ObjectRegistration) (string, error) {
	var resp struct {
		RegistrationID string `json:"registrationId"`
	}
	err := call(ctx, c.src, ServiceImages, backend.Request{
		Method: http.MethodPost,
		Path:   "/v1/objects",
		Body:   reg,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.RegistrationID, nil
}

// ResolveObject returns the metadata for a registration id.
func (c *Images) ResolveObject(ctx context.Context, id string) (*ObjectMetadata, error) {
	var md ObjectMetadata
	err := call(ctx, c.src, ServiceImages, backend.Request{
		Path: "/v1/objects/" + url.PathEscape(id),
	}, &md)
	if err != nil {
		return nil, err
	}
	return &md, nil
}

// ListObjects returns every object registered to ownerID.
func (c *Images) ListObjects(ctx context.Context, ownerID string) ([]ObjectMetadata, error) {
	var resp struct {
		Objects []ObjectMetadata `json:"objects"`
	}
	err := call(ctx, c.src, ServiceImages, backend.Request{
		Path:  "/v1/objects",
		Query: url.Values{"ownerId": {ownerID}},
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Objects, nil
}

// UnregisterObject removes a registration.
func (c *Images) UnregisterObject(ctx context.Context, id string) error {
	return call(ctx, c.src, ServiceImages, backend.Request{
		Method: http.MethodDelete,
		Path:   "/v1/objects/" + url.PathEscape(id),
	}, nil)
}

// ProcessInput is an image sent to the image backend for enhancement.
// Data travels base64-encoded in the JSON body.
type ProcessInput struct {
	Data        []byte `json:"imageData" validate:"required"`
	MimeType    string `json:"mimeType" validate:"required,oneof=image/jpeg image/jpg image/png image/webp"`
	ProductName string `json:"productName,omitempty" validate:"max=200"`
}

// ProcessedImage is the enhanced output of ProcessImage.
type ProcessedImage struct {
	Data     []byte `json:"processedImageData"`
	MimeType string `json:"mimeType"`
	Message  string `json:"message,omitempty"`
}

// ProcessImage asks the image backend to enhance an image. Enhancement is
// slow, so callers should give ctx a generous deadline.
func (c *Images) ProcessImage(ctx context.Context, in ProcessInput) (*ProcessedImage, error) {
	var out ProcessedImage
	if err := call(ctx, c.src, ServiceImages, backend.Request{
		Method: http.MethodPost,
		Path:   "/v1/images/process",
		Body:   in,
	}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, apierr.Unavailable(ServiceImages, errors.New("empty processed image"))
	}
	if out.MimeType == "" {
		out.MimeType = in.MimeType
	}
	return &out, nil
}
