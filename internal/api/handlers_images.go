// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/tomtom215/stox-gateway/internal/apierr"
	"github.com/tomtom215/stox-gateway/internal/clients"
	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/upload"
	"github.com/tomtom215/stox-gateway/internal/validation"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	uploadField = "image"

	// multipartOverhead covers form boundaries and the other fields.
	multipartOverhead = 1 << 20
)

// imageView is an image registration plus its delivery URL. DownloadURL is
// a short-lived presigned link and is only set on single-image reads.
type imageView struct {
	clients.ObjectMetadata
	URL         string `json:"url"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

type imageListResponse struct {
	Images []imageView `json:"images"`
	Total  int         `json:"total"`
}

// UploadImage accepts a multipart upload in the "image" field and runs it
// through the upload orchestrator. The Idempotency-Key header is required.
//
// @Summary Upload an image
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string true "Client key, 1-128 chars of [A-Za-z0-9_-]"
// @Param image formData file true "JPEG, PNG or WebP image"
// @Param productName formData string false "Product the image belongs to"
// @Success 200 {object} upload.Result
// @Failure 400 {object} ErrorEnvelope
// @Failure 409 {object} ErrorEnvelope
// @Failure 502 {object} ErrorEnvelope
// @Router /api/v1/images [post]
func (router *Router) UploadImage(w http.ResponseWriter, r *http.Request) error {
	p, err := principal(r)
	if err != nil {
		return err
	}

	defer cleanupMultipart(r)
	img, err := router.readImageForm(w, r)
	if err != nil {
		return err
	}

	res, err := router.deps.Uploads.Execute(r.Context(), upload.Request{
		OwnerID:        p.SubjectID,
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
		FileName:       img.fileName,
		ContentType:    img.contentType,
		ProductName:    r.FormValue("productName"),
		Data:           img.data,
	})
	if err != nil {
		return err
	}

	// A replay answers exactly like the original request.
	if res.Replayed {
		w.Header().Set(HeaderReplayed, "true")
	}
	writeJSON(w, r, http.StatusOK, res)
	return nil
}

// ProcessImage sends the uploaded image to the image backend for
// enhancement and returns the processed bytes as an attachment. Nothing is
// stored.
//
// @Summary Enhance an image
// @Tags images
// @Accept multipart/form-data
// @Produce image/jpeg,image/png,image/webp
// @Security BearerAuth
// @Param image formData file true "JPEG, PNG or WebP image"
// @Param product_name formData string false "Product name used as an enhancement hint"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorEnvelope
// @Failure 502 {object} ErrorEnvelope
// @Router /api/v1/image/process [post]
func (router *Router) ProcessImage(w http.ResponseWriter, r *http.Request) error {
	defer cleanupMultipart(r)
	img, err := router.readImageForm(w, r)
	if err != nil {
		return err
	}

	mimeType := strings.ToLower(img.contentType)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(img.data)
	}
	in := clients.ProcessInput{
		Data:        img.data,
		MimeType:    mimeType,
		ProductName: formValue(r, "product_name", "productName"),
	}
	if err := validation.Validate(in); err != nil {
		return err
	}

	out, err := router.deps.Processor.ProcessImage(r.Context(), in)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", out.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "processed_"+path.Base(img.fileName)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("processed image write failed")
	}
	return nil
}

// formValue returns the first non-blank form value among names.
func formValue(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(r.FormValue(name)); v != "" {
			return v
		}
	}
	return ""
}

// imageForm is the image part of a multipart request.
type imageForm struct {
	fileName    string
	contentType string
	data        []byte
}

// readImageForm parses a multipart body bounded by the upload size limit
// and reads its "image" part. Callers defer cleanupMultipart.
func (router *Router) readImageForm(w http.ResponseWriter, r *http.Request) (*imageForm, error) {
	maxBytes := router.cfg.Upload.MaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, tooLarge(maxBytes)
		}
		return nil, apierr.Validation("invalid multipart form")
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, apierr.Validationf("multipart field %q is required", uploadField)
	}
	defer func() { _ = file.Close() }()

	data, err := readPart(file, maxBytes)
	if err != nil {
		return nil, err
	}
	return &imageForm{
		fileName:    header.Filename,
		contentType: header.Header.Get("Content-Type"),
		data:        data,
	}, nil
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// readPart reads at most maxBytes+1 bytes so oversize parts are detected
// without buffering them whole.
func readPart(file multipart.File, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, apierr.Validation("failed to read uploaded file")
	}
	if int64(len(data)) > maxBytes {
		return nil, tooLarge(maxBytes)
	}
	return data, nil
}

func tooLarge(maxBytes int64) error {
	return apierr.Validation(fmt.Sprintf("file too large, maximum size is %dMB", maxBytes>>20))
}

// ListImages lists the caller's images.
//
// @Summary List the caller's images
// @Tags images
// @Produce json
// @Security BearerAuth
// @Success 200 {object} imageListResponse
// @Failure 401 {object} ErrorEnvelope
// @Router /api/v1/images [get]
func (router *Router) ListImages(w http.ResponseWriter, r *http.Request) error {
	p, err := principal(r)
	if err != nil {
		return err
	}

	objects, err := router.deps.Images.ListObjects(r.Context(), p.SubjectID)
	if err != nil {
		return err
	}

	views := make([]imageView, 0, len(objects))
	for _, md := range objects {
		views = append(views, router.view(md))
	}
	writeJSON(w, r, http.StatusOK, imageListResponse{Images: views, Total: len(views)})
	return nil
}

// GetImage resolves one registration. Only its owner, or a role allowed to
// manage any image, may read it.
//
// @Summary Get an image
// @Tags images
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration id"
// @Success 200 {object} imageView
// @Failure 403 {object} ErrorEnvelope
// @Failure 404 {object} ErrorEnvelope
// @Router /api/v1/images/{id} [get]
func (router *Router) GetImage(w http.ResponseWriter, r *http.Request) error {
	p, err := principal(r)
	if err != nil {
		return err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	md, err := router.deps.Images.ResolveObject(r.Context(), id)
	if err != nil {
		return err
	}
	if md.OwnerID != p.SubjectID && !router.canManageAny(r, p) {
		return apierr.Forbidden("image belongs to another user")
	}

	view := router.view(*md)
	link, err := router.deps.Objects.PresignGet(md.Key, router.cfg.Storage.PresignTTL)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("key", md.Key).Msg("failed to presign image link")
	} else {
		view.DownloadURL = link
	}

	writeJSON(w, r, http.StatusOK, view)
	return nil
}

// DeleteImage unregisters an image, deletes its object and invalidates the
// CDN paths.
//
// @Summary Delete an image
// @Tags images
// @Security BearerAuth
// @Param id path string true "Registration id"
// @Success 204
// @Failure 403 {object} ErrorEnvelope
// @Failure 404 {object} ErrorEnvelope
// @Router /api/v1/images/{id} [delete]
func (router *Router) DeleteImage(w http.ResponseWriter, r *http.Request) error {
	p, err := principal(r)
	if err != nil {
		return err
	}
	id, err := pathID(r, "id")
	if err != nil {
		return err
	}

	if err := router.deps.Uploads.Remove(r.Context(), p.SubjectID, id, router.canManageAny(r, p)); err != nil {
		return err
	}

	logging.Ctx(r.Context()).Info().Str("registration_id", id).Str("subject_id", p.SubjectID).Msg("image deleted")
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (router *Router) view(md clients.ObjectMetadata) imageView {
	return imageView{ObjectMetadata: md, URL: router.deps.URLs.URL(md.Key)}
}
