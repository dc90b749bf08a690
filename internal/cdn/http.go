// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package cdn

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/stox-gateway/internal/backend"
	"github.com/tomtom215/stox-gateway/internal/config"
	"github.com/tomtom215/stox-gateway/internal/logging"
	"github.com/tomtom215/stox-gateway/internal/metrics"
)

type invalidationRequest struct {
	Paths           []string `json:"paths"`
	CallerReference string   `json:"callerReference"`
}

// HTTPInvalidator posts invalidations to a CDN management API. Calls are
// rate limited client-side and pass through a circuit breaker.
type HTTPInvalidator struct {
	client   *http.Client
	endpoint string
	domain   string
	token    string
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[any]
}

// NewHTTPInvalidator builds an invalidator for cfg.
func NewHTTPInvalidator(cfg config.CDNConfig, bs backend.BreakerSettings) *HTTPInvalidator {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &HTTPInvalidator{
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: strings.TrimRight(cfg.Endpoint, "/") + "/distributions/" + cfg.DistributionID + "/invalidations",
		domain:   cfg.Domain,
		token:    cfg.APIToken,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
		breaker:  backend.NewBreaker("cdn", bs),
	}
}

func (c *HTTPInvalidator) URL(key string) string { return DeliveryURL(c.domain, key) }

// Invalidate waits for a rate-limit token, then submits the paths.
func (c *HTTPInvalidator) Invalidate(ctx context.Context, paths []string) error {
	paths = NormalizePaths(paths)
	if len(paths) == 0 {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		metrics.CDNInvalidationsTotal.WithLabelValues("rate_limited").Inc()
		return fmt.Errorf("cdn rate limit: %w", err)
	}

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.post(ctx, paths)
	})
	if err != nil {
		metrics.CDNInvalidationsTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("cdn invalidation: %w", err)
	}
	metrics.CDNInvalidationsTotal.WithLabelValues("success").Inc()
	logging.Ctx(ctx).Debug().Strs("paths", paths).Msg("cdn invalidation submitted")
	return nil
}

func (c *HTTPInvalidator) post(ctx context.Context, paths []string) error {
	body, err := json.Marshal(invalidationRequest{
		Paths:           paths,
		CallerReference: callerReference(time.Now()),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if cid := logging.CorrelationIDFromContext(ctx); cid != "" {
		req.Header.Set("X-Correlation-ID", cid)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &backend.StatusError{Backend: "cdn", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// callerReference is unique per submission; the CDN treats a repeated
// reference as the same invalidation.
func callerReference(now time.Time) string {
	return "stox-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + uuid.NewString()[:8]
}

// NoopInvalidator is used when no CDN endpoint is configured.
type NoopInvalidator struct {
	Domain string
}

func (n NoopInvalidator) URL(key string) string { return DeliveryURL(n.Domain, key) }

func (n NoopInvalidator) Invalidate(ctx context.Context, paths []string) error {
	logging.Ctx(ctx).Debug().Strs("paths", NormalizePaths(paths)).Msg("cdn not configured, skipping invalidation")
	return nil
}

// New returns the invalidator for cfg.
func New(cfg config.CDNConfig, bs backend.BreakerSettings) Invalidator {
	if cfg.Endpoint == "" {
		return NoopInvalidator{Domain: cfg.Domain}
	}
	return NewHTTPInvalidator(cfg, bs)
}

