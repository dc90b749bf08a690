// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for values the gateway cannot run with.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateCORS,
		c.validateLogging,
		c.validateBackends,
		c.validateRetry,
		c.validateUpload,
		c.validateStorage,
		c.validateCDN,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateCORS() error {
	for _, o := range c.CORS.AllowedOrigins {
		if o == "*" && c.CORS.AllowCredentials {
			return errors.New("CORS_ALLOWED_ORIGINS cannot contain * when credentials are allowed")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateBackends() error {
	backends := map[string]BackendConfig{
		"identity": c.Backends.Identity,
		"images":   c.Backends.Images,
		"commerce": c.Backends.Commerce,
	}
	for name, b := range backends {
		if err := validateURL(name+" url", b.URL); err != nil {
			return err
		}
		if b.Timeout <= 0 {
			return fmt.Errorf("backends.%s.timeout must be positive", name)
		}
		if b.MaxConns < 1 {
			return fmt.Errorf("backends.%s.max_conns must be at least 1", name)
		}
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts < 1 {
		return errors.New("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		return errors.New("retry delays must be positive and max_delay >= base_delay")
	}
	return nil
}

func (c *Config) validateUpload() error {
	u := c.Upload
	if u.MaxBytes <= 0 {
		return errors.New("UPLOAD_MAX_BYTES must be positive")
	}
	if len(u.AllowedTypes) == 0 || len(u.AllowedExtensions) == 0 {
		return errors.New("upload allowed types and extensions must not be empty")
	}
	if u.IdempotencyRetention <= 0 {
		return errors.New("IDEMPOTENCY_RETENTION must be positive")
	}
	if u.InProgressTTL <= 0 || u.StepTimeout <= 0 {
		return errors.New("upload in_progress_ttl and step_timeout must be positive")
	}
	if u.CompensationAttempts < 1 {
		return errors.New("UPLOAD_COMPENSATION_ATTEMPTS must be at least 1")
	}
	if u.OrphanSweepInterval <= 0 {
		return errors.New("UPLOAD_ORPHAN_SWEEP_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return errors.New("STORAGE_PATH is required unless storage is in memory")
	}
	if len(c.Storage.PresignSecret) < 32 {
		return errors.New("STORAGE_PRESIGN_SECRET must be at least 32 characters")
	}
	if c.Storage.PresignTTL <= 0 {
		return errors.New("STORAGE_PRESIGN_TTL must be positive")
	}
	return validateURL("storage public_base_url", c.Storage.PublicBaseURL)
}

func (c *Config) validateCDN() error {
	if c.CDN.Domain == "" {
		return errors.New("CDN_DOMAIN is required")
	}
	if c.CDN.Endpoint == "" {
		return nil
	}
	if err := validateURL("cdn endpoint", c.CDN.Endpoint); err != nil {
		return err
	}
	if c.CDN.DistributionID == "" {
		return errors.New("CDN_DISTRIBUTION_ID is required when CDN_ENDPOINT is set")
	}
	if c.CDN.RatePerSecond <= 0 || c.CDN.Burst < 1 {
		return errors.New("cdn rate_per_second and burst must be positive")
	}
	return nil
}

func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, u.Scheme)
	}
	return nil
}
