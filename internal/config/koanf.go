// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/stox-gateway/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// sliceConfigPaths accept comma-separated values from the environment.
var sliceConfigPaths = []string{
	"cors.allowed_origins",
	"cors.allowed_methods",
	"cors.allowed_headers",
	"upload.allowed_types",
	"upload.allowed_extensions",
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Correlation-ID", "X-Request-Timeout"},
			MaxAge:         300,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 120,
			Window:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Backends: BackendsConfig{
			Identity: BackendConfig{
				URL:           "http://localhost:50051",
				HealthPath:    "/health",
				Timeout:       10 * time.Second,
				ProbeInterval: 15 * time.Second,
				MaxConns:      64,
				Required:      true,
			},
			Images: BackendConfig{
				URL:           "http://localhost:50061",
				HealthPath:    "/health",
				Timeout:       10 * time.Second,
				ProbeInterval: 15 * time.Second,
				MaxConns:      64,
				Required:      true,
			},
			Commerce: BackendConfig{
				URL:           "http://localhost:8081",
				HealthPath:    "/health",
				Timeout:       10 * time.Second,
				ProbeInterval: 30 * time.Second,
				MaxConns:      32,
			},
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   100 * time.Millisecond,
			MaxDelay:    2 * time.Second,
		},
		Breaker: BreakerConfig{
			MaxRequests:         3,
			Interval:            60 * time.Second,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 5,
		},
		Upload: UploadConfig{
			MaxBytes:             10 << 20,
			AllowedTypes:         []string{"image/jpeg", "image/jpg", "image/png", "image/webp"},
			AllowedExtensions:    []string{".jpg", ".jpeg", ".png", ".webp"},
			IdempotencyRetention: 24 * time.Hour,
			InProgressTTL:        15 * time.Minute,
			StepTimeout:          20 * time.Second,
			CompensationAttempts: 5,
			OrphanSweepInterval:  5 * time.Minute,
		},
		Storage: StorageConfig{
			Path:          "/data/objects",
			PresignTTL:    15 * time.Minute,
			PublicBaseURL: "http://localhost:8080",
		},
		CDN: CDNConfig{
			Domain:        "cdn.stox.local",
			Timeout:       10 * time.Second,
			RatePerSecond: 2,
			Burst:         5,
			RetryInterval: time.Minute,
			RetryBatch:    50,
		},
		Events: EventsConfig{
			TopicPrefix: "stox.gateway",
		},
		Authz: AuthzConfig{
			DefaultRole: "user",
		},
	}
}

// Load builds the configuration from defaults, file and environment, then
// validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to config keys.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"http_host":              "server.host",
	"http_port":              "server.port",
	"http_read_timeout":      "server.read_timeout",
	"http_write_timeout":     "server.write_timeout",
	"http_idle_timeout":      "server.idle_timeout",
	"request_timeout":        "server.request_timeout",
	"shutdown_timeout":       "server.shutdown_timeout",
	"cors_allowed_origins":   "cors.allowed_origins",
	"cors_allowed_methods":   "cors.allowed_methods",
	"cors_allowed_headers":   "cors.allowed_headers",
	"cors_allow_credentials": "cors.allow_credentials",
	"rate_limit_enabled":     "rate_limit.enabled",
	"rate_limit_requests":    "rate_limit.requests",
	"rate_limit_window":      "rate_limit.window",
	"log_level":              "logging.level",
	"log_format":             "logging.format",
	"log_caller":             "logging.caller",

	"identity_service_url":    "backends.identity.url",
	"identity_service_health": "backends.identity.health_path",
	"identity_timeout":        "backends.identity.timeout",
	"image_service_url":       "backends.images.url",
	"image_service_health":    "backends.images.health_path",
	"image_service_timeout":   "backends.images.timeout",
	"ecommerce_base_url":      "backends.commerce.url",
	"ecommerce_api_key":       "backends.commerce.api_key",
	"ecommerce_timeout":       "backends.commerce.timeout",

	"retry_max_attempts":           "retry.max_attempts",
	"retry_base_delay":             "retry.base_delay",
	"retry_max_delay":              "retry.max_delay",
	"breaker_consecutive_failures": "breaker.consecutive_failures",
	"breaker_timeout":              "breaker.timeout",

	"upload_max_bytes":             "upload.max_bytes",
	"upload_allowed_types":         "upload.allowed_types",
	"upload_allowed_extensions":    "upload.allowed_extensions",
	"idempotency_retention":        "upload.idempotency_retention",
	"upload_step_timeout":          "upload.step_timeout",
	"upload_compensation_attempts": "upload.compensation_attempts",
	"upload_orphan_sweep_interval": "upload.orphan_sweep_interval",

	"storage_path":            "storage.path",
	"storage_in_memory":       "storage.in_memory",
	"storage_presign_secret":  "storage.presign_secret",
	"storage_presign_ttl":     "storage.presign_ttl",
	"storage_public_base_url": "storage.public_base_url",

	"cdn_endpoint":        "cdn.endpoint",
	"cdn_distribution_id": "cdn.distribution_id",
	"cdn_domain":          "cdn.domain",
	"cdn_api_token":       "cdn.api_token",
	"cdn_rate_per_second": "cdn.rate_per_second",
	"cdn_retry_interval":  "cdn.retry_interval",

	"nats_url":            "events.nats_url",
	"events_topic_prefix": "events.topic_prefix",

	"authz_model_path":   "authz.model_path",
	"authz_policy_path":  "authz.policy_path",
	"authz_default_role": "authz.default_role",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
