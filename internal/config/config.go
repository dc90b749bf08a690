// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

// Package config loads the gateway configuration.
//
// Configuration is layered with Koanf: built-in defaults, then an optional
// YAML file (CONFIG_PATH, ./config.yaml, /etc/stox-gateway/config.yaml),
// then environment variables. Invalid configuration is fatal at startup.
package config

import "time"

// Config is the complete gateway configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	CORS      CORSConfig      `koanf:"cors"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Logging   LoggingConfig   `koanf:"logging"`
	Backends  BackendsConfig  `koanf:"backends"`
	Retry     RetryConfig     `koanf:"retry"`
	Breaker   BreakerConfig   `koanf:"breaker"`
	Upload    UploadConfig    `koanf:"upload"`
	Storage   StorageConfig   `koanf:"storage"`
	CDN       CDNConfig       `koanf:"cdn"`
	Events    EventsConfig    `koanf:"events"`
	Authz     AuthzConfig     `koanf:"authz"`
}

// ServerConfig holds the inbound HTTP listener settings.
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	// RequestTimeout is the default per-request deadline. A client may ask
	// for less with X-Request-Timeout, never for more.
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// BackendConfig describes one downstream HTTP/JSON service.
type BackendConfig struct {
	URL           string        `koanf:"url"`
	HealthPath    string        `koanf:"health_path"`
	APIKey        string        `koanf:"api_key"`
	Timeout       time.Duration `koanf:"timeout"`
	ProbeInterval time.Duration `koanf:"probe_interval"`
	MaxConns      int           `koanf:"max_conns"`

	// Required backends make /health/ready fail while disconnected.
	Required bool `koanf:"required"`
}

type BackendsConfig struct {
	Identity BackendConfig `koanf:"identity"`
	Images   BackendConfig `koanf:"images"`
	Commerce BackendConfig `koanf:"commerce"`
}

// RetryConfig is the single retry policy applied to every backend call.
type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay"`
	MaxDelay    time.Duration `koanf:"max_delay"`
}

type BreakerConfig struct {
	MaxRequests         uint32        `koanf:"max_requests"`
	Interval            time.Duration `koanf:"interval"`
	Timeout             time.Duration `koanf:"timeout"`
	ConsecutiveFailures uint32        `koanf:"consecutive_failures"`
}

type UploadConfig struct {
	MaxBytes          int64    `koanf:"max_bytes"`
	AllowedTypes      []string `koanf:"allowed_types"`
	AllowedExtensions []string `koanf:"allowed_extensions"`

	// IdempotencyRetention is how long a completed upload's result is kept
	// for replay.
	IdempotencyRetention time.Duration `koanf:"idempotency_retention"`
	InProgressTTL        time.Duration `koanf:"in_progress_ttl"`
	StepTimeout          time.Duration `koanf:"step_timeout"`
	CompensationAttempts int           `koanf:"compensation_attempts"`

	// OrphanSweepInterval is how often objects left behind by failed
	// compensations are deleted again.
	OrphanSweepInterval time.Duration `koanf:"orphan_sweep_interval"`
}

type StorageConfig struct {
	Path          string        `koanf:"path"`
	InMemory      bool          `koanf:"in_memory"`
	PresignSecret string        `koanf:"presign_secret"`
	PresignTTL    time.Duration `koanf:"presign_ttl"`
	PublicBaseURL string        `koanf:"public_base_url"`
}

type CDNConfig struct {
	Endpoint       string        `koanf:"endpoint"`
	DistributionID string        `koanf:"distribution_id"`
	Domain         string        `koanf:"domain"`
	APIToken       string        `koanf:"api_token"`
	Timeout        time.Duration `koanf:"timeout"`
	RatePerSecond  float64       `koanf:"rate_per_second"`
	Burst          int           `koanf:"burst"`
	RetryInterval  time.Duration `koanf:"retry_interval"`
	RetryBatch     int           `koanf:"retry_batch"`
}

// EventsConfig selects the operational event transport. An empty NATSURL
// keeps events in-process.
type EventsConfig struct {
	NATSURL     string `koanf:"nats_url"`
	TopicPrefix string `koanf:"topic_prefix"`
}

type AuthzConfig struct {
	ModelPath   string `koanf:"model_path"`
	PolicyPath  string `koanf:"policy_path"`
	DefaultRole string `koanf:"default_role"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return joinHostPort(s.Host, s.Port)
}
