// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"log/slog"
	"strings"
	"time"
)

// Config holds configuration for the embedding model services.
type Config struct {
	// EmbeddingHost is the base URL for the text embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// ImageHost is the base URL for the image embedding service API.
	// Example: "http://localhost:7997/v1" for a CLIP model behind an OpenAI-compatible server
	ImageHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// It doubles as the version tag of every text vector the model produces.
	// Example: "all-minilm", "text-embedding-3-small"
	EmbeddingModel string

	// ImageModel is the model identifier to use for image embeddings.
	// Example: "clip-ViT-B-32"
	ImageModel string

	// APIKey is sent as the bearer token. Local servers accept any value.
	APIKey string

	// ImageTimeout bounds a single image download.
	// Default: 5s
	ImageTimeout time.Duration

	// MaxImageBytes caps the size of a downloaded image.
	// Default: 5 MiB
	MaxImageBytes int64

	// MaxRetries is the number of attempts for a failing model call.
	// Default: 3
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff between attempts.
	// Default: 500ms
	RetryDelay time.Duration

	// RequestsPerSecond limits calls to each model. Zero disables limiting.
	RequestsPerSecond float64

	// BreakerFailures is the number of consecutive failures that opens the circuit breaker.
	// Default: 5
	BreakerFailures uint32

	// BreakerTimeout is how long the breaker stays open before probing again.
	// Default: 30s
	BreakerTimeout time.Duration

	// Logger receives the logs of the model services and their guards.
	// Default: slog.Default()
	Logger *slog.Logger
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the text embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithImageHost sets the image embedding service host URL.
func WithImageHost(host string) ConfigOption {
	return func(c *Config) {
		c.ImageHost = host
	}
}

// WithHost sets both text and image hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ImageHost = host
	}
}

// WithEmbeddingModel sets the text embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithImageModel sets the image embedding model identifier.
func WithImageModel(model string) ConfigOption {
	return func(c *Config) {
		c.ImageModel = model
	}
}

// WithAPIKey sets the bearer token for the model services.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithImageTimeout sets the image download timeout.
func WithImageTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.ImageTimeout = timeout
	}
}

// WithRetry sets the retry attempts and base backoff delay.
func WithRetry(maxRetries int, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithRateLimit limits model calls to rps requests per second.
func WithRateLimit(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// WithBreaker sets the circuit breaker trip threshold and open duration.
func WithBreaker(failures uint32, timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.BreakerFailures = failures
		c.BreakerTimeout = timeout
	}
}

// WithLogger sets the logger used by the model services.
func WithLogger(logger *slog.Logger) ConfigOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, text and image embeddings use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:   defaultHost,
		ImageHost:       defaultHost,
		EmbeddingModel:  "all-minilm",
		ImageModel:      "clip-ViT-B-32",
		APIKey:          "none",
		ImageTimeout:    5 * time.Second,
		MaxImageBytes:   5 << 20,
		MaxRetries:      3,
		RetryDelay:      500 * time.Millisecond,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//   cfg := NewConfig(
//       WithHost("http://localhost:11434/v1"),
//       WithEmbeddingModel("text-embedding-3-small"),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to hosts if missing, which most OpenAI-compatible
// servers (Ollama, LocalAI, vLLM, Infinity) expect, and fills in a nil Logger.
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.ImageHost = normalizeHost(c.ImageHost)
	if c.APIKey == "" {
		c.APIKey = "none"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.ImageHost == "" {
		return errors.New("ai config: ImageHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ImageModel == "" {
		return errors.New("ai config: ImageModel is required")
	}
	if c.ImageTimeout <= 0 {
		return errors.New("ai config: ImageTimeout must be positive")
	}
	if c.MaxImageBytes <= 0 {
		return errors.New("ai config: MaxImageBytes must be positive")
	}
	if c.MaxRetries < 1 {
		return errors.New("ai config: MaxRetries must be at least 1")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond cannot be negative")
	}
	if c.BreakerFailures < 1 {
		return errors.New("ai config: BreakerFailures must be at least 1")
	}
	return nil
}
