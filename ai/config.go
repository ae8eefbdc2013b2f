// Copyright 2026 Mathieu Wauters
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
	"time"
)

// Config holds configuration for embedding providers.
type Config struct {
	// APIKey authenticates against the embedding API. Use any non-empty
	// value for local OpenAI-compatible servers that skip auth.
	APIKey string

	// Model is the embedding model identifier.
	// Example: "text-embedding-3-small", "embeddinggemma"
	Model string

	// BaseURL overrides the API endpoint. Empty means the provider's
	// default (api.openai.com for OpenAI).
	BaseURL string

	// BatchSize caps how many texts go into a single API request. Larger
	// inputs are split client-side. Default: 64.
	BatchSize int

	// BatchDelay is the minimum spacing between consecutive API requests
	// within a multi-batch call. Default: 100ms.
	BatchDelay time.Duration

	// MaxRetries is how many times a failed request is retried. The total
	// attempt count is MaxRetries+1. Default: 3.
	MaxRetries int

	// RetryDelay is the base delay between retries; attempt n waits
	// n * RetryDelay. Default: 1s.
	RetryDelay time.Duration

	// RequestTimeout bounds a single API request. Default: 30s.
	RequestTimeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithBaseURL overrides the API endpoint, for local OpenAI-compatible
// servers (Ollama, vLLM, LocalAI).
func WithBaseURL(url string) ConfigOption {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithBatchSize sets the per-request text cap.
func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithBatchDelay sets the spacing between consecutive batch requests.
func WithBatchDelay(delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.BatchDelay = delay
	}
}

// WithMaxRetries sets how many times a failed request is retried.
func WithMaxRetries(n int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithRetryDelay sets the base delay between retries.
func WithRetryDelay(delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = delay
	}
}

// WithRequestTimeout bounds a single API request.
func WithRequestTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestTimeout = timeout
	}
}

// DefaultConfig returns a Config with sensible defaults. APIKey and Model
// have no defaults and must be supplied.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      64,
		BatchDelay:     100 * time.Millisecond,
		MaxRetries:     3,
		RetryDelay:     time.Second,
		RequestTimeout: 30 * time.Second,
	}
}

// NewConfig creates a Config with default values and applies the provided
// options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration can produce a working embedder.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("ai: API key is required")
	}
	if c.Model == "" {
		return errors.New("ai: embedding model is required")
	}
	if c.BatchSize <= 0 {
		return errors.New("ai: batch size must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("ai: max retries cannot be negative")
	}
	return nil
}
