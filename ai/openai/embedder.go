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

package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/mwauters/casegraph/ai"
)

// embeddingClient is the slice of the langchaingo client the embedder
// actually uses. Kept as an interface so tests can inject failures.
type embeddingClient interface {
	CreateEmbedding(ctx context.Context, inputTexts []string) ([][]float32, error)
}

// Embedder implements ai.Embedder against OpenAI-compatible APIs.
type Embedder struct {
	client  embeddingClient
	cfg     *ai.Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// newEmbedder is the internal constructor returning the concrete type.
func newEmbedder(cfg *ai.Config) (*Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	return newEmbedderWithClient(client, cfg), nil
}

func newEmbedderWithClient(client embeddingClient, cfg *ai.Config) *Embedder {
	return &Embedder{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.BatchDelay), 1),
		logger:  slog.Default().With("component", "openai-embedder"),
	}
}

// NewEmbedder creates an embedder from the provided configuration.
//
// Returns the ai.Embedder interface to enforce abstraction.
func NewEmbedder(cfg *ai.Config) (ai.Embedder, error) {
	return newEmbedder(cfg)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		e.logger.Warn("embedding API returned empty result")
		return []float32{}, nil
	}
	return vectors[0], nil
}

// EmbedTexts generates embeddings for multiple texts, splitting the input
// into BatchSize requests paced by BatchDelay. The result is
// position-aligned with the input.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	e.logger.Debug("generating embeddings", "count", len(texts), "batchSize", e.cfg.BatchSize)

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			e.logger.Error("embedding batch failed", "start", start, "size", end-start, "err", err)
			return nil, err
		}
		result = append(result, vectors...)
	}

	if len(result) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d texts", len(result), len(texts))
	}
	return result, nil
}

// embedBatch runs one API request under the retry policy and the
// per-request timeout.
func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := retryLinear(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()

		var err error
		vectors, err = e.client.CreateEmbedding(callCtx, texts)
		return err
	}, e.cfg.MaxRetries, e.cfg.RetryDelay)
	if err != nil {
		return nil, err
	}
	return vectors, nil
}
