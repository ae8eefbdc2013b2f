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

package reembed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwauters/casegraph/ai"
	"github.com/mwauters/casegraph/ingest"
	"github.com/mwauters/casegraph/store"
)

const defaultPageSize = 100

// Stats summarizes one re-embedding run.
type Stats struct {
	Chunks  int
	Pages   int
	Elapsed time.Duration
}

// ProgressFunc is called after each processed page.
type ProgressFunc func(chunksDone int)

// Service re-embeds stored chunks page by page.
type Service struct {
	vector   store.VectorStore
	embedder ai.Embedder
	cache    ingest.EmbeddingCache
	pageSize int
	progress ProgressFunc
	logger   *slog.Logger
}

// Option is a functional option for configuring a Service.
type Option func(*Service) error

// WithPageSize sets how many chunks are processed per page.
func WithPageSize(n int) Option {
	return func(s *Service) error {
		if n < 1 {
			return errors.New("reembed: page size must be positive")
		}
		s.pageSize = n
		return nil
	}
}

// WithCache attaches an embedding cache scoped to the new model.
func WithCache(cache ingest.EmbeddingCache) Option {
	return func(s *Service) error {
		s.cache = cache
		return nil
	}
}

// WithProgress sets a per-page progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Service) error {
		s.progress = fn
		return nil
	}
}

// New creates a re-embedding service over a connected vector store.
func New(vector store.VectorStore, embedder ai.Embedder, opts ...Option) (*Service, error) {
	if vector == nil {
		return nil, errors.New("reembed: vector store is required")
	}
	if embedder == nil {
		return nil, errors.New("reembed: embedder is required")
	}

	s := &Service{
		vector:   vector,
		embedder: embedder,
		pageSize: defaultPageSize,
		logger:   slog.Default().With("component", "reembed"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Run re-embeds every stored chunk. A page failure aborts the run; pages
// already written stay written, and re-running resumes safely because
// chunk upserts are idempotent.
func (s *Service) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	stats := Stats{}

	for offset := 0; ; offset += s.pageSize {
		chunks, err := s.vector.ListChunks(ctx, offset, s.pageSize)
		if err != nil {
			return stats, fmt.Errorf("listing chunks at offset %d: %w", offset, err)
		}
		if len(chunks) == 0 {
			break
		}

		embedded, err := ingest.EmbedChunks(ctx, s.embedder, s.cache, chunks)
		if err != nil {
			return stats, fmt.Errorf("re-embedding page at offset %d: %w", offset, err)
		}
		if err := s.vector.UpsertChunks(ctx, embedded); err != nil {
			return stats, fmt.Errorf("writing page at offset %d: %w", offset, err)
		}

		stats.Chunks += len(chunks)
		stats.Pages++
		s.logger.Debug("page re-embedded", "offset", offset, "size", len(chunks))
		if s.progress != nil {
			s.progress(stats.Chunks)
		}

		if len(chunks) < s.pageSize {
			break
		}
	}

	stats.Elapsed = time.Since(start)
	s.logger.Info("re-embedding finished", "chunks", stats.Chunks, "pages", stats.Pages, "elapsed", stats.Elapsed)
	return stats, nil
}
