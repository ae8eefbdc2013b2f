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

// Package casegraph ties the ingestion and retrieval pipeline together: an
// App lazily builds the graph store, the vector store, the embedding
// provider, and the embedding cache from one Config and hands them to the
// subpackages that do the work.
package casegraph

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mwauters/casegraph/ai"
	aiopenai "github.com/mwauters/casegraph/ai/openai"
	"github.com/mwauters/casegraph/cache"
	"github.com/mwauters/casegraph/store"
	storeneo4j "github.com/mwauters/casegraph/store/neo4j"
	storepgvector "github.com/mwauters/casegraph/store/pgvector"
)

// App is the lazily-built service registry for one process. Accessors are
// safe for concurrent use; each dependency is constructed at most once
// until Reset.
type App struct {
	cfg    *Config
	logger *slog.Logger

	mu       sync.Mutex
	graph    store.GraphStore
	vector   store.VectorStore
	embedder ai.Embedder
	embCache *cache.EmbeddingCache
}

// NewApp creates an App over a validated configuration.
func NewApp(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &App{
		cfg:    cfg,
		logger: slog.Default().With("component", "app"),
	}, nil
}

// Graph returns the graph store client, building it on first use. The
// client is unconnected; callers own Connect and Close.
func (a *App) Graph() store.GraphStore {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.graph == nil {
		a.graph = storeneo4j.NewClient(storeneo4j.Config{
			URI:      a.cfg.GraphURI,
			Username: a.cfg.GraphUsername,
			Password: a.cfg.GraphPassword,
			Database: a.cfg.GraphDatabase,
		})
	}
	return a.graph
}

// Vector returns the vector store client, building it on first use.
func (a *App) Vector() store.VectorStore {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.vector == nil {
		a.vector = storepgvector.NewClient(storepgvector.Config{
			ConnString: a.cfg.VectorURL,
		})
	}
	return a.vector
}

// Embedder returns the embedding provider, building it on first use.
func (a *App) Embedder() (ai.Embedder, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.embedder == nil {
		embedder, err := aiopenai.NewEmbedder(ai.NewConfig(
			ai.WithAPIKey(a.cfg.OpenAIAPIKey),
			ai.WithModel(a.cfg.EmbeddingModel),
			ai.WithBaseURL(a.cfg.EmbeddingBaseURL),
		))
		if err != nil {
			return nil, err
		}
		a.embedder = embedder
	}
	return a.embedder, nil
}

// Cache returns the embedding cache, or nil when no cache path is
// configured.
func (a *App) Cache() (*cache.EmbeddingCache, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.embCache == nil && a.cfg.CachePath != "" {
		c, err := cache.Open(a.cfg.CachePath, a.cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		a.embCache = c
	}
	return a.embCache, nil
}

// Close releases everything the App built. Errors are logged, not
// returned: close is best effort on the way out.
func (a *App) Close(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.graph != nil {
		if err := a.graph.Close(ctx); err != nil {
			a.logger.Warn("closing graph store", "err", err)
		}
	}
	if a.vector != nil {
		if err := a.vector.Close(ctx); err != nil {
			a.logger.Warn("closing vector store", "err", err)
		}
	}
	if a.embCache != nil {
		if err := a.embCache.Close(); err != nil {
			a.logger.Warn("closing embedding cache", "err", err)
		}
	}
	a.graph = nil
	a.vector = nil
	a.embedder = nil
	a.embCache = nil
}

// Reset drops every built dependency without closing, so tests can swap
// configuration between runs.
func (a *App) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.graph = nil
	a.vector = nil
	a.embedder = nil
	a.embCache = nil
}
