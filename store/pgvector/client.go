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

package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/mwauters/casegraph/core"
	"github.com/mwauters/casegraph/store"
)

// Config carries connection settings for the vector store.
type Config struct {
	// ConnString is a PostgreSQL connection URL.
	ConnString string

	// VectorDim is the embedding dimensionality. Default 1536.
	VectorDim int
}

// Client implements store.VectorStore. The pool is acquired in Connect,
// which also ensures the schema; Connect is a no-op when already live.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	pool *pgxpool.Pool
}

var _ store.VectorStore = (*Client)(nil)

// NewClient creates an unconnected vector store client.
func NewClient(cfg Config) *Client {
	if cfg.VectorDim == 0 {
		cfg.VectorDim = 1536
	}
	return &Client{
		cfg:    cfg,
		logger: slog.Default().With("component", "vector-store"),
	}
}

// Connect establishes the pool, verifies it, and ensures the schema.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool != nil {
		return nil
	}

	pool, err := pgxpool.New(ctx, c.cfg.ConnString)
	if err != nil {
		return fmt.Errorf("creating vector store pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging vector store: %w", err)
	}
	if err := c.initialize(ctx, pool); err != nil {
		pool.Close()
		return err
	}

	c.pool = pool
	c.logger.Info("connected to vector store", "dim", c.cfg.VectorDim)
	return nil
}

// Close releases the pool. Safe to call when never connected.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
	}
	return nil
}

func (c *Client) getPool() (*pgxpool.Pool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pool == nil {
		return nil, store.ErrNotConnected
	}
	return c.pool, nil
}

// initialize ensures the extension, tables, indexes, and the similarity
// function. Every statement is idempotent.
func (c *Client) initialize(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS documents (
			external_id TEXT PRIMARY KEY,
			title TEXT,
			source TEXT,
			url TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			external_id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(external_id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			checksum TEXT,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, c.cfg.VectorDim),
		`CREATE INDEX IF NOT EXISTS document_chunks_document_idx
			ON document_chunks (document_id, chunk_index)`,
		`CREATE INDEX IF NOT EXISTS document_chunks_embedding_idx
			ON document_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
		`CREATE INDEX IF NOT EXISTS document_chunks_content_idx
			ON document_chunks USING GIN (to_tsvector('english', content))`,
		fmt.Sprintf(`CREATE OR REPLACE FUNCTION match_document_chunks(
			query_embedding vector(%d),
			match_threshold double precision,
			match_count integer
		)
		RETURNS TABLE (
			external_id text,
			document_id text,
			content text,
			source text,
			chunk_index integer,
			similarity double precision
		)
		LANGUAGE sql STABLE AS $$
			SELECT c.external_id, c.document_id, c.content, d.source, c.chunk_index,
			       1 - (c.embedding <=> query_embedding) AS similarity
			FROM document_chunks c
			JOIN documents d ON d.external_id = c.document_id
			WHERE c.embedding IS NOT NULL
			  AND 1 - (c.embedding <=> query_embedding) >= match_threshold
			ORDER BY c.embedding <=> query_embedding
			LIMIT match_count
		$$`, c.cfg.VectorDim),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("initializing vector store schema: %w", err)
		}
	}
	return nil
}

// UpsertDocument merges a document row. created_at is restamped on every
// write: this store records write events, it does not track row age.
func (c *Client) UpsertDocument(ctx context.Context, doc core.Document) error {
	if err := core.ValidateDocument(&doc); err != nil {
		return err
	}
	pool, err := c.getPool()
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO documents (external_id, title, source, url, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (external_id) DO UPDATE SET
			title = EXCLUDED.title,
			source = EXCLUDED.source,
			url = EXCLUDED.url,
			created_at = now()`,
		doc.ExternalID, doc.Title, doc.Source, doc.URL)
	if err != nil {
		return fmt.Errorf("upserting document %s: %w", doc.ExternalID, err)
	}
	return nil
}

const upsertChunkSQL = `
	INSERT INTO document_chunks (external_id, document_id, chunk_index, content, checksum, embedding, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, now())
	ON CONFLICT (external_id) DO UPDATE SET
		document_id = EXCLUDED.document_id,
		chunk_index = EXCLUDED.chunk_index,
		content = EXCLUDED.content,
		checksum = EXCLUDED.checksum,
		embedding = EXCLUDED.embedding,
		created_at = now()`

// UpsertChunk merges one chunk row. The chunk must carry an embedding.
func (c *Client) UpsertChunk(ctx context.Context, chunk core.Chunk) error {
	if err := core.ValidateChunk(&chunk); err != nil {
		return err
	}
	if len(chunk.Embedding) == 0 {
		return store.ErrMissingEmbedding
	}
	pool, err := c.getPool()
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, upsertChunkSQL,
		chunk.ExternalID, chunk.DocumentID, chunk.Index, chunk.Content,
		chunk.Checksum, pgvector.NewVector(chunk.Embedding))
	if err != nil {
		return fmt.Errorf("upserting chunk %s: %w", chunk.ExternalID, err)
	}
	return nil
}

// UpsertChunks merges many chunks in a single batched round trip.
func (c *Client) UpsertChunks(ctx context.Context, chunks []core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if err := core.ValidateChunk(&chunks[i]); err != nil {
			return err
		}
		if len(chunks[i].Embedding) == 0 {
			return fmt.Errorf("%w: %s", store.ErrMissingEmbedding, chunks[i].ExternalID)
		}
	}
	pool, err := c.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(upsertChunkSQL,
			chunk.ExternalID, chunk.DocumentID, chunk.Index, chunk.Content,
			chunk.Checksum, pgvector.NewVector(chunk.Embedding))
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upserting chunk batch: %w", err)
		}
	}
	return nil
}

// GetDocument returns a document row by external id.
func (c *Client) GetDocument(ctx context.Context, externalID string) (core.Document, error) {
	pool, err := c.getPool()
	if err != nil {
		return core.Document{}, err
	}

	var doc core.Document
	err = pool.QueryRow(ctx, `
		SELECT external_id, COALESCE(title, ''), COALESCE(source, ''), COALESCE(url, '')
		FROM documents WHERE external_id = $1`, externalID).
		Scan(&doc.ExternalID, &doc.Title, &doc.Source, &doc.URL)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Document{}, store.ErrNotFound
	}
	if err != nil {
		return core.Document{}, fmt.Errorf("getting document %s: %w", externalID, err)
	}
	return doc, nil
}

// ListChunks pages chunk rows without embeddings, ordered by document and
// position so pagination is stable across calls.
func (c *Client) ListChunks(ctx context.Context, offset, limit int) ([]core.Chunk, error) {
	if offset < 0 || limit < 1 {
		return nil, store.ErrInvalidQuery
	}
	pool, err := c.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT external_id, document_id, chunk_index, content, COALESCE(checksum, '')
		FROM document_chunks
		ORDER BY document_id, chunk_index
		OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	var chunks []core.Chunk
	for rows.Next() {
		var chunk core.Chunk
		if err := rows.Scan(&chunk.ExternalID, &chunk.DocumentID, &chunk.Index, &chunk.Content, &chunk.Checksum); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// Stats reports document and chunk counts and the distinct source labels.
func (c *Client) Stats(ctx context.Context) (store.VectorStats, error) {
	pool, err := c.getPool()
	if err != nil {
		return store.VectorStats{}, err
	}

	var stats store.VectorStats
	err = pool.QueryRow(ctx, `SELECT count(*) FROM documents`).Scan(&stats.Documents)
	if err != nil {
		return store.VectorStats{}, fmt.Errorf("counting documents: %w", err)
	}
	err = pool.QueryRow(ctx, `SELECT count(*) FROM document_chunks`).Scan(&stats.Chunks)
	if err != nil {
		return store.VectorStats{}, fmt.Errorf("counting chunks: %w", err)
	}

	rows, err := pool.Query(ctx, `SELECT DISTINCT COALESCE(source, '') FROM documents ORDER BY 1`)
	if err != nil {
		return store.VectorStats{}, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return store.VectorStats{}, err
		}
		stats.Sources = append(stats.Sources, source)
	}
	return stats, rows.Err()
}
