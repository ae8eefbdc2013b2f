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
	"fmt"
	"sort"

	"github.com/pgvector/pgvector-go"

	"github.com/mwauters/casegraph/core"
	"github.com/mwauters/casegraph/store"
)

const (
	// Hybrid blend weights. Fixed for compatibility with existing result
	// expectations; keyword matches are binary, so they contribute a flat
	// additive bump.
	vectorWeight  = 0.7
	keywordWeight = 0.3
)

// VectorSearch delegates to the match_document_chunks function and
// optionally restricts results to one source label after the fact.
func (c *Client) VectorSearch(ctx context.Context, embedding []float32, limit int, threshold float32, source string) ([]core.SearchHit, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", store.ErrInvalidQuery)
	}
	if limit < 1 {
		return nil, store.ErrInvalidQuery
	}
	pool, err := c.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT external_id, document_id, content, source, chunk_index, similarity
		FROM match_document_chunks($1, $2, $3)`,
		pgvector.NewVector(embedding), float64(threshold), limit)
	if err != nil {
		return nil, fmt.Errorf("running vector search: %w", err)
	}
	defer rows.Close()

	var hits []core.SearchHit
	for rows.Next() {
		var hit core.SearchHit
		var similarity float64
		if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &hit.Content, &hit.Source, &hit.ChunkIndex, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		hit.Similarity = float32(similarity)
		if source != "" && hit.Source != source {
			continue
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// KeywordSearch runs full-text search over chunk content. Matching is
// binary: every hit carries full similarity weight.
func (c *Client) KeywordSearch(ctx context.Context, keywords string, limit int) ([]core.SearchHit, error) {
	if keywords == "" {
		return nil, fmt.Errorf("%w: empty keywords", store.ErrInvalidQuery)
	}
	if limit < 1 {
		return nil, store.ErrInvalidQuery
	}
	pool, err := c.getPool()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT c.external_id, c.document_id, c.content, COALESCE(d.source, ''), c.chunk_index
		FROM document_chunks c
		JOIN documents d ON d.external_id = c.document_id
		WHERE to_tsvector('english', c.content) @@ plainto_tsquery('english', $1)
		ORDER BY ts_rank(to_tsvector('english', c.content), plainto_tsquery('english', $1)) DESC
		LIMIT $2`, keywords, limit)
	if err != nil {
		return nil, fmt.Errorf("running keyword search: %w", err)
	}
	defer rows.Close()

	var hits []core.SearchHit
	for rows.Next() {
		var hit core.SearchHit
		if err := rows.Scan(&hit.ChunkID, &hit.DocumentID, &hit.Content, &hit.Source, &hit.ChunkIndex); err != nil {
			return nil, fmt.Errorf("scanning keyword hit: %w", err)
		}
		hit.Similarity = 1.0
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// HybridSearch runs both searches and merges the rankings.
func (c *Client) HybridSearch(ctx context.Context, embedding []float32, keywords string, limit int, threshold float32) ([]core.SearchHit, error) {
	if limit < 1 {
		return nil, store.ErrInvalidQuery
	}

	vectorHits, err := c.VectorSearch(ctx, embedding, limit, threshold, "")
	if err != nil {
		return nil, err
	}

	var keywordHits []core.SearchHit
	if keywords != "" {
		keywordHits, err = c.KeywordSearch(ctx, keywords, limit)
		if err != nil {
			return nil, err
		}
	}

	return mergeHybrid(vectorHits, keywordHits, limit), nil
}

// mergeHybrid blends the two result sets by chunk id. A vector hit scores
// 0.7 times its similarity; a keyword hit adds a flat 0.3 to an existing
// entry or opens a new one at 0.3.
func mergeHybrid(vectorHits, keywordHits []core.SearchHit, limit int) []core.SearchHit {
	merged := make(map[string]core.SearchHit, len(vectorHits)+len(keywordHits))

	for _, hit := range vectorHits {
		hit.Similarity *= vectorWeight
		merged[hit.ChunkID] = hit
	}
	for _, hit := range keywordHits {
		if existing, ok := merged[hit.ChunkID]; ok {
			existing.Similarity += keywordWeight
			merged[hit.ChunkID] = existing
		} else {
			hit.Similarity = keywordWeight
			merged[hit.ChunkID] = hit
		}
	}

	hits := make([]core.SearchHit, 0, len(merged))
	for _, hit := range merged {
		hits = append(hits, hit)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
