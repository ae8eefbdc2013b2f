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

package ingest

import (
	"context"
	"fmt"

	"github.com/mwauters/casegraph/ai"
	"github.com/mwauters/casegraph/core"
)

// EmbeddingCache is the cache surface the pipeline needs; nil means every
// chunk is embedded fresh.
type EmbeddingCache interface {
	Get(checksum string) ([]float32, bool, error)
	Put(checksum string, vector []float32) error
}

// EmbedChunks attaches an embedding to every chunk, serving cache hits by
// content checksum and embedding the misses in one batched call. Pairing
// between request texts and response vectors is strictly positional.
func EmbedChunks(ctx context.Context, embedder ai.Embedder, cache EmbeddingCache, chunks []core.Chunk) ([]core.Chunk, error) {
	if len(chunks) == 0 {
		return chunks, nil
	}

	out := make([]core.Chunk, len(chunks))
	copy(out, chunks)

	var missTexts []string
	var missIdx []int
	for i := range out {
		if cache != nil && out[i].Checksum != "" {
			vector, hit, err := cache.Get(out[i].Checksum)
			if err != nil {
				return nil, fmt.Errorf("reading embedding cache: %w", err)
			}
			if hit {
				out[i].Embedding = vector
				continue
			}
		}
		missTexts = append(missTexts, out[i].Content)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := embedder.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks: %w", len(missTexts), err)
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missTexts))
	}

	for pos, i := range missIdx {
		out[i].Embedding = vectors[pos]
		if cache != nil && out[i].Checksum != "" {
			if err := cache.Put(out[i].Checksum, vectors[pos]); err != nil {
				return nil, fmt.Errorf("writing embedding cache: %w", err)
			}
		}
	}
	return out, nil
}
