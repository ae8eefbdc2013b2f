package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwauters/casegraph/ai/mock"
	"github.com/mwauters/casegraph/core"
)

func TestEmbedChunksPositionalPairing(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = []float32{float32(len(text))}
		}
		return vectors, nil
	}

	chunks := []core.Chunk{
		core.NewChunk("doc", 0, "a"),
		core.NewChunk("doc", 1, "bbb"),
		core.NewChunk("doc", 2, "cc"),
	}

	out, err := EmbedChunks(context.Background(), embedder, nil, chunks)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []float32{1}, out[0].Embedding)
	assert.Equal(t, []float32{3}, out[1].Embedding)
	assert.Equal(t, []float32{2}, out[2].Embedding)

	// Input chunks stay untouched.
	assert.Empty(t, chunks[0].Embedding)
}

func TestEmbedChunksMixedCacheHits(t *testing.T) {
	cache := &mapCache{entries: make(map[string][]float32)}
	cached := core.NewChunk("doc", 0, "known content")
	require.NoError(t, cache.Put(cached.Checksum, []float32{9}))

	embedder := mock.NewMockEmbedder()
	fresh := core.NewChunk("doc", 1, "new content")

	out, err := EmbedChunks(context.Background(), embedder, cache, []core.Chunk{cached, fresh})
	require.NoError(t, err)

	assert.Equal(t, []float32{9}, out[0].Embedding)
	assert.NotEmpty(t, out[1].Embedding)
	assert.Equal(t, 1, embedder.CallCount())

	// The fresh vector was written back to the cache.
	vector, hit, err := cache.Get(fresh.Checksum)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, out[1].Embedding, vector)
}

func TestEmbedChunksCountMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}

	chunks := []core.Chunk{
		core.NewChunk("doc", 0, "one"),
		core.NewChunk("doc", 1, "two"),
	}
	_, err := EmbedChunks(context.Background(), embedder, nil, chunks)
	assert.Error(t, err)
}

func TestEmbedChunksPropagatesEmbedderError(t *testing.T) {
	boom := errors.New("provider down")
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, boom
	}

	_, err := EmbedChunks(context.Background(), embedder, nil, []core.Chunk{core.NewChunk("doc", 0, "x")})
	assert.ErrorIs(t, err, boom)
}

func TestEmbedChunksEmptyInput(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	out, err := EmbedChunks(context.Background(), embedder, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, embedder.CallCount())
}
