package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwauters/casegraph/core"
)

func newTestCache(t *testing.T) *EmbeddingCache {
	t.Helper()
	c, err := OpenInMemory("test-model")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCacheRoundTrip(t *testing.T) {
	c := newTestCache(t)

	checksum := core.Checksum("some chunk content")
	vector := []float32{0.1, -0.5, 2.25, 0}

	_, hit, err := c.Get(checksum)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Put(checksum, vector))

	got, hit, err := c.Get(checksum)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, vector, got)
}

func TestCachePutReplaces(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Put("abc", []float32{1}))
	require.NoError(t, c.Put("abc", []float32{2, 3}))

	got, hit, err := c.Get("abc")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []float32{2, 3}, got)
}

func TestCacheModelScoping(t *testing.T) {
	a, err := OpenInMemory("model-a")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NoError(t, a.Put("shared-checksum", []float32{1}))

	// A cache opened for a different model over the same store must miss.
	b := &EmbeddingCache{db: a.db, model: "model-b", logger: a.logger}
	_, hit, err := b.Get("shared-checksum")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheLen(t *testing.T) {
	c := newTestCache(t)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, c.Put("x", []float32{1}))
	require.NoError(t, c.Put("y", []float32{2}))

	n, err = c.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestVectorCodec(t *testing.T) {
	cases := [][]float32{
		nil,
		{},
		{0},
		{1.5, -2.25, 3.75},
	}
	for _, vector := range cases {
		got, err := unmarshalVector(marshalVector(vector))
		require.NoError(t, err)
		assert.Len(t, got, len(vector))
		for i := range vector {
			assert.Equal(t, vector[i], got[i])
		}
	}
}

func TestOpenRequiresModel(t *testing.T) {
	_, err := OpenInMemory("")
	assert.Error(t, err)
}
