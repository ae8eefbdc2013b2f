package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwauters/casegraph/ai/mock"
	"github.com/mwauters/casegraph/core"
	"github.com/mwauters/casegraph/store"
)

// fakeGraph records upserts and relationships in memory.
type fakeGraph struct {
	mu            sync.Mutex
	connected     bool
	closed        bool
	nodes         map[string]map[string]any
	relationships []string
	failEventID   string
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{nodes: make(map[string]map[string]any)}
}

func (g *fakeGraph) Connect(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = true
	return nil
}

func (g *fakeGraph) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	return nil
}

func (g *fakeGraph) UpsertNode(ctx context.Context, label, externalID string, props map[string]any) error {
	return g.UpsertNodeWithLabels(ctx, []string{label}, externalID, props)
}

func (g *fakeGraph) UpsertNodeWithLabels(ctx context.Context, labels []string, externalID string, props map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if externalID == g.failEventID {
		return errors.New("simulated graph failure")
	}
	node := map[string]any{"labels": labels}
	for k, v := range props {
		node[k] = v
	}
	g.nodes[externalID] = node
	return nil
}

func (g *fakeGraph) UpsertEvent(ctx context.Context, event core.Event) error {
	return g.UpsertNode(ctx, "Event", event.ExternalID, map[string]any{"type": event.Type})
}

func (g *fakeGraph) UpsertContinuance(ctx context.Context, cont core.Continuance) error {
	return g.UpsertNodeWithLabels(ctx, []string{"Event", "Continuance"}, cont.ExternalID, nil)
}

func (g *fakeGraph) UpsertPerson(ctx context.Context, person core.Person) error {
	return g.UpsertNode(ctx, "Person", person.ExternalID, map[string]any{"name": person.Name})
}

func (g *fakeGraph) UpsertDocument(ctx context.Context, doc core.Document) error {
	return g.UpsertNode(ctx, "Document", doc.ExternalID, map[string]any{"title": doc.Title})
}

func (g *fakeGraph) CreateRelationship(ctx context.Context, fromID, toID, relType string, props map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.relationships = append(g.relationships, fromID+"-["+relType+"]->"+toID)
	return nil
}

func (g *fakeGraph) GetNeighborhood(ctx context.Context, externalID string, hops, limit int) (store.Neighborhood, error) {
	return store.Neighborhood{}, nil
}

func (g *fakeGraph) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return nil, nil
}

// fakeVector records documents and chunks in memory.
type fakeVector struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	documents map[string]core.Document
	chunks    map[string]core.Chunk
	failDocID string
}

func newFakeVector() *fakeVector {
	return &fakeVector{
		documents: make(map[string]core.Document),
		chunks:    make(map[string]core.Chunk),
	}
}

func (v *fakeVector) Connect(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = true
	return nil
}

func (v *fakeVector) Close(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

func (v *fakeVector) UpsertDocument(ctx context.Context, doc core.Document) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if doc.ExternalID == v.failDocID {
		return errors.New("simulated vector failure")
	}
	v.documents[doc.ExternalID] = doc
	return nil
}

func (v *fakeVector) UpsertChunk(ctx context.Context, chunk core.Chunk) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.chunks[chunk.ExternalID] = chunk
	return nil
}

func (v *fakeVector) UpsertChunks(ctx context.Context, chunks []core.Chunk) error {
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return store.ErrMissingEmbedding
		}
		if err := v.UpsertChunk(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (v *fakeVector) GetDocument(ctx context.Context, externalID string) (core.Document, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	doc, ok := v.documents[externalID]
	if !ok {
		return core.Document{}, store.ErrNotFound
	}
	return doc, nil
}

func (v *fakeVector) ListChunks(ctx context.Context, offset, limit int) ([]core.Chunk, error) {
	return nil, nil
}

func (v *fakeVector) VectorSearch(ctx context.Context, embedding []float32, limit int, threshold float32, source string) ([]core.SearchHit, error) {
	return nil, nil
}

func (v *fakeVector) KeywordSearch(ctx context.Context, keywords string, limit int) ([]core.SearchHit, error) {
	return nil, nil
}

func (v *fakeVector) HybridSearch(ctx context.Context, embedding []float32, keywords string, limit int, threshold float32) ([]core.SearchHit, error) {
	return nil, nil
}

func (v *fakeVector) Stats(ctx context.Context) (store.VectorStats, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return store.VectorStats{Documents: len(v.documents), Chunks: len(v.chunks)}, nil
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const testMbox = `From sender Mon Jan 12 10:00:00 2026
From: Mathieu Wauters <mathieuwauters@gmail.com>
Subject: Request for continuance
Message-ID: <m1@example.com>

Requesting a two week continuance due to illness.
`

const testRegister = "2026-01-12,Motion for continuance of 2 weeks filed,petitioner\n2026-02-03,Hearing held\n"

func TestRunIngestsBothLanes(t *testing.T) {
	graph := newFakeGraph()
	vector := newFakeVector()

	pipeline, err := New(graph, vector, mock.NewMockEmbedder())
	require.NoError(t, err)

	stats, err := pipeline.Run(context.Background(), Sources{
		MailboxPaths:  []string{writeTestFile(t, "mail.mbox", testMbox)},
		RegisterPaths: []string{writeTestFile(t, "register.csv", testRegister)},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, stats.RunID)
	assert.False(t, stats.Failed())
	assert.Equal(t, 1, stats.Email.Parsed)
	assert.Equal(t, 1, stats.Email.Upserted)
	assert.Equal(t, 2, stats.Register.Parsed)
	assert.Equal(t, 2, stats.Register.Upserted)
	assert.Positive(t, stats.Email.Chunks)
	assert.Positive(t, stats.Register.Chunks)

	// Stores are fully released after the run.
	assert.True(t, graph.closed)
	assert.True(t, vector.closed)

	// The email event and its sender exist with a SENT_BY edge.
	assert.Contains(t, vector.documents, core.ExternalID("email", "<m1@example.com>"))
	foundSentBy := false
	for _, rel := range graph.relationships {
		if strings.Contains(rel, "[SENT_BY]") {
			foundSentBy = true
		}
	}
	assert.True(t, foundSentBy)

	// Every vector document has a graph node with the same external id.
	for id := range vector.documents {
		assert.Contains(t, graph.nodes, id)
	}

	// Every chunk carries an embedding.
	for _, chunk := range vector.chunks {
		assert.NotEmpty(t, chunk.Embedding)
	}
}

func TestRunContinuesPastItemFailure(t *testing.T) {
	graph := newFakeGraph()
	vector := newFakeVector()

	// Fail the graph upsert for the continuance register event only.
	regPath := writeTestFile(t, "register.csv", testRegister)
	failID := core.ExternalID("roa", regPath, "2026-01-12", "Motion for continuance of 2 weeks filed")
	graph.failEventID = failID

	pipeline, err := New(graph, vector, mock.NewMockEmbedder())
	require.NoError(t, err)

	stats, err := pipeline.Run(context.Background(), Sources{RegisterPaths: []string{regPath}})
	require.NoError(t, err)

	assert.True(t, stats.Failed())
	assert.Len(t, stats.Errors, 1)
	// The sibling event in the same lane still went through.
	assert.Equal(t, 2, stats.Register.Parsed)
	assert.Equal(t, 1, stats.Register.Upserted)
	// Vector side of the failed event is unaffected by the graph failure.
	assert.Contains(t, vector.documents, failID)
}

func TestRunUsesCache(t *testing.T) {
	graph := newFakeGraph()
	vector := newFakeVector()
	embedder := mock.NewMockEmbedder()
	cache := &mapCache{entries: make(map[string][]float32)}

	pipeline, err := New(graph, vector, embedder, WithCache(cache))
	require.NoError(t, err)

	mbox := writeTestFile(t, "mail.mbox", testMbox)
	_, err = pipeline.Run(context.Background(), Sources{MailboxPaths: []string{mbox}})
	require.NoError(t, err)
	firstCalls := embedder.CallCount()
	require.Positive(t, firstCalls)

	// Second run over identical content is served from the cache.
	pipeline2, err := New(newFakeGraph(), newFakeVector(), embedder, WithCache(cache))
	require.NoError(t, err)
	_, err = pipeline2.Run(context.Background(), Sources{MailboxPaths: []string{mbox}})
	require.NoError(t, err)
	assert.Equal(t, firstCalls, embedder.CallCount())
}

func TestRunReportsProgress(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}

	pipeline, err := New(newFakeGraph(), newFakeVector(), mock.NewMockEmbedder(),
		WithProgress(func(lane string, done, total int) {
			mu.Lock()
			defer mu.Unlock()
			calls[lane]++
		}))
	require.NoError(t, err)

	_, err = pipeline.Run(context.Background(), Sources{
		MailboxPaths:  []string{writeTestFile(t, "mail.mbox", testMbox)},
		RegisterPaths: []string{writeTestFile(t, "register.csv", testRegister)},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, calls[LaneEmail])
	assert.Equal(t, 2, calls[LaneRegister])
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(nil, newFakeVector(), mock.NewMockEmbedder())
	assert.Error(t, err)
	_, err = New(newFakeGraph(), nil, mock.NewMockEmbedder())
	assert.Error(t, err)
	_, err = New(newFakeGraph(), newFakeVector(), nil)
	assert.Error(t, err)
}

// mapCache is an in-memory EmbeddingCache.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]float32
}

func (c *mapCache) Get(checksum string) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vector, ok := c.entries[checksum]
	return vector, ok, nil
}

func (c *mapCache) Put(checksum string, vector []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[checksum] = vector
	return nil
}
