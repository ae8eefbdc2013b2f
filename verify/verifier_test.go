package verify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwauters/casegraph/core"
	"github.com/mwauters/casegraph/store"
)

// scriptedGraph answers ExecuteQuery from injectable behavior; everything
// else is unused by the verifier.
type scriptedGraph struct {
	queryFunc func(query string, params map[string]any) ([]map[string]any, error)
}

func (g *scriptedGraph) Connect(ctx context.Context) error { return nil }
func (g *scriptedGraph) Close(ctx context.Context) error   { return nil }
func (g *scriptedGraph) UpsertNode(ctx context.Context, label, externalID string, props map[string]any) error {
	return nil
}
func (g *scriptedGraph) UpsertNodeWithLabels(ctx context.Context, labels []string, externalID string, props map[string]any) error {
	return nil
}
func (g *scriptedGraph) UpsertEvent(ctx context.Context, event core.Event) error           { return nil }
func (g *scriptedGraph) UpsertContinuance(ctx context.Context, cont core.Continuance) error { return nil }
func (g *scriptedGraph) UpsertPerson(ctx context.Context, person core.Person) error         { return nil }
func (g *scriptedGraph) UpsertDocument(ctx context.Context, doc core.Document) error        { return nil }
func (g *scriptedGraph) CreateRelationship(ctx context.Context, fromID, toID, relType string, props map[string]any) error {
	return nil
}
func (g *scriptedGraph) GetNeighborhood(ctx context.Context, externalID string, hops, limit int) (store.Neighborhood, error) {
	return store.Neighborhood{}, nil
}
func (g *scriptedGraph) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return g.queryFunc(query, params)
}

// scriptedVector serves documents from a set and stats from a struct.
type scriptedVector struct {
	stats      store.VectorStats
	statsErr   error
	documents  map[string]bool
	searchErr  error
	searchHits []core.SearchHit
}

func (v *scriptedVector) Connect(ctx context.Context) error                        { return nil }
func (v *scriptedVector) Close(ctx context.Context) error                          { return nil }
func (v *scriptedVector) UpsertDocument(ctx context.Context, doc core.Document) error { return nil }
func (v *scriptedVector) UpsertChunk(ctx context.Context, chunk core.Chunk) error  { return nil }
func (v *scriptedVector) UpsertChunks(ctx context.Context, chunks []core.Chunk) error {
	return nil
}
func (v *scriptedVector) GetDocument(ctx context.Context, externalID string) (core.Document, error) {
	if v.documents[externalID] {
		return core.Document{ExternalID: externalID}, nil
	}
	return core.Document{}, store.ErrNotFound
}
func (v *scriptedVector) ListChunks(ctx context.Context, offset, limit int) ([]core.Chunk, error) {
	return nil, nil
}
func (v *scriptedVector) VectorSearch(ctx context.Context, embedding []float32, limit int, threshold float32, source string) ([]core.SearchHit, error) {
	return v.searchHits, v.searchErr
}
func (v *scriptedVector) KeywordSearch(ctx context.Context, keywords string, limit int) ([]core.SearchHit, error) {
	return nil, nil
}
func (v *scriptedVector) HybridSearch(ctx context.Context, embedding []float32, keywords string, limit int, threshold float32) ([]core.SearchHit, error) {
	return nil, nil
}
func (v *scriptedVector) Stats(ctx context.Context) (store.VectorStats, error) {
	return v.stats, v.statsErr
}

// healthyGraph answers every verifier query with clean results and serves
// sampled event ids from the given list.
func healthyGraph(eventIDs []string) *scriptedGraph {
	return &scriptedGraph{
		queryFunc: func(query string, params map[string]any) ([]map[string]any, error) {
			switch {
			case strings.Contains(query, "RETURN 1"):
				return []map[string]any{{"ok": int64(1)}}, nil
			case strings.Contains(query, "orphans"):
				return []map[string]any{{"orphans": int64(0)}}, nil
			case strings.Contains(query, "copies"):
				return nil, nil
			case strings.Contains(query, "SHOW INDEXES"):
				return []map[string]any{{"properties": []any{"externalId"}}}, nil
			default:
				records := make([]map[string]any, len(eventIDs))
				for i, id := range eventIDs {
					records[i] = map[string]any{"id": id}
				}
				return records, nil
			}
		},
	}
}

func newVerifier(t *testing.T, graph store.GraphStore, vector store.VectorStore, opts ...Option) *Verifier {
	t.Helper()
	v, err := New(graph, vector, opts...)
	require.NoError(t, err)
	return v
}

func resultByName(t *testing.T, report *Report, name string) CheckResult {
	t.Helper()
	for _, result := range report.Results {
		if result.Name == name {
			return result
		}
	}
	t.Fatalf("no check named %s", name)
	return CheckResult{}
}

func TestRunAllChecksPass(t *testing.T) {
	ids := []string{"e1", "e2", "e3"}
	vector := &scriptedVector{
		stats:     store.VectorStats{Documents: 3, Chunks: 9},
		documents: map[string]bool{"e1": true, "e2": true, "e3": true},
	}

	report := newVerifier(t, healthyGraph(ids), vector, WithProbeDim(4)).Run(context.Background())

	summary := report.Summarize()
	assert.Equal(t, 8, summary.Total)
	assert.Equal(t, 8, summary.Passed)
	assert.False(t, report.Failed())
}

func TestCrossStoreRatioBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		present int
		total   int
		want    Status
	}{
		{"all matched", 5, 5, StatusPass},
		{"exactly 0.8 passes", 4, 5, StatusPass},
		{"0.6 warns", 3, 5, StatusWarning},
		{"0.2 fails", 1, 5, StatusFail},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ids := make([]string, tc.total)
			docs := make(map[string]bool)
			for i := range ids {
				ids[i] = core.ExternalID("event", string(rune('a'+i)))
				if i < tc.present {
					docs[ids[i]] = true
				}
			}

			vector := &scriptedVector{
				stats:     store.VectorStats{Documents: tc.total, Chunks: tc.total},
				documents: docs,
			}
			report := newVerifier(t, healthyGraph(ids), vector, WithProbeDim(4)).Run(context.Background())
			result := resultByName(t, report, "cross-store-consistency")
			assert.Equal(t, tc.want, result.Status)
		})
	}
}

func TestOrphanedEventsWarn(t *testing.T) {
	graph := healthyGraph(nil)
	base := graph.queryFunc
	graph.queryFunc = func(query string, params map[string]any) ([]map[string]any, error) {
		if strings.Contains(query, "orphans") {
			return []map[string]any{{"orphans": int64(3)}}, nil
		}
		return base(query, params)
	}

	report := newVerifier(t, graph, &scriptedVector{}, WithProbeDim(4)).Run(context.Background())
	result := resultByName(t, report, "orphaned-events")
	assert.Equal(t, StatusWarning, result.Status)
	assert.Equal(t, 3, result.Details["orphans"])
}

func TestDuplicateIDsFail(t *testing.T) {
	graph := healthyGraph(nil)
	base := graph.queryFunc
	graph.queryFunc = func(query string, params map[string]any) ([]map[string]any, error) {
		if strings.Contains(query, "copies") {
			return []map[string]any{{"id": "dup-1", "copies": int64(2)}}, nil
		}
		return base(query, params)
	}

	report := newVerifier(t, graph, &scriptedVector{}, WithProbeDim(4)).Run(context.Background())
	result := resultByName(t, report, "duplicate-external-ids")
	assert.Equal(t, StatusFail, result.Status)
	assert.True(t, report.Failed())
}

func TestIndexAbsenceWarns(t *testing.T) {
	graph := healthyGraph(nil)
	base := graph.queryFunc
	graph.queryFunc = func(query string, params map[string]any) ([]map[string]any, error) {
		if strings.Contains(query, "SHOW INDEXES") {
			return nil, errors.New("unsupported in this deployment")
		}
		return base(query, params)
	}

	report := newVerifier(t, graph, &scriptedVector{}, WithProbeDim(4)).Run(context.Background())
	result := resultByName(t, report, "index-presence")
	assert.Equal(t, StatusWarning, result.Status)
}

func TestCheckErrorsBecomeFailEntries(t *testing.T) {
	graph := &scriptedGraph{
		queryFunc: func(query string, params map[string]any) ([]map[string]any, error) {
			return nil, errors.New("connection refused")
		},
	}
	vector := &scriptedVector{
		statsErr:  errors.New("pool exhausted"),
		searchErr: errors.New("pool exhausted"),
	}

	report := newVerifier(t, graph, vector, WithProbeDim(4)).Run(context.Background())

	// Every check still reported; none aborted the run.
	assert.Len(t, report.Results, 8)
	assert.Equal(t, StatusFail, resultByName(t, report, "graph-connectivity").Status)
	assert.Equal(t, StatusFail, resultByName(t, report, "vector-connectivity").Status)
	assert.Equal(t, StatusFail, resultByName(t, report, "vector-search-probe").Status)
	// Index listing failures downgrade to warning, not fail.
	assert.Equal(t, StatusWarning, resultByName(t, report, "index-presence").Status)
}

func TestRatioBelowOneWarns(t *testing.T) {
	vector := &scriptedVector{stats: store.VectorStats{Documents: 10, Chunks: 4}}
	report := newVerifier(t, healthyGraph(nil), vector, WithProbeDim(4)).Run(context.Background())
	result := resultByName(t, report, "document-chunk-ratio")
	assert.Equal(t, StatusWarning, result.Status)
}
