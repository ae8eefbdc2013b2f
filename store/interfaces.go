package store

import (
	"context"

	"github.com/mwauters/casegraph/core"
)

// Neighborhood is the bounded subgraph around a starting node: every node
// reachable within the hop limit plus the relationships among that node
// set. Both slices are empty when the start node has no neighbors.
type Neighborhood struct {
	Nodes         []map[string]any
	Relationships []map[string]any
}

// GraphStore persists nodes and relationships keyed by external id.
// Implementations must be safe for concurrent use after Connect.
type GraphStore interface {
	// Connect establishes the database connection and verifies it.
	// A no-op when already connected; a failure propagates immediately.
	Connect(ctx context.Context) error

	// Close releases the connection. Safe to call when never connected.
	Close(ctx context.Context) error

	// UpsertNode merges a node by externalId under the given label,
	// overwrites the supplied properties, and stamps updatedAt.
	UpsertNode(ctx context.Context, label, externalID string, props map[string]any) error

	// UpsertNodeWithLabels merges a node carrying multiple labels. At
	// least one label is required.
	UpsertNodeWithLabels(ctx context.Context, labels []string, externalID string, props map[string]any) error

	// UpsertEvent, UpsertContinuance, UpsertPerson, and UpsertDocument
	// are typed wrappers delegating to the single node-merge path.
	UpsertEvent(ctx context.Context, event core.Event) error
	UpsertContinuance(ctx context.Context, cont core.Continuance) error
	UpsertPerson(ctx context.Context, person core.Person) error
	UpsertDocument(ctx context.Context, doc core.Document) error

	// CreateRelationship merges one directed edge of the given type
	// between two nodes matched by external id across any label,
	// overwriting props. Nothing is created when either endpoint is
	// missing.
	CreateRelationship(ctx context.Context, fromID, toID, relType string, props map[string]any) error

	// GetNeighborhood returns the subgraph within hops traversals of the
	// start node, direction-agnostic, bounded by limit.
	GetNeighborhood(ctx context.Context, externalID string, hops, limit int) (Neighborhood, error)

	// ExecuteQuery runs a raw Cypher query and returns the records as
	// key/value maps. Escape hatch for the verifier and the CLI.
	ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// VectorStats summarizes vector store contents.
type VectorStats struct {
	Documents int
	Chunks    int
	Sources   []string
}

// VectorStore persists documents and their embedded chunks and serves
// similarity queries. Implementations must be safe for concurrent use
// after Connect.
type VectorStore interface {
	// Connect establishes the connection pool and ensures schema.
	Connect(ctx context.Context) error

	// Close releases the pool. Safe to call when never connected.
	Close(ctx context.Context) error

	// UpsertDocument merges a document row by external id.
	UpsertDocument(ctx context.Context, doc core.Document) error

	// UpsertChunk merges a chunk row by external id. The chunk must carry
	// an embedding; ErrMissingEmbedding otherwise.
	UpsertChunk(ctx context.Context, chunk core.Chunk) error

	// UpsertChunks merges many chunks in one round trip.
	UpsertChunks(ctx context.Context, chunks []core.Chunk) error

	// GetDocument returns a document row; ErrNotFound when absent.
	GetDocument(ctx context.Context, externalID string) (core.Document, error)

	// ListChunks pages chunks (without embeddings) in a stable order.
	// Used by re-embedding and verification.
	ListChunks(ctx context.Context, offset, limit int) ([]core.Chunk, error)

	// VectorSearch returns chunks at or above threshold cosine similarity
	// to the query embedding, best first. A non-empty source restricts
	// results to documents with that source label.
	VectorSearch(ctx context.Context, embedding []float32, limit int, threshold float32, source string) ([]core.SearchHit, error)

	// KeywordSearch returns chunks matching the query text by full-text
	// search. Matching is binary: every hit carries full weight.
	KeywordSearch(ctx context.Context, keywords string, limit int) ([]core.SearchHit, error)

	// HybridSearch merges vector and keyword results into one ranking.
	HybridSearch(ctx context.Context, embedding []float32, keywords string, limit int, threshold float32) ([]core.SearchHit, error)

	// Stats reports document and chunk counts plus the distinct document
	// source labels.
	Stats(ctx context.Context) (VectorStats, error)
}
