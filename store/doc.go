// Package store defines the persistence abstractions for the case graph:
// a GraphStore for nodes and relationships and a VectorStore for embedded
// document chunks. Implementations live in subpackages:
//
//   - store/neo4j: GraphStore over the Neo4j Bolt driver
//   - store/pgvector: VectorStore over PostgreSQL with the pgvector extension
//
// Both stores key records by deterministic external identifiers, which is
// what makes ingestion idempotent: upserting the same source twice changes
// nothing.
package store
