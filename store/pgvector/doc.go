// Package pgvector implements store.VectorStore over PostgreSQL with the
// pgvector extension. Documents and chunks live in two tables keyed by
// external_id; similarity search goes through a match_document_chunks SQL
// function so the ranking logic lives next to the index that serves it.
package pgvector
