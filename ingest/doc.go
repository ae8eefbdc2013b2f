// Package ingest orchestrates a full ingestion run: parse the source
// archives, upsert graph nodes and relationships, chunk and embed the
// document bodies, and upsert the results into the vector store.
//
// A run has two independent lanes, email and register-of-actions. Per-item
// failures are recorded and skipped rather than aborting the run, a lane
// failure never blocks the sibling lane, and both store connections are
// released on every exit path.
package ingest
