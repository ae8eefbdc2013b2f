// Package cache persists chunk embeddings keyed by content checksum, so
// re-ingesting unchanged source material never re-calls the embedding API.
// The backing store is BadgerDB; vectors are serialized with the MUS
// binary format. Entries are scoped to the embedding model, so switching
// models naturally misses the old entries.
package cache
