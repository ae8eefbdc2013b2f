// Package reembed regenerates embeddings for chunks already stored in the
// vector store, paging through them in stable order. Used after switching
// embedding models, when every stored vector is stale at once.
package reembed
