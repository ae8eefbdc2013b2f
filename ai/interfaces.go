package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates embeddings for multiple texts. The returned
	// slice is position-aligned with the input: result[i] is the embedding
	// of texts[i]. Returns an error if any embedding fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
