// Package ai defines the embedding abstraction used by the ingestion and
// retrieval pipelines.
//
// The package contains only interfaces and configuration. Concrete
// implementations live in subpackages:
//
//   - ai/openai: OpenAI-compatible embedding APIs via langchaingo
//   - ai/mock: deterministic test doubles
//
// Callers depend on the ai.Embedder interface and choose an implementation
// at wiring time.
package ai
