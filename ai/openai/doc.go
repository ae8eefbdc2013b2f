// Package openai implements ai.Embedder against OpenAI-compatible
// embedding APIs using langchaingo. It handles client-side batching,
// request pacing, and linear-backoff retries so callers can hand it
// arbitrarily large text sets.
package openai
