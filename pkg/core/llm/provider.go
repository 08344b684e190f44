package llm

import (
	"context"
)

// Provider is the interface for all LLM providers. The core treats text
// completion as an opaque service: one prompt in, one response out.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// Embedder converts text into a fixed-length float vector. Called once per
// chunk at index time and once per question at query time; no caching.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
