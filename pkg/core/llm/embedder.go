package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultEmbeddingModel = "text-embedding-004"
	embeddingDimension    = 768
)

// GeminiEmbedder implements Embedder on top of the Gemini embedding API.
type GeminiEmbedder struct {
	Model  string
	client *genai.Client
}

var _ Embedder = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder creates an embedder backed by GEMINI_API_KEY.
func NewGeminiEmbedder(ctx context.Context) (*GeminiEmbedder, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %v", err)
	}

	return &GeminiEmbedder{Model: defaultEmbeddingModel, client: client}, nil
}

// Embed returns the embedding vector for the given text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	model := e.Model
	if model == "" {
		model = defaultEmbeddingModel
	}

	em := e.client.EmbeddingModel(model)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding response contained no values")
	}

	return res.Embedding.Values, nil
}

// Dimension returns the fixed output vector length.
func (e *GeminiEmbedder) Dimension() int {
	return embeddingDimension
}

// Close releases the underlying API client.
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
