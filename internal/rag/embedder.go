package rag

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"google.golang.org/genai"
)

// GeminiEmbedder adapts a Genkit ai.Embedder to the Embedder interface,
// pinning the output dimensionality to VectorDimension.
//
// GeminiEmbedder is safe for concurrent use.
type GeminiEmbedder struct {
	embedder ai.Embedder
}

// NewGeminiEmbedder wraps a Genkit embedder handle (typically
// googlegenai.GoogleAIEmbedder).
func NewGeminiEmbedder(embedder ai.Embedder) (*GeminiEmbedder, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	return &GeminiEmbedder{embedder: embedder}, nil
}

// Embed generates the embedding for text. Errors propagate to the caller;
// the Engine, not this adapter, owns the zero-vector fallback.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := VectorDimension
	resp, err := e.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}

	vec := resp.Embeddings[0].Embedding
	if len(vec) != int(VectorDimension) {
		return nil, fmt.Errorf("embedding dimension %d, want %d", len(vec), VectorDimension)
	}
	return vec, nil
}

// ZeroVector returns the all-zero embedding used as the degraded-mode query
// vector. Searching with it yields arbitrary low-relevance passages, which
// is the accepted trade against failing the request.
func ZeroVector() []float32 {
	return make([]float32, VectorDimension)
}
