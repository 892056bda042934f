package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// GeminiGenerator adapts Genkit text generation to the Generator interface.
//
// GeminiGenerator is safe for concurrent use.
type GeminiGenerator struct {
	g     *genkit.Genkit
	model string
}

// NewGeminiGenerator creates a generator bound to a provider-qualified model
// name, e.g. "googleai/gemini-2.0-flash".
func NewGeminiGenerator(g *genkit.Genkit, model string) (*GeminiGenerator, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	return &GeminiGenerator{g: g, model: model}, nil
}

// Generate runs the prompt through the model and returns the response text.
// Errors propagate; the Engine converts them to the apology string.
func (p *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, p.g,
		ai.WithModelName(p.model),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty model response")
	}
	return text, nil
}
