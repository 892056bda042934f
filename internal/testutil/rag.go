package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/darslabs/darsbot/internal/log"
	"github.com/darslabs/darsbot/internal/rag"
)

// Embedder is a deterministic rag.Embedder: the vector is derived from a
// SHA-256 of the input text, so the same text always embeds identically and
// different texts (almost) never collide. Set Err to simulate provider
// failure.
//
// Thread-safe for concurrent use.
type Embedder struct {
	Err error

	mu    sync.Mutex
	texts []string
}

// Embed returns the hash-derived vector and records the input text.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.texts = append(e.texts, text)
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}
	return HashVector(text), nil
}

// Texts returns a copy of all embedded inputs, in call order.
func (e *Embedder) Texts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]string, len(e.texts))
	copy(cp, e.texts)
	return cp
}

// HashVector derives a unit-scale vector of rag.VectorDimension floats from
// text. Deterministic; no external calls.
func HashVector(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, rag.VectorDimension)
	for i := range vec {
		// Cycle through the digest four bytes at a time.
		off := (i * 4) % (len(sum) - 3)
		v := binary.BigEndian.Uint32(sum[off : off+4])
		vec[i] = float32(v%1000)/1000 - 0.5
	}
	return vec
}

// Searcher is a canned rag.Searcher. Set Err to simulate an unreachable
// backend.
//
// Thread-safe for concurrent use.
type Searcher struct {
	Passages []rag.Passage
	Err      error

	mu      sync.Mutex
	vectors [][]float32
}

// Search records the query vector and returns the canned passages.
func (s *Searcher) Search(_ context.Context, vector []float32, _ int) ([]rag.Passage, error) {
	s.mu.Lock()
	s.vectors = append(s.vectors, vector)
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	return s.Passages, nil
}

// Vectors returns a copy of all query vectors, in call order.
func (s *Searcher) Vectors() [][]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([][]float32, len(s.vectors))
	copy(cp, s.vectors)
	return cp
}

// Generator is a canned rag.Generator that records prompts.
//
// Thread-safe for concurrent use.
type Generator struct {
	Response string
	Err      error

	mu      sync.Mutex
	prompts []string
}

// Generate records the prompt and returns the canned response.
func (g *Generator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.Err != nil {
		return "", g.Err
	}
	return g.Response, nil
}

// Prompts returns a copy of all prompts, in call order.
func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := make([]string, len(g.prompts))
	copy(cp, g.prompts)
	return cp
}

// NewEngine builds a rag.Engine wired to the given doubles, with a silent
// logger and the default retrieval limit.
func NewEngine(t *testing.T, e rag.Embedder, s rag.Searcher, g rag.Generator) *rag.Engine {
	t.Helper()
	engine, err := rag.NewEngine(e, s, g, rag.DefaultSearchLimit, log.NewNop())
	if err != nil {
		t.Fatalf("building test engine: %v", err)
	}
	return engine
}
