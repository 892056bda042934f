package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Engine orchestrates the pipeline: embed → search → compose → generate.
//
// None of the three public operations returns an error. Each stage converts
// its failure to a fixed degraded value (zero vector, canned passage,
// apology text, unchanged content), so callers always get a well-formed
// result. Engine holds no mutable cross-request state and is safe for
// concurrent use.
type Engine struct {
	embedder  Embedder
	searcher  Searcher
	generator Generator
	limit     int
	logger    *slog.Logger
}

// AskRequest carries one question through the pipeline. SelectedText, when
// present, changes the retrieval query itself (see BuildQuery). Profile may
// be nil ("no personalization").
type AskRequest struct {
	Question     string
	SelectedText string
	Language     string
	Profile      *Profile
}

// NewEngine creates an Engine. limit is the passages-per-question retrieval
// count; values below 1 fall back to DefaultSearchLimit. logger may be nil.
func NewEngine(embedder Embedder, searcher Searcher, generator Generator, limit int, logger *slog.Logger) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if limit < 1 {
		limit = DefaultSearchLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
		limit:     limit,
		logger:    logger,
	}, nil
}

// Answer runs the full pipeline for one question and returns the answer
// text, the fixed source attribution, and the context passages that
// grounded it. The caller persists chat history; Answer does not.
func (e *Engine) Answer(ctx context.Context, req AskRequest) Answer {
	query := BuildQuery(req.Question, req.SelectedText)
	passages := e.SearchContext(ctx, query)

	contexts := make([]string, len(passages))
	for i, p := range passages {
		contexts[i] = p.Text
	}

	prompt := ComposeAnswer(req.Question, contexts, req.Profile, req.Language)
	text := e.generate(ctx, prompt)

	return Answer{
		Text:    text,
		Sources: []string{SourceTextbook},
		Context: contexts,
	}
}

// Personalize adapts content to a learner profile. On any generation
// failure the original content comes back unchanged; personalization is
// best-effort by contract.
func (e *Engine) Personalize(ctx context.Context, content string, profile Profile) string {
	prompt := ComposePersonalize(content, profile)

	genCtx, cancel := context.WithTimeout(ctx, GenerateTimeout)
	defer cancel()

	text, err := e.generator.Generate(genCtx, prompt)
	if err != nil {
		e.logger.Error("personalization failed, returning original content", "error", err)
		return content
	}
	return text
}

// Translate renders content in Urdu. On failure the content comes back
// unchanged, same contract as Personalize.
func (e *Engine) Translate(ctx context.Context, content string) string {
	prompt := ComposeTranslate(content)

	genCtx, cancel := context.WithTimeout(ctx, GenerateTimeout)
	defer cancel()

	text, err := e.generator.Generate(genCtx, prompt)
	if err != nil {
		e.logger.Error("translation failed, returning original content", "error", err)
		return content
	}
	return text
}

// SearchContext embeds the query and retrieves the most relevant passages.
// Embedding failure degrades to the zero vector; search failure degrades to
// the single canned fallback passage. Results are in descending score order.
func (e *Engine) SearchContext(ctx context.Context, query string) []Passage {
	vector := e.embedQuery(ctx, query)

	searchCtx, cancel := context.WithTimeout(ctx, SearchTimeout)
	defer cancel()

	passages, err := e.searcher.Search(searchCtx, vector, e.limit)
	if err != nil {
		e.logger.Error("context search failed, using fallback passage", "error", err)
		return []Passage{{Text: FallbackPassageText, Source: SourceTextbook}}
	}

	// The backends order by score already; re-sorting here keeps the prompt
	// deterministic even if one of them stops doing so.
	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})
	return passages
}

// embedQuery converts any embedding failure into the zero vector so search
// still executes.
func (e *Engine) embedQuery(ctx context.Context, query string) []float32 {
	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()

	vector, err := e.embedder.Embed(embedCtx, query)
	if err != nil {
		e.logger.Error("embedding failed, using zero vector", "error", err)
		return ZeroVector()
	}
	return vector
}

// generate converts any generation failure into the fixed apology string
// that embeds the underlying error. Raw provider errors never reach the
// end user.
func (e *Engine) generate(ctx context.Context, prompt string) string {
	genCtx, cancel := context.WithTimeout(ctx, GenerateTimeout)
	defer cancel()

	text, err := e.generator.Generate(genCtx, prompt)
	if err != nil {
		e.logger.Error("answer generation failed", "error", err)
		return fmt.Sprintf("I apologize, but I encountered an error generating a response. Error: %v", err)
	}
	return text
}

// Limit reports the configured passages-per-question retrieval count.
func (e *Engine) Limit() int {
	return e.limit
}
