package rag

import "context"

// StubSearcher stands in for the corpus when the configured backend was
// unreachable at startup. It always succeeds with one canned passage, so
// the server comes up and answers degrade instead of the process refusing
// to boot without its vector store.
type StubSearcher struct{}

// Search returns the single canned passage regardless of vector or limit.
func (StubSearcher) Search(_ context.Context, _ []float32, _ int) ([]Passage, error) {
	return []Passage{{
		Text:   StubPassageText,
		Source: SourceTextbook,
		Score:  StubPassageScore,
	}}, nil
}
