// Package rag implements the retrieval-augmented generation pipeline for
// the textbook chatbot: embed a question, search the passage corpus,
// compose a grounded prompt, and generate an answer.
//
// The pipeline degrades instead of failing. Every external dependency
// (embedding, vector search, generation) has a fixed fallback value, so the
// three public Engine operations (Answer, Personalize, Translate) never
// return an error. A broken upstream shows up as a lower-quality answer,
// not an outage.
//
// Components:
//   - Embedder / Generator: Gemini via Genkit (embedder.go, generator.go)
//   - Searcher: Qdrant or pgvector corpus, plus StubSearcher (stub.go)
//   - Prompt composition: pure, deterministic functions (prompt.go)
//   - Engine: the orchestrator (engine.go)
package rag
