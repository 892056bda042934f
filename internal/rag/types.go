package rag

import (
	"context"
	"time"
)

// VectorDimension is the embedding dimensionality shared by the embedder and
// both corpus backends. gemini-embedding-001 truncates its output to this via
// OutputDimensionality; the pgvector column and the Qdrant collection are
// created with the same size. A mismatch is a deployment error, not something
// the pipeline branches on.
const VectorDimension int32 = 768

// Per-stage timeouts for the three external calls. The engine applies these
// on top of whatever deadline the caller's context carries; there is no
// retry loop behind them.
const (
	EmbedTimeout    = 15 * time.Second
	SearchTimeout   = 10 * time.Second
	GenerateTimeout = 60 * time.Second
)

// Fixed degraded-mode values. These are contract, not cosmetics: tests and
// the frontend rely on the exact strings.
const (
	// FallbackPassageText is returned as the sole context passage when
	// per-request search fails.
	FallbackPassageText = "ROS 2 is a middleware framework for robotics applications."

	// StubPassageText is what StubSearcher serves when the corpus backend
	// was unreachable at startup.
	StubPassageText = "ROS 2 is a middleware framework for robotics..."

	// StubPassageScore is the canned similarity score of the stub passage.
	StubPassageScore = 0.9

	// RefusalText is the grounding refusal the prompt instructs the model
	// to emit when the retrieved context cannot answer the question.
	RefusalText = "I don't have enough information in the textbook to answer that."

	// SourceTextbook is the coarse source attribution on every answer.
	SourceTextbook = "Textbook Content"
)

// LanguageUrdu is the one non-default locale the prompt composer knows, and
// the target of Translate. Any other language code produces no directive.
const LanguageUrdu = "ur"

// DefaultSearchLimit is the number of passages retrieved per question when
// the engine is constructed without an explicit limit.
const DefaultSearchLimit = 3

// Passage is one retrieved chunk of textbook content. Read-only to the
// pipeline; Score is cosine similarity, higher is more relevant.
type Passage struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float32 `json:"score"`
}

// Profile is the snapshot of a learner's background used to bias prompt
// construction. Empty fields render as "Unknown" in the personalization
// block; the zero value of ExperienceLevel renders as "beginner".
type Profile struct {
	SoftwareBackground string `json:"software_background"`
	HardwareBackground string `json:"hardware_background"`
	OperatingSystem    string `json:"operating_system"`
	GPUHardware        string `json:"gpu_hardware"`
	ExperienceLevel    string `json:"experience_level"`
	PreferredLanguage  string `json:"preferred_language"`
}

// Document is one embedded chunk on its way into the corpus. The inverse of
// Passage: ingestion writes Documents, retrieval reads Passages.
type Document struct {
	Text       string
	Source     string
	ChunkIndex int
	Vector     []float32
}

// Answer is the result of Engine.Answer. Context carries the passage texts
// that grounded the response so the HTTP layer can persist them as
// context_used; the engine itself persists nothing.
type Answer struct {
	Text    string
	Sources []string
	Context []string
}

// Embedder turns text into a fixed-length vector of VectorDimension floats.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher returns at most limit passages ordered by descending score.
type Searcher interface {
	Search(ctx context.Context, vector []float32, limit int) ([]Passage, error)
}

// Generator sends a prompt to the language model and returns its text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
