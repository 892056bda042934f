// Package ingest reads a markdown documentation tree, cleans and chunks it,
// embeds each chunk, and writes the result into the vector corpus. A file
// lock guards against concurrent runs clobbering each other's batches.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/schollz/progressbar/v3"

	"github.com/darslabs/darsbot/internal/rag"
)

const (
	// DefaultChunkSize is the target chunk length in words.
	DefaultChunkSize = 400

	// minChunkChars drops fragments too short to be worth embedding.
	minChunkChars = 50

	// batchSize is the number of documents uploaded per indexer call.
	batchSize = 10

	// DefaultPattern selects the files to ingest, relative to the docs root.
	DefaultPattern = "**/*.md"
)

// ErrLocked means another ingestion run holds the lock.
var ErrLocked = errors.New("another ingestion is already running")

// Indexer receives embedded documents. Both the Qdrant client and the
// pgvector store satisfy it.
type Indexer interface {
	EnsureReady(ctx context.Context, reset bool) error
	Upsert(ctx context.Context, docs []rag.Document) error
	Count(ctx context.Context) (int64, error)
}

// Options configures a run.
type Options struct {
	DocsDir   string // Directory to scan. Required.
	Pattern   string // Doublestar file pattern. Default "**/*.md".
	ChunkSize int    // Words per chunk. Default 400.
	Reset     bool   // Drop and recreate the collection first.
	LockPath  string // Lock file path. Default <tmp>/darsbot-ingest.lock.
	Progress  bool   // Render a terminal progress bar.
}

// Summary reports what a run accomplished.
type Summary struct {
	Files   int   // Markdown files processed
	Chunks  int   // Chunks embedded and uploaded
	Skipped int   // Chunks dropped for being too short
	Failed  int   // Chunks that failed to embed
	Indexed int64 // Corpus size after the run
}

// Ingester runs document ingestion.
type Ingester struct {
	embedder rag.Embedder
	indexer  Indexer
	logger   *slog.Logger
}

// New creates an Ingester. logger may be nil.
func New(embedder rag.Embedder, indexer Indexer, logger *slog.Logger) (*Ingester, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if indexer == nil {
		return nil, errors.New("indexer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{embedder: embedder, indexer: indexer, logger: logger}, nil
}

// Run ingests all matching files under opts.DocsDir.
func (ing *Ingester) Run(ctx context.Context, opts Options) (Summary, error) {
	if opts.DocsDir == "" {
		return Summary{}, errors.New("docs directory is required")
	}
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.LockPath == "" {
		opts.LockPath = filepath.Join(os.TempDir(), "darsbot-ingest.lock")
	}

	lock := flock.New(opts.LockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return Summary{}, fmt.Errorf("acquiring ingest lock: %w", err)
	}
	if !locked {
		return Summary{}, ErrLocked
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			ing.logger.Warn("releasing ingest lock", "error", err)
		}
	}()

	files, err := findFiles(opts.DocsDir, opts.Pattern)
	if err != nil {
		return Summary{}, err
	}
	if len(files) == 0 {
		return Summary{}, fmt.Errorf("no files matching %q under %s", opts.Pattern, opts.DocsDir)
	}

	if err := ing.indexer.EnsureReady(ctx, opts.Reset); err != nil {
		return Summary{}, fmt.Errorf("preparing corpus: %w", err)
	}

	ing.logger.Info("starting ingestion",
		"files", len(files),
		"docs_dir", opts.DocsDir,
		"chunk_size", opts.ChunkSize,
		"reset", opts.Reset,
	)

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Ingesting"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(os.Stderr)
			}),
		)
	}

	var summary Summary
	var batch []rag.Document

	docsRoot, err := filepath.Abs(opts.DocsDir)
	if err != nil {
		return Summary{}, fmt.Errorf("resolving docs root: %w", err)
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if err := ing.ingestFile(ctx, path, docsRoot, opts.ChunkSize, &batch, &summary); err != nil {
			return summary, err
		}
		summary.Files++

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if len(batch) > 0 {
		if err := ing.indexer.Upsert(ctx, batch); err != nil {
			return summary, fmt.Errorf("uploading final batch: %w", err)
		}
	}

	count, err := ing.indexer.Count(ctx)
	if err != nil {
		ing.logger.Warn("reading corpus size", "error", err)
	} else {
		summary.Indexed = count
	}

	ing.logger.Info("ingestion complete",
		"files", summary.Files,
		"chunks", summary.Chunks,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"indexed", summary.Indexed,
	)
	return summary, nil
}

// ingestFile cleans, chunks, embeds, and batches one markdown file.
// Embedding failures skip the chunk rather than aborting the run.
func (ing *Ingester) ingestFile(ctx context.Context, path, docsRoot string, chunkSize int, batch *[]rag.Document, summary *Summary) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	source, err := filepath.Rel(docsRoot, path)
	if err != nil {
		source = filepath.Base(path)
	}
	source = filepath.ToSlash(source)

	chunks := ChunkText(CleanMarkdown(string(raw)), chunkSize)
	for i, chunk := range chunks {
		if len(chunk) < minChunkChars {
			summary.Skipped++
			continue
		}

		vector, err := ing.embedder.Embed(ctx, chunk)
		if err != nil {
			ing.logger.Error("embedding chunk",
				"error", err,
				"source", source,
				"chunk_index", i,
			)
			summary.Failed++
			continue
		}

		*batch = append(*batch, rag.Document{
			Text:       chunk,
			Source:     source,
			ChunkIndex: i,
			Vector:     vector,
		})
		summary.Chunks++

		if len(*batch) >= batchSize {
			if err := ing.indexer.Upsert(ctx, *batch); err != nil {
				return fmt.Errorf("uploading batch: %w", err)
			}
			*batch = (*batch)[:0]
		}
	}
	return nil
}
