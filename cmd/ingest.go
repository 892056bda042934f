package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/darslabs/darsbot/internal/app"
	"github.com/darslabs/darsbot/internal/config"
	"github.com/darslabs/darsbot/internal/ingest"
	"github.com/darslabs/darsbot/internal/log"
	"github.com/darslabs/darsbot/internal/rag"
)

// ingestOptions holds the parsed ingest command flags.
type ingestOptions struct {
	docsDir   string
	pattern   string
	chunkSize int
	reset     bool
}

// parseIngestFlags parses the ingest command line.
func parseIngestFlags(args []string) (ingestOptions, error) {
	var opts ingestOptions

	ingestFlags := flag.NewFlagSet("ingest", flag.ContinueOnError)
	ingestFlags.SetOutput(os.Stderr)
	ingestFlags.StringVar(&opts.docsDir, "docs", "", "Docs directory to scan (required)")
	ingestFlags.StringVar(&opts.pattern, "pattern", ingest.DefaultPattern, "File pattern relative to the docs directory")
	ingestFlags.IntVar(&opts.chunkSize, "chunk-size", ingest.DefaultChunkSize, "Words per chunk")
	ingestFlags.BoolVar(&opts.reset, "reset", false, "Drop and recreate the collection before ingesting")

	if err := ingestFlags.Parse(args); err != nil {
		return opts, fmt.Errorf("parsing ingest flags: %w", err)
	}

	if opts.docsDir == "" {
		return opts, errors.New("--docs is required")
	}
	info, err := os.Stat(opts.docsDir)
	if err != nil {
		return opts, fmt.Errorf("docs directory: %w", err)
	}
	if !info.IsDir() {
		return opts, fmt.Errorf("docs path is not a directory: %s", opts.docsDir)
	}

	return opts, nil
}

// runIngest reads markdown docs, embeds them, and loads the vector corpus.
func runIngest() error {
	var args []string
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	opts, err := parseIngestFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), JSON: cfg.LogJSON})

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if a.Indexer == nil {
		return fmt.Errorf("corpus backend %q is unreachable, nothing to ingest into", cfg.CorpusBackend)
	}

	embedder, err := rag.NewGeminiEmbedder(a.Embedder)
	if err != nil {
		return err
	}

	ing, err := ingest.New(embedder, a.Indexer, logger)
	if err != nil {
		return err
	}

	summary, err := ing.Run(ctx, ingest.Options{
		DocsDir:   opts.docsDir,
		Pattern:   opts.pattern,
		ChunkSize: opts.chunkSize,
		Reset:     opts.reset,
		Progress:  true,
	})
	if err != nil {
		return fmt.Errorf("ingesting docs: %w", err)
	}

	fmt.Printf("Ingestion complete: %d files, %d chunks uploaded, %d skipped, %d failed\n",
		summary.Files, summary.Chunks, summary.Skipped, summary.Failed)
	fmt.Printf("Corpus now holds %d vectors\n", summary.Indexed)
	return nil
}
