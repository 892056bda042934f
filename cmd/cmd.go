// Package cmd provides CLI commands for darsbot.
//
// Commands:
//   - serve: HTTP API server (auth, ask, personalize, translate, history)
//   - ingest: read markdown docs, embed, and load the vector corpus
//
// Signal handling and graceful shutdown are implemented for both commands
// via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/darslabs/darsbot/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// Execute is the main entry point for the darsbot CLI application.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "ingest":
		return runIngest()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("darsbot - Textbook chatbot backend")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  darsbot serve [addr]   Start HTTP API server (default: 127.0.0.1:8000)")
	fmt.Println("  darsbot ingest --docs <dir>")
	fmt.Println("                         Ingest markdown docs into the vector corpus")
	fmt.Println("  darsbot --version      Show version information")
	fmt.Println("  darsbot --help         Show this help")
	fmt.Println()
	fmt.Println("Ingest flags:")
	fmt.Println("  --docs <dir>           Docs directory to scan (required)")
	fmt.Println("  --pattern <glob>       File pattern, default **/*.md")
	fmt.Println("  --chunk-size <n>       Words per chunk, default 400")
	fmt.Println("  --reset                Drop and recreate the collection first")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY         Required: Gemini API key")
	fmt.Println("  DARSBOT_AUTH_SECRET    Required for serve: session signing secret")
	fmt.Println("  DARSBOT_QDRANT_URL     Qdrant endpoint (default backend)")
	fmt.Println("  DEBUG                  Optional: Enable debug logging")
}
