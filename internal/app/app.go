// Package app provides application initialization and dependency injection.
//
// App is the container that wires configuration, storage, the Gemini
// pipeline, and the domain stores together. Setup builds everything in
// dependency order; Close releases it in reverse.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/darslabs/darsbot/internal/auth"
	"github.com/darslabs/darsbot/internal/config"
	"github.com/darslabs/darsbot/internal/history"
	"github.com/darslabs/darsbot/internal/ingest"
	"github.com/darslabs/darsbot/internal/profile"
	"github.com/darslabs/darsbot/internal/rag"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	// AI pipeline
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Engine   *rag.Engine

	// Storage
	Pool    *pgxpool.Pool
	Indexer ingest.Indexer // Write side of the corpus; nil when running on the stub

	// Domain services
	Auth     *auth.Service
	Profiles *profile.Store
	History  *history.Store

	otelCleanup func()
	dbCleanup   func()
}

// Close gracefully releases all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.dbCleanup != nil {
		a.dbCleanup()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
