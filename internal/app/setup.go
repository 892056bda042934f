package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/darslabs/darsbot/db"
	"github.com/darslabs/darsbot/internal/auth"
	"github.com/darslabs/darsbot/internal/config"
	"github.com/darslabs/darsbot/internal/corpus"
	"github.com/darslabs/darsbot/internal/history"
	"github.com/darslabs/darsbot/internal/ingest"
	"github.com/darslabs/darsbot/internal/profile"
	"github.com/darslabs/darsbot/internal/qdrant"
	"github.com/darslabs/darsbot/internal/rag"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.Pool = pool

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g
	a.Embedder = googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if a.Embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}

	engine, indexer, err := provideEngine(ctx, a, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Engine = engine
	a.Indexer = indexer

	// Ingestion runs without an auth secret; serve validates it up front.
	if cfg.AuthSecret != "" {
		a.Auth, err = auth.NewService(pool, []byte(cfg.AuthSecret), logger)
		if err != nil {
			return nil, err
		}
	}
	a.Profiles, err = profile.New(pool, logger)
	if err != nil {
		return nil, err
	}
	a.History, err = history.New(pool, logger)
	if err != nil {
		return nil, err
	}

	return a, nil
}

// provideOtelShutdown sets up trace export before Genkit initialization, so
// the TracerProvider is ready when flows start. An empty OTLP endpoint
// disables export entirely.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	if cfg.OTLPEndpoint == "" {
		return func() {}
	}

	// Set OTEL env vars for Genkit's TracerProvider to pick up.
	// SAFETY: os.Setenv is not concurrent-safe, but this function is called
	// exactly once during startup in Setup, before goroutines are spawned.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("trace export enabled",
		"endpoint", cfg.OTLPEndpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	shutdown := tracing.TracerProvider().Shutdown

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
// Pool is configured with sensible defaults for connection management.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	cleanup := func() {
		pool.Close()
	}

	return pool, cleanup, nil
}

// provideGenkit initializes Genkit with the Google AI plugin. The plugin
// reads GEMINI_API_KEY from the environment.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}

	logger.Info("initialized Genkit with gemini provider",
		"generation_model", cfg.GenerationModel,
		"embedder_model", cfg.EmbedderModel,
	)
	return g, nil
}

// provideEngine wires the retrieval backend and the Gemini pipeline into a
// rag.Engine. When the configured Qdrant instance does not answer a ping,
// the engine runs on the stub searcher instead of failing startup, and the
// returned indexer is nil (nothing to ingest into).
func provideEngine(ctx context.Context, a *App, cfg *config.Config, logger *slog.Logger) (*rag.Engine, ingest.Indexer, error) {
	embedder, err := rag.NewGeminiEmbedder(a.Embedder)
	if err != nil {
		return nil, nil, err
	}
	generator, err := rag.NewGeminiGenerator(a.Genkit, cfg.GenerationModelName())
	if err != nil {
		return nil, nil, err
	}

	searcher, indexer, err := provideCorpus(ctx, a, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	engine, err := rag.NewEngine(embedder, searcher, generator, cfg.SearchLimit, logger)
	if err != nil {
		return nil, nil, err
	}
	return engine, indexer, nil
}

// provideCorpus selects the retrieval backend.
func provideCorpus(ctx context.Context, a *App, cfg *config.Config, logger *slog.Logger) (rag.Searcher, ingest.Indexer, error) {
	switch cfg.CorpusBackend {
	case config.BackendPgvector:
		store, err := corpus.New(a.Pool, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	case config.BackendQdrant:
		client, err := qdrant.New(qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
		}, logger)
		if err != nil {
			return nil, nil, err
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx); err != nil {
			logger.Warn("qdrant unreachable, falling back to stub retrieval",
				"error", err,
				"url", cfg.QdrantURL,
			)
			return rag.StubSearcher{}, nil, nil
		}
		return client, client, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidCorpusBackend, cfg.CorpusBackend)
	}
}
