package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. API key validation (required for embedding and generation)
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	// 2. Model configuration validation
	if c.GenerationModel == "" {
		return fmt.Errorf("%w: generation_model cannot be empty", ErrInvalidGenerationModel)
	}

	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	// 3. Retrieval configuration validation
	if c.SearchLimit < 1 || c.SearchLimit > MaxSearchLimit {
		return fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidSearchLimit, MaxSearchLimit, c.SearchLimit)
	}

	if c.CorpusBackend != BackendQdrant && c.CorpusBackend != BackendPgvector {
		return fmt.Errorf("%w: %q is not valid, must be %q or %q",
			ErrInvalidCorpusBackend, c.CorpusBackend, BackendQdrant, BackendPgvector)
	}

	if c.QdrantCollection == "" {
		return fmt.Errorf("%w: qdrant_collection cannot be empty", ErrInvalidCollection)
	}

	// Qdrant URL is only required when Qdrant is the active backend.
	if c.CorpusBackend == BackendQdrant {
		if c.QdrantURL == "" {
			return fmt.Errorf("%w: qdrant_url cannot be empty with corpus_backend=qdrant", ErrInvalidQdrantURL)
		}
		parsed, err := url.Parse(c.QdrantURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%w: %q must be an absolute URL like http://localhost:6333", ErrInvalidQdrantURL, c.QdrantURL)
		}
	}

	// 4. PostgreSQL configuration validation
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set (config.yaml or DATABASE_URL)",
			ErrInvalidPostgresPassword)
	}

	// Warn on the default dev password but don't block - user might be in dev
	if c.PostgresPassword == "darsbot_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password for production deployments")
	}

	if len(c.PostgresPassword) < 8 {
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	}

	// 5. PostgreSQL SSL mode validation
	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable)
	// Reference: https://www.postgresql.org/docs/current/libpq-ssl.html
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if c.PostgresSSLMode == "" {
		return fmt.Errorf("%w: postgres_ssl_mode is empty (should have default from setDefaults)",
			ErrInvalidPostgresSSLMode)
	}

	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v\n"+
			"Note: 'allow' and 'prefer' modes are deprecated (vulnerable to MITM attacks)",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}

// ValidateServe validates everything Validate does plus the serve-only
// fields. Ingestion runs don't sign sessions, so the auth secret is only
// enforced here.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if len(c.AuthSecret) < 32 {
		return fmt.Errorf("%w: auth_secret must be at least 32 characters (got %d)",
			ErrInvalidAuthSecret, len(c.AuthSecret))
	}

	return nil
}
