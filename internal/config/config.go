// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, DATABASE_URL included)
//  2. Config file (~/.darsbot/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: generation and embedder model selection
//   - Retrieval: corpus backend, Qdrant connection, search limit
//   - Storage: PostgreSQL connection (see storage.go)
//   - HTTP: CORS origins, proxy trust, auth secret
//   - Telemetry: optional OTLP trace export
//
// Security: sensitive values (passwords, API keys, the auth secret) are never
// logged; MarshalJSON masks them. Config directory uses 0750 permissions.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidGenerationModel indicates the generation model name is invalid.
	ErrInvalidGenerationModel = errors.New("invalid generation model")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidSearchLimit indicates the retrieval limit is out of range.
	ErrInvalidSearchLimit = errors.New("invalid search limit")

	// ErrInvalidCorpusBackend indicates the corpus backend is not supported.
	ErrInvalidCorpusBackend = errors.New("invalid corpus backend")

	// ErrInvalidQdrantURL indicates the Qdrant URL is missing or malformed.
	ErrInvalidQdrantURL = errors.New("invalid Qdrant URL")

	// ErrInvalidCollection indicates the Qdrant collection name is invalid.
	ErrInvalidCollection = errors.New("invalid collection name")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidAuthSecret indicates the session signing secret is missing or weak.
	ErrInvalidAuthSecret = errors.New("invalid auth secret")
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 outputs 3072 dimensions by default, but supports
	// truncation to 768 via OutputDimensionality (Matryoshka Representation
	// Learning). The passage schema uses 768 dimensions; see rag.VectorDimension.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultGenerationModel is the default Gemini generation model.
	DefaultGenerationModel = "gemini-2.0-flash"

	// DefaultCollection is the Qdrant collection holding textbook chunks.
	DefaultCollection = "textbook_content"

	// DefaultSearchLimit is the default number of passages retrieved per question.
	DefaultSearchLimit = 3

	// MaxSearchLimit bounds the retrieval limit to keep prompts small.
	MaxSearchLimit = 10

	// DefaultRateBurst is the default per-IP rate limiter burst size.
	DefaultRateBurst = 60
)

// Corpus backend identifiers used in Config.CorpusBackend.
const (
	BackendQdrant   = "qdrant"
	BackendPgvector = "pgvector"
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// AI model configuration
	GenerationModel string `mapstructure:"generation_model" json:"generation_model"` // e.g. "gemini-2.0-flash"
	EmbedderModel   string `mapstructure:"embedder_model" json:"embedder_model"`     // e.g. "gemini-embedding-001"

	// Retrieval configuration
	CorpusBackend    string `mapstructure:"corpus_backend" json:"corpus_backend"` // "qdrant" (default) or "pgvector"
	SearchLimit      int    `mapstructure:"search_limit" json:"search_limit"`
	QdrantURL        string `mapstructure:"qdrant_url" json:"qdrant_url"`
	QdrantAPIKey     string `mapstructure:"qdrant_api_key" json:"qdrant_api_key" sensitive:"true"` // SENSITIVE: masked in MarshalJSON
	QdrantCollection string `mapstructure:"qdrant_collection" json:"qdrant_collection"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password" sensitive:"true"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP configuration (serve mode only)
	AuthSecret  string   `mapstructure:"auth_secret" json:"auth_secret" sensitive:"true"` // SENSITIVE: masked in MarshalJSON
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For headers (set true behind reverse proxy)
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`   // Per-IP rate limiter burst size

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Telemetry configuration. Empty OTLPEndpoint disables trace export.
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
	Environment  string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.darsbot/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".darsbot")

	// Ensure directory exists (use 0750 permission for better security)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	// Configure Viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	// Set default values
	setDefaults()

	// Bind environment variables
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	// Use Unmarshal to automatically map to struct (type-safe)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Parse DATABASE_URL if set (highest priority for PostgreSQL config)
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// CRITICAL: Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("generation_model", DefaultGenerationModel)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)

	// Retrieval defaults
	viper.SetDefault("corpus_backend", BackendQdrant)
	viper.SetDefault("search_limit", DefaultSearchLimit)
	viper.SetDefault("qdrant_url", "http://localhost:6333")
	viper.SetDefault("qdrant_collection", DefaultCollection)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "darsbot")
	viper.SetDefault("postgres_password", "darsbot_dev_password")
	viper.SetDefault("postgres_db_name", "darsbot")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// CORS defaults (frontend dev server)
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})

	// Proxy trust (default: false, safe for direct exposure; set true behind reverse proxy)
	viper.SetDefault("trust_proxy", false)

	// Rate limiter burst per IP
	viper.SetDefault("rate_burst", DefaultRateBurst)

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)

	// Telemetry defaults
	viper.SetDefault("service_name", "darsbot")
	viper.SetDefault("environment", "dev")
}

// bindEnvVariables binds environment variables explicitly.
// Secrets come only from the environment, never from config.yaml on disk:
//  1. GEMINI_API_KEY - Read directly by Genkit (not via Viper), validated in cfg.Validate()
//  2. QDRANT_API_KEY - Qdrant Cloud API key (optional for local Qdrant)
//  3. AUTH_SECRET - JWT signing secret (serve mode only; BETTER_AUTH_SECRET also accepted)
//  4. DATABASE_URL - parsed separately in parseDatabaseURL()
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key string, envVars ...string) {
		if err := viper.BindEnv(append([]string{key}, envVars...)...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %v: %v", key, envVars, err))
		}
	}

	// Qdrant connection
	mustBind("qdrant_url", "QDRANT_URL")
	mustBind("qdrant_api_key", "QDRANT_API_KEY")
	mustBind("qdrant_collection", "QDRANT_COLLECTION")

	// Auth secret (serve mode session tokens); BETTER_AUTH_SECRET kept for
	// compatibility with deployments that share the secret with the frontend
	mustBind("auth_secret", "AUTH_SECRET", "BETTER_AUTH_SECRET")

	// CORS origins (serve mode, comma-separated list)
	mustBind("cors_origins", "DARSBOT_CORS_ORIGINS")

	// Proxy trust (serve mode, behind reverse proxy)
	mustBind("trust_proxy", "DARSBOT_TRUST_PROXY")

	// Rate limiter burst (serve mode)
	mustBind("rate_burst", "DARSBOT_RATE_BURST")

	// Model and backend overrides
	mustBind("generation_model", "DARSBOT_GENERATION_MODEL")
	mustBind("embedder_model", "DARSBOT_EMBEDDER_MODEL")
	mustBind("corpus_backend", "DARSBOT_CORPUS_BACKEND")

	// Logging
	mustBind("log_level", "DARSBOT_LOG_LEVEL")
	mustBind("log_json", "DARSBOT_LOG_JSON")

	// Telemetry
	mustBind("otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	// NOTE: GEMINI_API_KEY is read directly by the Genkit GoogleAI plugin, not
	// via Viper. Validation checks its presence in cfg.Validate().
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid substring matching against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 bytes or fewer are fully masked to prevent substring attacks;
// longer secrets keep the first and last 2 characters for debug utility.
//
// THREAT MODEL: This defends against accidental logging of real secrets.
// It is NOT cryptographically secure - if logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//   - QdrantAPIKey
//   - AuthSecret
//
// When adding new sensitive fields, update this method.
// TestConfig_SensitiveFieldsHaveTag will remind you when it fails.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	a.QdrantAPIKey = maskSecret(a.QdrantAPIKey)
	a.AuthSecret = maskSecret(a.AuthSecret)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// GenerationModelName returns the provider-qualified model name for Genkit.
// Example: "googleai/gemini-2.0-flash".
// If GenerationModel already contains a "/", it is returned as-is.
func (c *Config) GenerationModelName() string {
	if strings.Contains(c.GenerationModel, "/") {
		return c.GenerationModel
	}
	return "googleai/" + c.GenerationModel
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
