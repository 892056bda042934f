package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/darslabs/darsbot/internal/auth"
	"github.com/darslabs/darsbot/internal/history"
	"github.com/darslabs/darsbot/internal/rag"
)

// AuthService is the slice of auth.Service the handlers consume. Declared
// here so tests can substitute a fake without a database.
type AuthService interface {
	Signup(ctx context.Context, params auth.SignupParams) (auth.User, auth.Session, error)
	Signin(ctx context.Context, email, password string) (auth.User, auth.Session, error)
	Signout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (auth.User, error)
}

// ProfileStore is the profile persistence the handlers consume.
type ProfileStore interface {
	Upsert(ctx context.Context, userID int64, p rag.Profile) error
	Get(ctx context.Context, userID int64) (rag.Profile, error)
}

// HistoryStore is the chat-history persistence the handlers consume.
type HistoryStore interface {
	Append(ctx context.Context, userID int64, question, response string, contextPassages []string, language string) error
	Recent(ctx context.Context, userID int64, limit int) ([]history.Entry, error)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Engine      *rag.Engine   // Required
	Auth        AuthService   // Required
	Profiles    ProfileStore  // Required
	History     HistoryStore  // Required
	Pool        *pgxpool.Pool // Optional: nil disables DB ping in /ready
	CORSOrigins []string      // Allowed origins for CORS
	TrustProxy  bool          // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst   int           // Rate limiter burst size per IP (0 = default 60)
	IsDev       bool          // Enables HTTP cookies (no Secure flag)
	Version     string        // Reported by the root banner
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("rag engine is required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("auth service is required")
	}
	if cfg.Profiles == nil {
		return nil, errors.New("profile store is required")
	}
	if cfg.History == nil {
		return nil, errors.New("history store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ah := &authHandler{
		auth:     cfg.Auth,
		profiles: cfg.Profiles,
		isDev:    cfg.IsDev,
		logger:   logger,
	}

	rh := &ragHandler{
		engine:   cfg.Engine,
		auth:     cfg.Auth,
		profiles: cfg.Profiles,
		history:  cfg.History,
		version:  cfg.Version,
		logger:   logger,
	}

	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("POST /api/auth/signup", ah.signup)
	mux.HandleFunc("POST /api/auth/signin", ah.signin)
	mux.HandleFunc("POST /api/auth/signout", ah.signout)
	mux.HandleFunc("GET /api/auth/me", rh.withUser(ah.me))

	// RAG operations
	mux.HandleFunc("POST /api/ask", rh.withUser(rh.ask))
	mux.HandleFunc("POST /api/personalize", rh.withUser(rh.personalize))
	mux.HandleFunc("POST /api/translate", rh.withUser(rh.translate))

	// Chat history
	mux.HandleFunc("GET /api/history", rh.withUser(rh.recentHistory))

	// Service banner
	mux.HandleFunc("GET /{$}", rh.banner)

	// Rate limiter: per-IP token bucket (1 token/sec refill)
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first). RequestID must precede
	// Logging so request_id is available in log attributes; CORS must
	// precede RateLimit so preflight OPTIONS gets proper CORS headers.
	var handler http.Handler = mux
	handler = tokenMiddleware()(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux separates health probes from the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
