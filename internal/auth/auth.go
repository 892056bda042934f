// Package auth implements the credential store: email/password signup and
// signin, bcrypt password hashing, and bearer sessions that pair a signed
// JWT with a server-side row. A token is only good while both halves agree:
// the signature verifies and the sessions row still exists and has not
// expired, so signout revokes immediately regardless of the JWT's own
// expiry.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Sentinel errors returned by the service. The HTTP layer maps these onto
// status codes.
var (
	// ErrEmailTaken means signup hit an already-registered email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials covers both unknown email and wrong password;
	// callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionInvalid means the presented token is missing, malformed,
	// revoked, or expired.
	ErrSessionInvalid = errors.New("invalid or expired session")
)

// SessionDuration is how long a session (JWT and row alike) stays valid.
const SessionDuration = 7 * 24 * time.Hour

// providerCredential is the provider_id of password accounts; OAuth
// providers would use their own IDs on the same table.
const providerCredential = "credential"

// User is an authenticated account holder.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session pairs a signed token with its server-side expiry.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

// SignupParams are the credential fields of a signup request. Profile
// fields travel separately; the credential store does not own them.
type SignupParams struct {
	Email    string
	Name     string
	Password string
}

// Service implements signup, signin, signout, and per-request
// authentication against PostgreSQL.
//
// Service is safe for concurrent use by multiple goroutines.
type Service struct {
	store  *store
	tokens *tokenSigner
	logger *slog.Logger
}

// NewService creates a Service. secret signs session JWTs and must be at
// least 32 bytes. logger may be nil.
func NewService(pool *pgxpool.Pool, secret []byte, logger *slog.Logger) (*Service, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("auth secret must be at least 32 bytes, got %d", len(secret))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  &store{pool: pool},
		tokens: &tokenSigner{secret: secret},
		logger: logger,
	}, nil
}

// Signup registers a new user with a bcrypt-hashed credential account and
// opens a first session. Returns ErrEmailTaken for duplicate emails.
func (s *Service) Signup(ctx context.Context, params SignupParams) (User, Session, error) {
	email := normalizeEmail(params.Email)
	if email == "" || !strings.Contains(email, "@") {
		return User{}, Session{}, fmt.Errorf("invalid email %q", params.Email)
	}
	if params.Name == "" {
		return User{}, Session{}, fmt.Errorf("name is required")
	}
	if len(params.Password) < 8 {
		return User{}, Session{}, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, Session{}, fmt.Errorf("hashing password: %w", err)
	}

	user, err := s.store.createUserWithAccount(ctx, email, params.Name, string(hash))
	if err != nil {
		return User{}, Session{}, err
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return User{}, Session{}, err
	}

	s.logger.Info("user signed up", "user_id", user.ID)
	return user, session, nil
}

// Signin verifies the password against the stored bcrypt hash and opens a
// session. Unknown email and wrong password both come back as
// ErrInvalidCredentials.
func (s *Service) Signin(ctx context.Context, email, password string) (User, Session, error) {
	user, err := s.store.getUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, errNotFound) {
			return User{}, Session{}, ErrInvalidCredentials
		}
		return User{}, Session{}, err
	}

	hash, err := s.store.getCredentialHash(ctx, user.ID)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return User{}, Session{}, ErrInvalidCredentials
		}
		return User{}, Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, Session{}, ErrInvalidCredentials
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return User{}, Session{}, err
	}

	s.logger.Info("user signed in", "user_id", user.ID)
	return user, session, nil
}

// Signout revokes the session by deleting its row. Unknown tokens are a
// no-op, matching the idempotent semantics of logging out twice.
func (s *Service) Signout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.deleteSession(ctx, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token to its user. The token must carry a
// valid signature AND its sessions row must still exist unexpired.
func (s *Service) Authenticate(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrSessionInvalid
	}

	userID, err := s.tokens.verify(token)
	if err != nil {
		return User{}, ErrSessionInvalid
	}

	expiresAt, err := s.store.getSessionExpiry(ctx, token)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return User{}, ErrSessionInvalid
		}
		return User{}, err
	}
	if time.Now().After(expiresAt) {
		return User{}, ErrSessionInvalid
	}

	user, err := s.store.getUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return User{}, ErrSessionInvalid
		}
		return User{}, err
	}
	return user, nil
}

// createSession mints a token and persists its row.
func (s *Service) createSession(ctx context.Context, userID int64) (Session, error) {
	expiresAt := time.Now().Add(SessionDuration)

	token, err := s.tokens.sign(userID, expiresAt)
	if err != nil {
		return Session{}, fmt.Errorf("signing session token: %w", err)
	}

	if err := s.store.createSession(ctx, token, userID, expiresAt); err != nil {
		return Session{}, fmt.Errorf("storing session: %w", err)
	}

	return Session{Token: token, UserID: userID, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
