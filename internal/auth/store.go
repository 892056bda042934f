package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// errNotFound is the store-internal miss signal; the service maps it onto
// the public sentinel appropriate to the operation.
var errNotFound = errors.New("not found")

const (
	insertUserSQL = `INSERT INTO users (email, name, email_verified)
	VALUES ($1, $2, TRUE)
	RETURNING id`

	insertAccountSQL = `INSERT INTO accounts (user_id, account_id, provider_id, password)
	VALUES ($1, $2, $3, $4)`

	selectUserByEmailSQL = `SELECT id, email, name FROM users WHERE email = $1`

	selectUserByIDSQL = `SELECT id, email, name FROM users WHERE id = $1`

	selectCredentialHashSQL = `SELECT password FROM accounts
	WHERE user_id = $1 AND provider_id = $2 AND password IS NOT NULL`

	insertSessionSQL = `INSERT INTO sessions (session_token, user_id, expires_at)
	VALUES ($1, $2, $3)`

	selectSessionExpirySQL = `SELECT expires_at FROM sessions WHERE session_token = $1`

	deleteSessionSQL = `DELETE FROM sessions WHERE session_token = $1`
)

// store wraps the SQL for users, accounts, and sessions.
type store struct {
	pool *pgxpool.Pool
}

// createUserWithAccount inserts the user row and its credential account in
// one transaction. A duplicate email surfaces as ErrEmailTaken.
func (s *store) createUserWithAccount(ctx context.Context, email, name, passwordHash string) (User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return User{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var userID int64
	if err := tx.QueryRow(ctx, insertUserSQL, email, name).Scan(&userID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("inserting user: %w", err)
	}

	// account_id doubles as the email for credential accounts.
	if _, err := tx.Exec(ctx, insertAccountSQL, userID, email, providerCredential, passwordHash); err != nil {
		return User{}, fmt.Errorf("inserting credential account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, fmt.Errorf("committing signup: %w", err)
	}

	return User{ID: userID, Email: email, Name: name}, nil
}

func (s *store) getUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, selectUserByEmailSQL, email).Scan(&u.ID, &u.Email, &u.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, errNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("selecting user by email: %w", err)
	}
	return u, nil
}

func (s *store) getUserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, selectUserByIDSQL, id).Scan(&u.ID, &u.Email, &u.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, errNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("selecting user by id: %w", err)
	}
	return u, nil
}

func (s *store) getCredentialHash(ctx context.Context, userID int64) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx, selectCredentialHashSQL, userID, providerCredential).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", errNotFound
	}
	if err != nil {
		return "", fmt.Errorf("selecting credential hash: %w", err)
	}
	return hash, nil
}

func (s *store) createSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	if _, err := s.pool.Exec(ctx, insertSessionSQL, token, userID, expiresAt); err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (s *store) getSessionExpiry(ctx context.Context, token string) (time.Time, error) {
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx, selectSessionExpirySQL, token).Scan(&expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, errNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("selecting session: %w", err)
	}
	return expiresAt, nil
}

func (s *store) deleteSession(ctx context.Context, token string) error {
	if _, err := s.pool.Exec(ctx, deleteSessionSQL, token); err != nil {
		return err
	}
	return nil
}
