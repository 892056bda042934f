// Package history persists chat transcripts. The RAG engine never writes
// here itself; the HTTP layer appends one entry after each answered
// question, keeping the retrieved context alongside the response for audit.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one answered question.
type Entry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Message     string    `json:"message"`
	Response    string    `json:"response"`
	ContextUsed string    `json:"context_used"`
	Language    string    `json:"language"`
	CreatedAt   time.Time `json:"created_at"`
}

const insertSQL = `INSERT INTO chat_messages (user_id, message, response, context_used, language)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at`

const recentSQL = `SELECT id, user_id, message, response, context_used, language, created_at
	FROM chat_messages
	WHERE user_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2`

// defaultRecentLimit bounds Recent when the caller passes no limit.
const defaultRecentLimit = 50

// Store appends to and reads from the chat_messages table.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store. logger may be nil.
func New(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Append records one answered question. contextPassages are joined with
// newlines into context_used, matching how answers were grounded.
func (s *Store) Append(ctx context.Context, userID int64, question, response string, contextPassages []string, language string) error {
	var id int64
	var createdAt time.Time
	err := s.pool.QueryRow(ctx, insertSQL,
		userID, question, response, strings.Join(contextPassages, "\n"), language,
	).Scan(&id, &createdAt)
	if err != nil {
		return fmt.Errorf("inserting chat message for user %d: %w", userID, err)
	}

	s.logger.Debug("chat message saved", "user_id", userID, "message_id", id)
	return nil
}

// Recent returns the user's latest entries, newest first. limit values
// below 1 fall back to the default.
func (s *Store) Recent(ctx context.Context, userID int64, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = defaultRecentLimit
	}

	rows, err := s.pool.Query(ctx, recentSQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("selecting chat messages for user %d: %w", userID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var contextUsed *string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Message, &e.Response, &contextUsed, &e.Language, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat message: %w", err)
		}
		if contextUsed != nil {
			e.ContextUsed = *contextUsed
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chat messages: %w", err)
	}

	return entries, nil
}
