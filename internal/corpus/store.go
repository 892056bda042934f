// Package corpus is the pgvector-backed passage index: the self-hosted
// alternative to the Qdrant backend. Same contract on both sides: cosine
// search for retrieval, batched upserts for ingestion.
package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/darslabs/darsbot/internal/rag"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// searchSQL orders by cosine distance; similarity reported to callers is
// 1 - distance so that higher means more relevant, matching the Qdrant
// backend's scores.
const searchSQL = `SELECT content, source, 1 - (embedding <=> $1) AS score
	FROM passages
	ORDER BY embedding <=> $1
	LIMIT $2`

// upsertSQL makes re-ingestion of the same document idempotent via the
// (source, chunk_index) unique constraint.
const upsertSQL = `INSERT INTO passages (source, chunk_index, content, embedding)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (source, chunk_index)
	DO UPDATE SET content = EXCLUDED.content, embedding = EXCLUDED.embedding`

// Store reads and writes the passages table.
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

// Search implements rag.Searcher over the passages table.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]rag.Passage, error) {
	if len(vector) != int(rag.VectorDimension) {
		return nil, fmt.Errorf("query vector dimension %d, want %d", len(vector), rag.VectorDimension)
	}
	if limit < 1 {
		limit = rag.DefaultSearchLimit
	}

	rows, err := s.pool.Query(ctx, searchSQL, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("searching passages: %w", err)
	}
	defer rows.Close()

	var passages []rag.Passage
	for rows.Next() {
		var p rag.Passage
		if err := rows.Scan(&p.Text, &p.Source, &p.Score); err != nil {
			return nil, fmt.Errorf("scanning passage: %w", err)
		}
		passages = append(passages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passages: %w", err)
	}

	return passages, nil
}

// EnsureReady prepares the table for ingestion. The table itself comes from
// migrations; with reset, existing rows are truncated so ingestion starts
// from scratch.
func (s *Store) EnsureReady(ctx context.Context, reset bool) error {
	if !reset {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `TRUNCATE passages`); err != nil {
		return fmt.Errorf("truncating passages: %w", err)
	}
	s.logger.Info("truncated passages table")
	return nil
}

// Upsert writes a batch of embedded documents in one transaction, so a
// failed batch leaves no partial rows behind.
func (s *Store) Upsert(ctx context.Context, docs []rag.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, doc := range docs {
		if len(doc.Vector) != int(rag.VectorDimension) {
			return fmt.Errorf("document %s[%d]: vector dimension %d, want %d",
				doc.Source, doc.ChunkIndex, len(doc.Vector), rag.VectorDimension)
		}
		if err := s.upsertOne(ctx, tx, doc); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing passage batch: %w", err)
	}
	return nil
}

func (s *Store) upsertOne(ctx context.Context, q querier, doc rag.Document) error {
	vec := pgvector.NewVector(doc.Vector)
	if _, err := q.Exec(ctx, upsertSQL, doc.Source, doc.ChunkIndex, doc.Text, vec); err != nil {
		return fmt.Errorf("upserting passage %s[%d]: %w", doc.Source, doc.ChunkIndex, err)
	}
	return nil
}

// Count returns the number of stored passages.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM passages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return count, nil
}
