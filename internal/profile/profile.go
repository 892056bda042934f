// Package profile persists learner personalization profiles, one row per
// user. The RAG engine consumes these as rag.Profile snapshots; absence of
// a row simply means "no personalization".
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/darslabs/darsbot/internal/rag"
)

// ErrNotFound means the user has no profile row.
var ErrNotFound = errors.New("profile not found")

// Defaults applied by the schema; repeated here for rows read before the
// defaults existed and for zero-value upserts.
const (
	DefaultExperienceLevel   = "beginner"
	DefaultPreferredLanguage = "en"
)

const upsertSQL = `INSERT INTO user_profiles
	(user_id, software_background, hardware_background, operating_system,
	 gpu_hardware, experience_level, preferred_language, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, now())
	ON CONFLICT (user_id) DO UPDATE SET
		software_background = EXCLUDED.software_background,
		hardware_background = EXCLUDED.hardware_background,
		operating_system = EXCLUDED.operating_system,
		gpu_hardware = EXCLUDED.gpu_hardware,
		experience_level = EXCLUDED.experience_level,
		preferred_language = EXCLUDED.preferred_language,
		updated_at = now()`

const selectSQL = `SELECT software_background, hardware_background, operating_system,
	gpu_hardware, experience_level, preferred_language
	FROM user_profiles WHERE user_id = $1`

// Store reads and writes the user_profiles table.
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

// Upsert writes the user's profile, creating or replacing the single row.
// Empty experience level and language fall back to the schema defaults so
// the stored row never carries empty NOT NULL columns.
func (s *Store) Upsert(ctx context.Context, userID int64, p rag.Profile) error {
	level := p.ExperienceLevel
	if level == "" {
		level = DefaultExperienceLevel
	}
	language := p.PreferredLanguage
	if language == "" {
		language = DefaultPreferredLanguage
	}

	_, err := s.pool.Exec(ctx, upsertSQL, userID,
		nullIfEmpty(p.SoftwareBackground),
		nullIfEmpty(p.HardwareBackground),
		nullIfEmpty(p.OperatingSystem),
		nullIfEmpty(p.GPUHardware),
		level, language)
	if err != nil {
		return fmt.Errorf("upserting profile for user %d: %w", userID, err)
	}
	return nil
}

// Get returns the user's profile, or ErrNotFound when none exists.
func (s *Store) Get(ctx context.Context, userID int64) (rag.Profile, error) {
	var (
		software, hardware, os, gpu *string
		p                           rag.Profile
	)

	err := s.pool.QueryRow(ctx, selectSQL, userID).Scan(
		&software, &hardware, &os, &gpu, &p.ExperienceLevel, &p.PreferredLanguage)
	if errors.Is(err, pgx.ErrNoRows) {
		return rag.Profile{}, ErrNotFound
	}
	if err != nil {
		return rag.Profile{}, fmt.Errorf("selecting profile for user %d: %w", userID, err)
	}

	p.SoftwareBackground = deref(software)
	p.HardwareBackground = deref(hardware)
	p.OperatingSystem = deref(os)
	p.GPUHardware = deref(gpu)
	return p, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
