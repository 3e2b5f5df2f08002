package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

// DB is the subset of *pgxpool.Pool used here.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS model_artifacts (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT        NOT NULL,
	artifact    BYTEA       NOT NULL,
	active      BOOLEAN     NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS model_artifacts_name_created_idx
	ON model_artifacts (name, created_at DESC);
`

// EnsureSchema creates the artifact table if it is missing.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create model_artifacts: %w", err)
	}
	return nil
}

// ArtifactSource serves the newest active model artifact with a given name.
// It satisfies model.Source.
type ArtifactSource struct {
	db   DB
	name string
}

// NewArtifactSource creates a source for the named model.
func NewArtifactSource(db DB, name string) *ArtifactSource {
	return &ArtifactSource{db: db, name: name}
}

// Fetch returns the artifact bytes.
func (s *ArtifactSource) Fetch(ctx context.Context) ([]byte, error) {
	query := `
		SELECT artifact
		FROM model_artifacts
		WHERE name = $1 AND active
		ORDER BY created_at DESC
		LIMIT 1
	`
	var data []byte
	err := s.db.QueryRow(ctx, query, s.name).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no active artifact named %q", s.name)
	}
	if err != nil {
		return nil, fmt.Errorf("query artifact %q: %w", s.name, err)
	}
	return data, nil
}

// Describe identifies the source in logs and metadata.
func (s *ArtifactSource) Describe() string {
	return "postgres:model_artifacts/" + s.name
}
