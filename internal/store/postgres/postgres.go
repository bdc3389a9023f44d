// Package postgres is the networked SQL store backend built on pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talespring/talespring-server/internal/store"
)

// DB is the subset of *pgxpool.Pool the store uses. pgxmock pools satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PoolConfig holds tunable pool parameters. Zero values use the defaults.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// Store provides Postgres-backed persistence.
type Store struct {
	db     DB
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS content_items (
		id                  TEXT PRIMARY KEY,
		author_id           TEXT NOT NULL,
		author_display_name TEXT NOT NULL DEFAULT '',
		title               TEXT NOT NULL,
		title_fold          TEXT NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		description_fold    TEXT NOT NULL DEFAULT '',
		body                TEXT NOT NULL,
		category            TEXT NOT NULL,
		cover_image_ref     TEXT,
		created_at          TIMESTAMPTZ NOT NULL,
		read_count          BIGINT NOT NULL DEFAULT 0 CHECK (read_count >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_content_items_created ON content_items (created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_content_items_category ON content_items (category, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_content_items_author ON content_items (author_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS relations (
		user_id    TEXT NOT NULL,
		content_id TEXT NOT NULL,
		kind       TEXT NOT NULL CHECK (kind IN ('favorite', 'bookmark')),
		created_at TIMESTAMPTZ NOT NULL,
		seq        BIGINT GENERATED ALWAYS AS IDENTITY,
		PRIMARY KEY (user_id, content_id, kind)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_relations_user_kind ON relations (user_id, kind, created_at DESC, seq DESC)`,
}

// Connect opens a pool, verifies it and applies the schema.
func Connect(ctx context.Context, dsn string, logger *slog.Logger, pc PoolConfig) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.MaxConns = 10
	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	}
	cfg.MinConns = 2
	if pc.MinConns > 0 {
		cfg.MinConns = pc.MinConns
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	s := New(pool, logger)
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("postgres store connected", "max_conns", cfg.MaxConns)
	return s, nil
}

// New wraps an existing connection.
func New(db DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// InitSchema creates tables and indexes that do not exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return store.Unavailable("postgres: ping", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
