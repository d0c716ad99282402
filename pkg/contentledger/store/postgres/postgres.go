// Package postgres provides a PostgreSQL-backed contentledger.Store.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-ledger/pkg/contentledger"
)

// DBTX is satisfied by *pgxpool.Pool and *pgx.Conn.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Schema creates the single table used by Store.
const Schema = `CREATE TABLE IF NOT EXISTS content_entries (
	content_key BYTEA PRIMARY KEY,
	entry       BYTEA NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Store implements contentledger.Store using PostgreSQL
type Store struct {
	db   DBTX
	pool *pgxpool.Pool // set only when the store owns the pool
}

// New creates a new PostgreSQL store. The caller keeps ownership of db.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// NewWithPool creates a new PostgreSQL store on a caller-owned connection pool
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Open creates a pool from cfg and returns a store that owns it. The pool is
// closed by Close.
func Open(ctx context.Context, cfg *pgxpool.Config) (*Store, error) {
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return &Store{db: pool, pool: pool}, nil
}

// EnsureSchema creates the content_entries table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return handlePostgresError("ensure schema", err)
	}
	return nil
}

// Close releases the pool when the store owns one.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	query := `SELECT entry FROM content_entries WHERE content_key = $1`

	var value []byte
	err := s.db.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		return nil, handlePostgresError("get entry", err)
	}
	return value, nil
}

func (s *Store) Insert(ctx context.Context, key, value []byte) error {
	query := `
		INSERT INTO content_entries (content_key, entry)
		VALUES ($1, $2)
		ON CONFLICT (content_key) DO NOTHING`

	tag, err := s.db.Exec(ctx, query, key, value)
	if err != nil {
		return handlePostgresError("insert entry", err)
	}
	if tag.RowsAffected() == 0 {
		return contentledger.ErrAlreadyExists
	}
	return nil
}

func (s *Store) Update(ctx context.Context, key []byte, fn func(current []byte) ([]byte, error)) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return handlePostgresError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var current []byte
	err = tx.QueryRow(ctx,
		`SELECT entry FROM content_entries WHERE content_key = $1 FOR UPDATE`, key,
	).Scan(&current)
	if err != nil {
		return handlePostgresError("lock entry", err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE content_entries SET entry = $2, updated_at = NOW() WHERE content_key = $1`,
		key, next,
	); err != nil {
		return handlePostgresError("update entry", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return handlePostgresError("commit transaction", err)
	}
	return nil
}

func (s *Store) Scan(ctx context.Context, fn func(key, value []byte) error) error {
	rows, err := s.db.Query(ctx, `SELECT content_key, entry FROM content_entries ORDER BY content_key`)
	if err != nil {
		return handlePostgresError("scan entries", err)
	}
	type pair struct{ key, value []byte }
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.key, &p.value); err != nil {
			rows.Close()
			return handlePostgresError("scan row", err)
		}
		pairs = append(pairs, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return handlePostgresError("scan entries", err)
	}

	for _, p := range pairs {
		if err := fn(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

func handlePostgresError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return contentledger.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return contentledger.ErrAlreadyExists
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - run EnsureSchema first")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

var _ contentledger.Store = (*Store)(nil)
