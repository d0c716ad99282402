// Package sqlite provides a SQLite-backed contentledger.Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tendant/content-ledger/pkg/contentledger"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `CREATE TABLE IF NOT EXISTS content_entries (
	content_key BLOB PRIMARY KEY,
	entry       BLOB NOT NULL
) WITHOUT ROWID`

// Store persists ledger entries in a single SQLite table.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the database file at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single writer connection keeps read-modify-write transactions serial.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Get(ctx context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT entry FROM content_entries WHERE content_key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contentledger.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return value, nil
}

func (s *Store) Insert(ctx context.Context, key, value []byte) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO content_entries (content_key, entry) VALUES (?, ?)`, key, value,
	)
	if isUniqueViolation(err) {
		return contentledger.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, key []byte, fn func(current []byte) ([]byte, error)) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current []byte
	err = tx.QueryRowContext(ctx,
		`SELECT entry FROM content_entries WHERE content_key = ?`, key,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return contentledger.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read entry: %w", err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE content_entries SET entry = ? WHERE content_key = ?`, next, key,
	); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Scan(ctx context.Context, fn func(key, value []byte) error) error {
	// Rows are buffered first; with one open connection fn could not
	// otherwise call back into the store.
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT content_key, entry FROM content_entries ORDER BY content_key`,
	)
	if err != nil {
		return fmt.Errorf("scan entries: %w", err)
	}
	type pair struct{ key, value []byte }
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.key, &p.value); err != nil {
			rows.Close()
			return fmt.Errorf("scan row: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate entries: %w", err)
	}
	rows.Close()

	for _, p := range pairs {
		if err := fn(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ contentledger.Store = (*Store)(nil)
