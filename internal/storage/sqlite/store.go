package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dtroode/workdesk-client/internal/model"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Row keys for the persisted token pair.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
)

var _ model.TokenStore = (*Store)(nil)

// Store implements model.TokenStore backed by a local SQLite database.
// modernc.org/sqlite is pure Go, so the client cross-compiles without CGO.
type Store struct {
	db *sql.DB
}

// New opens or creates the token database at the given path and applies
// migrations. Use ":memory:" for an ephemeral database.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open token database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping token database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate token database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an already-open database. The caller is responsible for
// the schema; used by tests and callers that manage connections themselves.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Get returns the persisted token pair. Missing rows yield empty fields.
func (s *Store) Get(ctx context.Context) (model.TokenPair, error) {
	const query = `SELECT key, value FROM tokens WHERE key IN (?, ?)`

	rows, err := s.db.QueryContext(ctx, query, keyAccessToken, keyRefreshToken)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to get tokens: %w", err)
	}
	defer rows.Close()

	var pair model.TokenPair
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return model.TokenPair{}, fmt.Errorf("failed to scan token row: %w", err)
		}
		switch key {
		case keyAccessToken:
			pair.AccessToken = value
		case keyRefreshToken:
			pair.RefreshToken = value
		}
	}
	if err := rows.Err(); err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to read token rows: %w", err)
	}

	return pair, nil
}

// Set stores the token pair, replacing any previous one.
func (s *Store) Set(ctx context.Context, pair model.TokenPair) error {
	const query = `
        INSERT INTO tokens (key, value, updated_at) VALUES (?, ?, datetime('now'))
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
    `

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, keyAccessToken, pair.AccessToken); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, keyRefreshToken, pair.RefreshToken); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tokens: %w", err)
	}
	return nil
}

// Clear removes all persisted tokens.
func (s *Store) Clear(ctx context.Context) error {
	const query = `DELETE FROM tokens`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return errors.New("token database is not open")
	}
	return s.db.Close()
}
