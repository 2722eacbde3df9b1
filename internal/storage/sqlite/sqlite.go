package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/michaelbrown/ibrl/internal/storage"

	_ "modernc.org/sqlite"
)

// CredentialStore implements storage.CredentialStore backed by a SQLite database.
type CredentialStore struct {
	db *sql.DB
}

var _ storage.CredentialStore = (*CredentialStore)(nil)

// Open creates or opens a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database (useful for testing).
func Open(dbPath string) (*CredentialStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &CredentialStore{db: db}, nil
}

func (s *CredentialStore) Credential(ctx context.Context, name string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM credentials WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrCredentialNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading credential %s: %w", name, err)
	}
	return value, nil
}

func (s *CredentialStore) SetCredential(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (name, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		name, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing credential %s: %w", name, err)
	}
	return nil
}

func (s *CredentialStore) DeleteCredential(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deleting credential %s: %w", name, err)
	}
	return nil
}

func (s *CredentialStore) Close() error {
	return s.db.Close()
}
