package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const storeOpTimeout = 2 * time.Second

// SQLiteStore persists the token in a single-row SQLite table so that a
// login survives between CLI invocations.
type SQLiteStore struct {
	db     *sql.DB
	logger *logrus.Logger
	now    func() time.Time
}

// NewSQLiteStore opens (creating if needed) the session database at dbPath.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	store, err := NewSQLStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStore wraps an already opened database and ensures the schema exists.
func NewSQLStore(db *sql.DB, logger *logrus.Logger) (*SQLiteStore, error) {
	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create session schema: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger, now: time.Now}, nil
}

func createSchema(db *sql.DB) error {
	schema := `CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`
	_, err := db.Exec(schema)
	return err
}

// Set stores token, replacing any previous one. An empty token clears.
func (s *SQLiteStore) Set(token string) {
	if token == "" {
		s.Clear()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session (id, token, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`,
		token, s.now().UTC(),
	)
	if err != nil {
		s.logger.WithError(err).Error("Failed to persist session token")
	}
}

// Get returns the stored token. Expired tokens are dropped and reported absent.
func (s *SQLiteStore) Get() (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()

	var token string
	err := s.db.QueryRowContext(ctx, "SELECT token FROM session WHERE id = 1").Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		s.logger.WithError(err).Error("Failed to read session token")
		return "", false
	}

	if expiredToken(token, s.now()) {
		s.logger.Info("Stored session token has expired")
		s.Clear()
		return "", false
	}
	return token, token != ""
}

// Clear deletes the stored token; idempotent.
func (s *SQLiteStore) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM session WHERE id = 1"); err != nil {
		s.logger.WithError(err).Error("Failed to clear session token")
	}
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks that the database file is reachable
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
