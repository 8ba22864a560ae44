// Package store persists client state in a local libsql database:
// credentials, profile, scheduled sessions and interview results.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/prepmate/interview-client/internal/observability"
)

// FileName is the database file created inside the data directory
const FileName = "prepmate.db"

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Store is the local database
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open creates dataDir if needed and opens the database inside it
func Open(ctx context.Context, dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return OpenDSN(ctx, "file:"+filepath.Join(dataDir, FileName))
}

// OpenDSN opens a libsql DSN and applies pending migrations
func OpenDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer keeps sqlite file locking simple
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: observability.WithComponent("store"),
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) (bool, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
