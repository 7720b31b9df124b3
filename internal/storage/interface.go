/*
Package storage implements the persistent catalog and feedback history.

This package provides SQLite-based storage for the product catalog, like
events and search history, with graceful degradation if the database is
unavailable: history writes become no-ops, catalog reads fail with
ErrUnavailable.

The database is stored at ~/.hybrid-rank/catalog.db by default and uses
modernc.org/sqlite (a pure Go, CGo-free implementation).
*/
package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
)

var (
	// ErrNotFound is returned when an item id is not in the catalog.
	ErrNotFound = errors.New("item not found")

	// ErrUnavailable is returned by catalog operations when the database
	// could not be opened.
	ErrUnavailable = errors.New("storage unavailable")
)

// Storage defines the interface for persistent storage operations.
type Storage interface {
	// Init initializes the database and runs migrations.
	Init() error

	// ReplaceProducts recreates the catalog from items.
	ReplaceProducts(items []catalog.Item) error

	// GetAll returns every catalog item ordered by id.
	GetAll(ctx context.Context) ([]catalog.Item, error)

	// GetProduct returns one catalog item.
	GetProduct(ctx context.Context, id int64) (catalog.Item, error)

	// RecordFeedback records a feedback event.
	RecordFeedback(event FeedbackRecord) error

	// GetFeedbackHistory retrieves feedback events since a given time.
	GetFeedbackHistory(since time.Time) ([]FeedbackRecord, error)

	// RecordSearch records a ranking query for analytics.
	RecordSearch(search SearchRecord) error

	// Cleanup removes old history records based on retention policy.
	Cleanup(retention time.Duration) error

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	mu       sync.Mutex
	initOnce sync.Once
}

// NewStorageAt creates a storage instance for the database at dbPath.
// The directory is created on Init.
func NewStorageAt(dbPath string) *SQLiteStorage {
	return &SQLiteStorage{
		dbPath:  dbPath,
		enabled: dbPath != "",
	}
}

// Init initializes the database and runs migrations.
//
// If initialization fails, storage is disabled and subsequent history
// operations become no-ops (graceful degradation).
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return nil
	}

	var initErr error
	s.initOnce.Do(func() {
		dbDir := filepath.Dir(s.dbPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			s.enabled = false
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			s.enabled = false
			log.Warn().Err(initErr).Str("path", s.dbPath).Msg("storage disabled")
			return
		}
		// one writer at a time keeps sqlite from returning SQLITE_BUSY
		db.SetMaxOpenConns(1)
		s.db = db

		if err := db.Ping(); err != nil {
			initErr = fmt.Errorf("failed to ping database: %w", err)
			s.enabled = false
			log.Warn().Err(initErr).Str("path", s.dbPath).Msg("storage disabled")
			return
		}

		if err := s.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			s.enabled = false
			log.Warn().Err(initErr).Str("path", s.dbPath).Msg("storage disabled")
			return
		}
	})

	return initErr
}

// Enabled reports whether the database is open and usable.
func (s *SQLiteStorage) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled && s.db != nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

// HashQuery creates a SHA256 hash of a query string for privacy. An empty
// query hashes to "".
func HashQuery(query string) string {
	if query == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(query))
	return hex.EncodeToString(hash[:])
}

// formatTime is the stored timestamp form. UTC keeps string comparison
// in date order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
