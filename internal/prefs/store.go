package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Store persists a single preference record.
type Store interface {
	Load() (Record, error)
	Save(Record) error
}

// FileStore keeps a record as an indented JSON document.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file does not need to exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the persisted record decoded over the defaults, so fields
// missing from the file keep their default values.
//
// A missing file yields the defaults and no error. An unreadable or
// malformed file also yields the defaults, together with the error so the
// caller can report it.
func (s *FileStore) Load() (Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("failed to read preferences: %w", err)
	}

	rec := Default()
	if err := json.Unmarshal(data, &rec); err != nil {
		return Default(), fmt.Errorf("failed to parse preferences %s: %w", s.path, err)
	}
	if rec.BrandWeights == nil {
		rec.BrandWeights = map[string]float64{}
	}
	if rec.CategoryWeights == nil {
		rec.CategoryWeights = map[string]float64{}
	}
	return rec, nil
}

// Save overwrites the file atomically, keeping the previous version as .bak.
func (s *FileStore) Save(rec Record) error {
	if err := backupFile(s.path); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("failed to back up preferences")
	}

	data, err := json.MarshalIndent(rec.Clone(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	if err := atomicWrite(s.path, data); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}

func backupFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil // first save
		}
		return err
	}
	return os.WriteFile(path+".bak", data, 0644)
}

func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
