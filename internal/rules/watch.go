package rules

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// WatchedSource serves the rules file from memory and reloads it after the
// file changes on disk. Edits take effect on the next ranking pass without
// a restart.
type WatchedSource struct {
	file    *FileSource
	path    string
	watcher *fsnotify.Watcher

	mu         sync.RWMutex
	cached     []Rule
	valid      bool
	generation uint64

	wg sync.WaitGroup
}

// NewWatchedSource watches the directory holding path. The file itself may
// not exist yet; it is picked up once created.
func NewWatchedSource(path string) (*WatchedSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create rules watcher: %w", err)
	}
	// Editors replace files by rename, so watch the directory, not the file.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	s := &WatchedSource{
		file:    NewFileSource(abs),
		path:    abs,
		watcher: watcher,
	}
	s.wg.Add(1)
	go s.loop()
	return s, nil
}

// Rules returns the cached rule set, reading the file if it changed since
// the last call. Read errors are not cached.
func (s *WatchedSource) Rules() ([]Rule, error) {
	s.mu.RLock()
	if s.valid {
		out := StaticSource(s.cached)
		s.mu.RUnlock()
		return out.Rules()
	}
	gen := s.generation
	s.mu.RUnlock()

	rules, err := s.file.Rules()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// a change that arrived during the read leaves the cache invalid
	if s.generation == gen {
		s.cached = rules
		s.valid = true
	}
	s.mu.Unlock()

	return StaticSource(rules).Rules()
}

// Close stops watching.
func (s *WatchedSource) Close() error {
	err := s.watcher.Close()
	s.wg.Wait()
	return err
}

func (s *WatchedSource) loop() {
	defer s.wg.Done()
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			log.Debug().Str("path", s.path).Str("op", ev.Op.String()).Msg("rules file changed")
			s.invalidate()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("path", s.path).Msg("rules watcher error")
			s.invalidate()
		}
	}
}

func (s *WatchedSource) invalidate() {
	s.mu.Lock()
	s.valid = false
	s.cached = nil
	s.generation++
	s.mu.Unlock()
}
