package prefs

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultUser is the implicit single user of the CLI.
const DefaultUser = "default"

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Manager partitions preference records per user and serializes every
// read-modify-write of a record behind that user's lock.
type Manager struct {
	dir string

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	stores map[string]Store

	newStore func(path string) Store
}

// NewManager returns a manager rooted at dir. The default user lives in
// dir/prefs.json, every other user in dir/users/<id>.json.
func NewManager(dir string) *Manager {
	return &Manager{
		dir:      dir,
		locks:    make(map[string]*sync.Mutex),
		stores:   make(map[string]Store),
		newStore: func(path string) Store { return NewFileStore(path) },
	}
}

// PathFor returns the file holding user's record.
func (m *Manager) PathFor(user string) string {
	if user == "" || user == DefaultUser {
		return filepath.Join(m.dir, "prefs.json")
	}
	return filepath.Join(m.dir, "users", user+".json")
}

// Get loads user's record. Load failures fall back to the defaults and are
// logged, never returned.
func (m *Manager) Get(user string) (Record, error) {
	store, lock, err := m.acquire(user)
	if err != nil {
		return Record{}, err
	}
	lock.Lock()
	defer lock.Unlock()

	return m.load(user, store), nil
}

// Update loads user's record fresh, applies fn and persists the result
// before returning. If fn fails nothing is written.
func (m *Manager) Update(user string, fn func(*Record) error) (Record, error) {
	store, lock, err := m.acquire(user)
	if err != nil {
		return Record{}, err
	}
	lock.Lock()
	defer lock.Unlock()

	rec := m.load(user, store)
	if err := fn(&rec); err != nil {
		return Record{}, err
	}
	if err := store.Save(rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Reset restores the defaults for user and discards learned weights.
func (m *Manager) Reset(user string) (Record, error) {
	return m.Update(user, func(r *Record) error {
		*r = Default()
		return nil
	})
}

func (m *Manager) load(user string, store Store) Record {
	rec, err := store.Load()
	if err != nil {
		log.Warn().Err(err).Str("user", userOrDefault(user)).Msg("using default preferences")
	}
	return rec
}

func (m *Manager) acquire(user string) (Store, *sync.Mutex, error) {
	user = userOrDefault(user)
	if !userIDPattern.MatchString(user) {
		return nil, nil, fmt.Errorf("%w %q", ErrInvalidUser, user)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[user]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[user] = lock
		m.stores[user] = m.newStore(m.PathFor(user))
	}
	return m.stores[user], lock, nil
}

func userOrDefault(user string) string {
	if user == "" {
		return DefaultUser
	}
	return user
}
