// Package session keeps the client-side conversation identifier.
//
// The identifier is generated once, persisted in a Store and reused on
// every chat request until the backend hands out a different one.
package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Key is the fixed storage key holding the session identifier.
const Key = "rorichat.session_id"

type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

type Tracker struct {
	mu      sync.Mutex
	store   Store
	current string
	newID   func() string
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, newID: uuid.NewString}
}

// Ensure returns the persisted identifier, generating and storing one if absent.
func (t *Tracker) Ensure() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != "" {
		return t.current, nil
	}

	id, ok, err := t.store.Get(Key)
	if err != nil {
		return "", fmt.Errorf("load session id: %w", err)
	}
	if ok && id != "" {
		t.current = id
		return id, nil
	}

	id = t.newID()
	if err := t.store.Set(Key, id); err != nil {
		return "", fmt.Errorf("persist session id: %w", err)
	}
	t.current = id
	return id, nil
}

func (t *Tracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Adopt makes a backend-provided identifier authoritative.
func (t *Tracker) Adopt(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id == "" || id == t.current {
		return nil
	}
	if err := t.store.Set(Key, id); err != nil {
		return fmt.Errorf("persist session id: %w", err)
	}
	t.current = id
	return nil
}

// Reset replaces the identifier with a fresh one, starting a new conversation.
func (t *Tracker) Reset() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.newID()
	if err := t.store.Set(Key, id); err != nil {
		return "", fmt.Errorf("persist session id: %w", err)
	}
	t.current = id
	return id, nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
