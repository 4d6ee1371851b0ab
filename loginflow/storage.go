package loginflow

import (
	"sync"
)

// Keys the login flow keeps in client storage.
const (
	KeyReturnURL    = "oauth_returnurl"
	KeyState        = "oauth_state"
	KeySessionToken = "graphyToken"
)

// DefaultReturnPath is used when no return path was stored.
const DefaultReturnPath = "/dashboard"

// Storage is the client side key/value store the flow persists into. In a
// browser this is local storage; the server backs it with cookies.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// Notifier is implemented by storages that can report changes.
type Notifier interface {
	// Subscribe registers fn to be called with the changed key. The returned
	// func removes the subscription.
	Subscribe(fn func(key string)) (unsubscribe func())
}

// TakeReturnPath reads the stored return path and removes it, so a second
// call returns DefaultReturnPath.
func TakeReturnPath(s Storage) string {
	path, ok := s.Get(KeyReturnURL)
	s.Remove(KeyReturnURL)
	if !ok || path == "" {
		return DefaultReturnPath
	}
	return path
}

// MemoryStorage is an in-process Storage with change notifications.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
	subs   map[int]func(string)
	nextID int
}

var (
	_ Storage  = (*MemoryStorage)(nil)
	_ Notifier = (*MemoryStorage)(nil)
)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		values: make(map[string]string),
		subs:   make(map[int]func(string)),
	}
}

func (m *MemoryStorage) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStorage) Set(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	m.notify(key)
}

func (m *MemoryStorage) Remove(key string) {
	m.mu.Lock()
	_, existed := m.values[key]
	delete(m.values, key)
	m.mu.Unlock()
	if existed {
		m.notify(key)
	}
}

func (m *MemoryStorage) Subscribe(fn func(key string)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// notify runs subscribers outside the lock so they may read the storage.
func (m *MemoryStorage) notify(key string) {
	m.mu.RLock()
	subs := make([]func(string), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subs {
		fn(key)
	}
}
