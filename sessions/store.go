package sessions

import "sync"

// Store is the keyed store backing a Registry. It exists as an explicit
// seam so the registry's concurrency discipline can be exercised against a
// test double. Implementations must make each operation atomic with respect
// to the others: a concurrent Get must never observe a half-inserted entry.
type Store interface {
	Get(id string) (*Session, bool)
	Put(id string, sess *Session)
	Delete(id string)
}

// memoryStore is the default in-process Store. An RWMutex is sufficient for
// atomicity: inserts and deletes are whole-map operations and lookups on
// different ids never block each other beyond map access.
type memoryStore struct {
	mu sync.RWMutex
	m  map[string]*Session
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{m: make(map[string]*Session)}
}

func (s *memoryStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.m[id]
	return sess, ok
}

func (s *memoryStore) Put(id string, sess *Session) {
	s.mu.Lock()
	s.m[id] = sess
	s.mu.Unlock()
}

func (s *memoryStore) Delete(id string) {
	s.mu.Lock()
	delete(s.m, id)
	s.mu.Unlock()
}
