package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback store. Entries expire lazily
// on read.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	identity  *Identity
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*Identity, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if s.ttl > 0 && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, nil
	}
	return entry.identity, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, identity *Identity) error {
	s.mu.Lock()
	s.entries[key] = memoryEntry{identity: identity, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}
