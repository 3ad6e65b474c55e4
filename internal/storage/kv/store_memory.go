package kv

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"nightout/internal/sentinel"
)

// InMemoryStore keeps entries in a map for tests and single-process dev runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]string)}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.entries[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("key %q: %w", key, sentinel.ErrNotFound)
}

func (s *InMemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

func (s *InMemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Snapshot returns a copy of every entry.
func (s *InMemoryStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.entries))
	maps.Copy(out, s.entries)
	return out
}
