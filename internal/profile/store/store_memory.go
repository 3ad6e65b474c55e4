// Package store persists application profiles.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"nightout/internal/auth/models"
	"nightout/internal/sentinel"
)

// InMemoryStore keeps profiles in a map for tests and single-process dev runs.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]*models.Profile
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[uuid.UUID]*models.Profile)}
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("profile %s: %w", id, sentinel.ErrNotFound)
}

// Upsert inserts the profile or overwrites its mutable fields, keeping CreatedAt.
func (s *InMemoryStore) Upsert(_ context.Context, profile *models.Profile) error {
	if profile == nil || profile.ID == uuid.Nil {
		return fmt.Errorf("profile without id: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *profile
	if existing, ok := s.profiles[profile.ID]; ok {
		cp.CreatedAt = existing.CreatedAt
		if cp.Phone == "" {
			cp.Phone = existing.Phone
		}
		if cp.AvatarURL == "" {
			cp.AvatarURL = existing.AvatarURL
		}
	}
	s.profiles[profile.ID] = &cp
	return nil
}

// Len returns the number of stored profiles.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}
