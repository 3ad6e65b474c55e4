package service

import (
	"context"

	"github.com/google/uuid"

	"nightout/internal/auth/models"
)

// Platform is the identity platform the service mirrors.
// Error Contract: errors wrap sentinel.ErrUnavailable for transport failures and
// sentinel.ErrUnauthorized when the platform rejects the credentials.
type Platform interface {
	// Subscribe registers fn for every auth-state change, delivered in order.
	Subscribe(fn func(models.Notification)) (unsubscribe func(), err error)
	// GetCurrentSession returns nil, nil when no one is signed in.
	GetCurrentSession(ctx context.Context) (*models.Session, error)
	SignOut(ctx context.Context) error
}

// ProfileStore persists application profiles.
// Error Contract: FindByID returns sentinel.ErrNotFound when the profile doesn't exist.
type ProfileStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}

// FlagStore holds the first-run flags cleared on sign-out.
type FlagStore interface {
	Remove(ctx context.Context, key string) error
}
