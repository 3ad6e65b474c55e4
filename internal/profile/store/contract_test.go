package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nightout/internal/auth/models"
	"nightout/internal/sentinel"
)

type profileStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}

// runStoreContract exercises behaviour every profile store must share.
func runStoreContract(t *testing.T, store profileStore) {
	t.Helper()
	ctx := context.Background()
	created := time.Date(2026, 10, 18, 21, 0, 0, 0, time.UTC)

	t.Run("missing profile", func(t *testing.T) {
		_, err := store.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("insert then update keeps created_at", func(t *testing.T) {
		id := uuid.New()
		require.NoError(t, store.Upsert(ctx, &models.Profile{
			ID: id, Username: "janedoe", FullName: "Jane Doe", Phone: "+447700900000",
			CreatedAt: created, UpdatedAt: created,
		}))

		later := created.Add(time.Hour)
		require.NoError(t, store.Upsert(ctx, &models.Profile{
			ID: id, Username: "jane", FullName: "Jane D.", CreatedAt: later, UpdatedAt: later,
		}))

		p, err := store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "jane", p.Username)
		assert.Equal(t, "Jane D.", p.FullName)
		assert.Equal(t, "+447700900000", p.Phone)
		assert.True(t, p.CreatedAt.Equal(created))
		assert.True(t, p.UpdatedAt.Equal(later))
	})

	t.Run("rejects nil id", func(t *testing.T) {
		err := store.Upsert(ctx, &models.Profile{Username: "x"})
		assert.ErrorIs(t, err, sentinel.ErrInvalidInput)
	})
}
