package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nightout/internal/sentinel"
)

// runStoreContract exercises the behaviour every Store implementation shares.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key returns not found", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "currentSession", `{"groupTotal":12.5}`))
		v, err := store.Get(ctx, "currentSession")
		require.NoError(t, err)
		assert.Equal(t, `{"groupTotal":12.5}`, v)
	})

	t.Run("set overwrites", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "onboardingSeen", "false"))
		require.NoError(t, store.Set(ctx, "onboardingSeen", "true"))
		v, err := store.Get(ctx, "onboardingSeen")
		require.NoError(t, err)
		assert.Equal(t, "true", v)
	})

	t.Run("remove deletes and is idempotent", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "setupCompleted", "true"))
		require.NoError(t, store.Remove(ctx, "setupCompleted"))
		require.NoError(t, store.Remove(ctx, "setupCompleted"))
		_, err := store.Get(ctx, "setupCompleted")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}
