//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nightout/internal/platform/config"
	"nightout/pkg/testutil/containers"
)

func TestNewConnectsToServer(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)

	client, err := New(config.RedisConfig{URL: rc.URL, PoolSize: 4, DialTimeout: 2 * time.Second})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Health(ctx))
	require.NoError(t, client.Set(ctx, "nightout-test:ping", "1", 0).Err())

	client.observe(client.PoolStats())
	assert.Positive(t, client.last.hits+client.last.misses)
}
