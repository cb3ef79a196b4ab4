//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisClient_RoundTrip(t *testing.T) {
	ctx := context.Background()

	container, err := redis.Run(ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, RedisConfig{
		Addr:   fmt.Sprintf("%s:%s", host, port.Port()),
		Prefix: "test:",
	})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(ctx, "q:1", []byte("one"), time.Minute))
	require.NoError(t, client.Set(ctx, "q:2", []byte("two"), time.Minute))

	got, err := client.Get(ctx, "q:1")
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))

	require.NoError(t, client.DeleteByPrefix(ctx, "q:"))
	_, err = client.Get(ctx, "q:2")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
