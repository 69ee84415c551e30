package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

func TestRedisCacheTagInvalidation(t *testing.T) {
	t.Parallel()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	addr, err := container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	rdb, err := NewRedisClient(ctx, addr, "", 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	c := NewRedis(rdb, "test:")

	_, err = c.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "a1", []byte("1"), time.Minute, "tenant:a"))
	require.NoError(t, c.Set(ctx, "a2", []byte("2"), time.Minute, "tenant:a"))
	require.NoError(t, c.Set(ctx, "b1", []byte("3"), time.Minute, "tenant:b"))

	ttl, err := rdb.PTTL(ctx, "test:tag:tenant:a").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.InvalidateTag(ctx, "tenant:a"))
	require.NoError(t, c.InvalidateTag(ctx, "tenant:none"))

	_, err = c.Get(ctx, "a1")
	require.ErrorIs(t, err, ErrMiss)
	_, err = c.Get(ctx, "a2")
	require.ErrorIs(t, err, ErrMiss)

	got, err := c.Get(ctx, "b1")
	require.NoError(t, err)
	require.Equal(t, []byte("3"), got)

	exists, err := rdb.Exists(ctx, "test:tag:tenant:a").Result()
	require.NoError(t, err)
	require.Zero(t, exists)
	require.ErrorIs(t, rdb.Get(ctx, "test:a1").Err(), redis.Nil)
}
