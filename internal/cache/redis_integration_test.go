package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mishkagorka/subscription-access/internal/config"
)

// setupRealRedis поднимает Redis в контейнере либо берет адрес из
// TEST_REDIS_URL, если контейнерное окружение недоступно.
func setupRealRedis(t *testing.T) *Cache {
	ctx := context.Background()

	addr := os.Getenv("TEST_REDIS_URL")
	if addr == "" {
		req := testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort(nat.Port("6379/tcp")),
				wait.ForLog("Ready to accept connections"),
			).WithDeadline(2 * time.Minute),
		}

		redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		require.NoError(t, err, "failed to start container")

		t.Cleanup(func() { _ = redisContainer.Terminate(ctx) })

		host, err := redisContainer.Host(ctx)
		require.NoError(t, err)
		port, err := redisContainer.MappedPort(ctx, nat.Port("6379/tcp"))
		require.NoError(t, err)
		addr = host + ":" + port.Port()
	}

	cache, err := InitServer(ctx, config.RedisConnection{AddressRedis: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestIntegration_TokenLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cache := setupRealRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.SetUserToken(ctx, 42, "tok-live", 10*time.Second))

	tok, found, err := cache.UserToken(ctx, 42)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "tok-live", tok)

	userID, found, err := cache.TokenUser(ctx, "tok-live")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(42), userID)

	ttl, err := cache.Db.TTL(ctx, "user:42:token").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 5*time.Second)

	require.NoError(t, cache.RevokeUser(ctx, 42))

	_, found, err = cache.TokenUser(ctx, "tok-live")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestIntegration_CounterWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cache := setupRealRedis(t)
	ctx := context.Background()

	first, err := cache.IncrementAndGet(ctx, "rate_limit:99", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := cache.IncrementAndGet(ctx, "rate_limit:99", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second)

	ttl, err := cache.Db.TTL(ctx, "rate_limit:99").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
