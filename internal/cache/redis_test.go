package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mishkagorka/subscription-access/internal/config"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		Password:     "",
		DB:           0,
		User:         "",
	}

	cache, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	return cache, mr
}

func TestSetUserToken_BothDirections(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	err := cache.SetUserToken(ctx, 42, "tok-abc", time.Minute)
	require.NoError(t, err)

	tok, found, err := cache.UserToken(ctx, 42)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "tok-abc", tok)

	userID, found, err := cache.TokenUser(ctx, "tok-abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(42), userID)
}

func TestSetUserToken_OverwritesPrevious(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetUserToken(ctx, 42, "tok-old", time.Minute))
	require.NoError(t, cache.SetUserToken(ctx, 42, "tok-new", time.Minute))

	tok, found, err := cache.UserToken(ctx, 42)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "tok-new", tok)
}

func TestUserToken_NotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	_, found, err := cache.UserToken(context.Background(), 777)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTokenUser_NotFound(t *testing.T) {
	cache, _ := setupTestCache(t)

	_, found, err := cache.TokenUser(context.Background(), "no-such-token")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTokenExpiresWithTTL(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetUserToken(ctx, 42, "tok-abc", 30*time.Second))

	mr.FastForward(31 * time.Second)

	_, found, err := cache.UserToken(ctx, 42)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = cache.TokenUser(ctx, "tok-abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExtendUserToken(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetUserToken(ctx, 42, "tok-abc", 30*time.Second))
	require.NoError(t, cache.ExtendUserToken(ctx, 42, "tok-abc", 10*time.Minute))

	mr.FastForward(time.Minute)

	tok, found, err := cache.UserToken(ctx, 42)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "tok-abc", tok)
}

func TestRevokeUser(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SetUserToken(ctx, 42, "tok-abc", time.Minute))
	require.NoError(t, cache.RevokeUser(ctx, 42))

	_, found, err := cache.UserToken(ctx, 42)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = cache.TokenUser(ctx, "tok-abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRevokeUser_NoToken(t *testing.T) {
	cache, _ := setupTestCache(t)

	assert.NoError(t, cache.RevokeUser(context.Background(), 777))
}

func TestIncrementAndGet(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := cache.IncrementAndGet(ctx, "rate_limit:42", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// Окно не продлевается повторными инкрементами.
	mr.FastForward(61 * time.Second)

	got, err := cache.IncrementAndGet(ctx, "rate_limit:42", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestInitServerInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{
		AddressRedis: "127.0.0.1:9999",
	}

	cache, err := InitServer(context.Background(), cfg)
	assert.Nil(t, cache)
	assert.Error(t, err)
}
