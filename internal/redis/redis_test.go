package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm2go/internal/config"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr := miniredis.RunT(t)

	Client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		Client.Close()
		Client = nil
		LuaScripts = nil
	})

	require.NoError(t, InitLuaScripts(Client))
	return mr
}

func TestInit_Unreachable(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Host:        "127.0.0.1",
			Port:        1, // nothing listens here
			DialTimeout: 100 * time.Millisecond,
		},
	}

	err := Init(cfg)
	assert.Error(t, err)
	Client = nil
}

func TestHealth_NotInitialized(t *testing.T) {
	Client = nil
	assert.Error(t, Health())
}

func TestClose_Nil(t *testing.T) {
	Client = nil
	assert.NoError(t, Close())
}

func TestRateLimit(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	allowed, remaining, err := CheckRateLimit(ctx, "rl:checkout:1", time.Minute, 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)

	// zero limit always denies
	allowed, _, err = CheckRateLimit(ctx, "rl:checkout:2", time.Minute, 0)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRateLimit_NotInitialized(t *testing.T) {
	LuaScripts = nil

	allowed, remaining, err := CheckRateLimit(context.Background(), "rl:x", time.Minute, 10)
	assert.Error(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
}

func TestUnreadCount(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	_, hit, err := GetUnreadCount(ctx, 7)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, SetUnreadCount(ctx, 7, 3))

	count, hit, err := GetUnreadCount(ctx, 7)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(3), count)

	require.NoError(t, IncrUnreadCount(ctx, 7, 2))

	count, _, err = GetUnreadCount(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestDecrUnreadCount_FlooredAtZero(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetUnreadCount(ctx, 9, 2))

	count, err := DecrUnreadCount(ctx, 9, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// decrement on a missing key stays at zero
	count, err = DecrUnreadCount(ctx, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestInvalidateUnreadCount(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetUnreadCount(ctx, 11, 4))
	require.NoError(t, InvalidateUnreadCount(ctx, 11))

	_, hit, err := GetUnreadCount(ctx, 11)
	require.NoError(t, err)
	assert.False(t, hit)
}
