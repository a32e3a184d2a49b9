package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewClient(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestAside_LoadsOnceThenServesCache(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()

	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"Art", "Other"}, nil
	}

	first, err := Aside(ctx, rdb, CategoryListKey, CategoryTTL, load)
	require.NoError(t, err)
	second, err := Aside(ctx, rdb, CategoryListKey, CategoryTTL, load)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists(CategoryListKey))
	assert.Equal(t, CategoryTTL, mr.TTL(CategoryListKey))
}

func TestAside_NilClientAlwaysLoads(t *testing.T) {
	calls := 0
	load := func() (int, error) {
		calls++
		return 7, nil
	}

	for i := 0; i < 2; i++ {
		v, err := Aside(context.Background(), nil, "k", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, 7, v)
	}
	assert.Equal(t, 2, calls)
}

func TestAside_LoadErrorIsNotCached(t *testing.T) {
	mr, rdb := setupRedis(t)

	_, err := Aside(context.Background(), rdb, "k", time.Minute, func() (int, error) {
		return 0, errors.New("db down")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("k"))
}

func TestAside_RedisDownFallsThrough(t *testing.T) {
	mr, rdb := setupRedis(t)
	mr.Close()

	v, err := Aside(context.Background(), rdb, "k", time.Minute, func() (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
}

func TestInvalidateCategory(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(CategoryListKey, "[]"))
	require.NoError(t, mr.Set(CategoryKey("Art"), "{}"))

	InvalidateCategory(ctx, rdb, "Art")
	assert.False(t, mr.Exists(CategoryListKey))
	assert.False(t, mr.Exists(CategoryKey("Art")))
}

func TestRevokeToken(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, RevokeToken(ctx, rdb, "abc", time.Now().Add(time.Hour)))
	revoked, err := IsRevoked(ctx, rdb, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = IsRevoked(ctx, rdb, "other")
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = IsRevoked(ctx, rdb, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.NoError(t, RevokeToken(ctx, rdb, "old", time.Now().Add(-time.Minute)))
	assert.Error(t, RevokeToken(ctx, nil, "abc", time.Now().Add(time.Hour)))
}

func TestRevokeUser(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()
	deletedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, RevokeUser(ctx, rdb, 9, deletedAt, time.Hour))

	revoked, err := IsUserRevoked(ctx, rdb, 9, deletedAt.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, revoked, "tokens issued before deletion are revoked")

	revoked, err = IsUserRevoked(ctx, rdb, 9, deletedAt.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, revoked, "tokens issued later belong to a new account")

	revoked, err = IsUserRevoked(ctx, rdb, 10, deletedAt.Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = IsUserRevoked(ctx, rdb, 9, deletedAt.Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.Error(t, RevokeUser(ctx, nil, 9, deletedAt, time.Hour))
}
