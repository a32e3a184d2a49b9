package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestCheckRateLimit_Bypass(t *testing.T) {
	for _, env := range []string{"test", "development"} {
		t.Run(env, func(t *testing.T) {
			allowed, err := CheckRateLimit(context.Background(), nil, env, "r", "1", 1, time.Minute)
			assert.NoError(t, err)
			assert.True(t, allowed)
		})
	}
}

func TestCheckRateLimit_IgnoresProcessEnv(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	allowed, err := CheckRateLimit(ctx, rdb, "production", "login", "ip:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = CheckRateLimit(ctx, rdb, "production", "login", "ip:1", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCheckRateLimit_EmptyEnvEnforced(t *testing.T) {
	allowed, err := CheckRateLimit(context.Background(), nil, "", "r", "1", 1, time.Minute)
	assert.Error(t, err)
	assert.False(t, allowed)
}

func TestCheckRateLimit_NilRedis(t *testing.T) {
	allowed, err := CheckRateLimit(context.Background(), nil, "production", "r", "1", 1, time.Minute)
	assert.Error(t, err)
	assert.False(t, allowed)
}

func TestCheckRateLimit_CountsWithinWindow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := CheckRateLimit(ctx, rdb, "production", "pledge", "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := CheckRateLimit(ctx, rdb, "production", "pledge", "user:1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.Greater(t, mr.TTL("rl:pledge:user:1"), time.Duration(0))

	mr.FastForward(2 * time.Minute)
	allowed, err = CheckRateLimit(ctx, rdb, "production", "pledge", "user:1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	get := func(app *fiber.App, path string) int {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	t.Run("bypass in test mode", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", RateLimit(nil, "test", 1, time.Minute), handler)
		assert.Equal(t, http.StatusOK, get(app, "/test"))
	})

	t.Run("fail open with nil redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", RateLimit(nil, "production", 1, time.Minute), handler)
		assert.Equal(t, http.StatusOK, get(app, "/test"))
	})

	t.Run("fail closed with nil redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/sensitive", RateLimitWithPolicy(nil, "production", 1, time.Minute, FailClosed), handler)
		assert.Equal(t, http.StatusServiceUnavailable, get(app, "/sensitive"))
	})

	t.Run("configured env wins over APP_ENV", func(t *testing.T) {
		t.Setenv("APP_ENV", "")
		_, rdb := newTestRedis(t)
		app := fiber.New()
		app.Get("/login", RateLimit(rdb, "production", 1, time.Minute, "login"), handler)

		assert.Equal(t, http.StatusOK, get(app, "/login"))
		assert.Equal(t, http.StatusTooManyRequests, get(app, "/login"))
	})

	t.Run("limits with redis", func(t *testing.T) {
		_, rdb := newTestRedis(t)
		app := fiber.New()
		app.Get("/limited", RateLimit(rdb, "production", 1, time.Minute, "limited"), handler)

		assert.Equal(t, http.StatusOK, get(app, "/limited"))
		assert.Equal(t, http.StatusTooManyRequests, get(app, "/limited"))
	})
}
