package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crowdfund/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	CategoryListKey   = "categories:all"
	CategoryKeyPrefix = "category:%s"
	RevokedKeyPrefix  = "blacklist:%s"
	RevokedUserPrefix = "blacklist:user:%d"
)

const (
	CategoryTTL = 10 * time.Minute
)

func CategoryKey(name string) string {
	return fmt.Sprintf(CategoryKeyPrefix, name)
}

func RevokedKey(jti string) string {
	return fmt.Sprintf(RevokedKeyPrefix, jti)
}

func RevokedUserKey(userID uint) string {
	return fmt.Sprintf(RevokedUserPrefix, userID)
}

// Aside returns the cached value at key, or calls load and caches its result.
// A nil client or any Redis failure falls through to load.
func Aside[T any](ctx context.Context, rdb *redis.Client, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if rdb != nil {
		raw, err := rdb.Get(ctx, key).Bytes()
		if err == nil {
			var cached T
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if rdb != nil {
		if raw, jsonErr := json.Marshal(value); jsonErr == nil {
			if setErr := rdb.Set(ctx, key, raw, ttl).Err(); setErr != nil {
				middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", setErr.Error()))
			}
		}
	}
	return value, nil
}

func Invalidate(ctx context.Context, rdb *redis.Client, keys ...string) {
	if rdb != nil && len(keys) > 0 {
		rdb.Del(ctx, keys...)
	}
}

// InvalidateCategory drops the list and the named category entry.
func InvalidateCategory(ctx context.Context, rdb *redis.Client, name string) {
	Invalidate(ctx, rdb, CategoryListKey, CategoryKey(name))
}

// RevokeToken blacklists a token ID until it would have expired anyway.
func RevokeToken(ctx context.Context, rdb *redis.Client, jti string, expiresAt time.Time) error {
	if rdb == nil {
		return errors.New("token revocation requires redis")
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return rdb.Set(ctx, RevokedKey(jti), "1", ttl).Err()
}

// RevokeUser invalidates every token issued to userID at or before at. The
// marker lives for ttl, the longest a token can stay valid.
func RevokeUser(ctx context.Context, rdb *redis.Client, userID uint, at time.Time, ttl time.Duration) error {
	if rdb == nil {
		return errors.New("token revocation requires redis")
	}
	if ttl <= 0 {
		return nil
	}
	return rdb.Set(ctx, RevokedUserKey(userID), at.Unix(), ttl).Err()
}

// IsUserRevoked reports whether a token for userID issued at issuedAt
// predates a RevokeUser call.
func IsUserRevoked(ctx context.Context, rdb *redis.Client, userID uint, issuedAt time.Time) (bool, error) {
	if rdb == nil || userID == 0 {
		return false, nil
	}
	cutoff, err := rdb.Get(ctx, RevokedUserKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return issuedAt.Unix() <= cutoff, nil
}

// IsRevoked reports whether a token ID has been blacklisted. Without Redis
// nothing is revoked.
func IsRevoked(ctx context.Context, rdb *redis.Client, jti string) (bool, error) {
	if rdb == nil || jti == "" {
		return false, nil
	}
	n, err := rdb.Exists(ctx, RevokedKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
