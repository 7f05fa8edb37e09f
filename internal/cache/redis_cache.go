package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yoockh/podcaster/internal/utils"
)

// KV is the part of the redis client RedisCache needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisCache stores sonic-encoded values under "cache:<key>". An entry that
// no longer decodes into the caller's type is dropped and reported as a miss.
type RedisCache struct {
	kv     KV
	prefix string
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(kv KV) *RedisCache {
	return &RedisCache{kv: kv, prefix: "cache:"}
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	const op = "RedisCache.GetJSON"

	raw, err := c.kv.Get(ctx, c.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, utils.E(utils.CodeUnavailable, op, "cache read failed", err)
	}
	if sonic.Unmarshal(raw, dst) != nil {
		_ = c.kv.Del(ctx, c.prefix+key).Err()
		return false, nil
	}
	return true, nil
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error {
	const op = "RedisCache.SetJSON"

	raw, err := sonic.Marshal(val)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "cache value does not encode", err)
	}
	if err := c.kv.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return utils.E(utils.CodeUnavailable, op, "cache write failed", err)
	}
	return nil
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	const op = "RedisCache.Del"

	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	if err := c.kv.Del(ctx, full...).Err(); err != nil {
		return utils.E(utils.CodeUnavailable, op, "cache delete failed", err)
	}
	return nil
}
