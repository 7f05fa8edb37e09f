package config

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

func redisURI() string {
	for _, k := range []string{"REDIS_ADDR", "REDIS_URI", "REDIS_URL"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// RedisConfigured reports whether any redis address is set. Without one the
// service runs with in-process locks, cache, status bus and finalize queue.
func RedisConfigured() bool { return redisURI() != "" }

func InitRedis() error {
	val := redisURI()
	if val == "" {
		return errors.New("REDIS_ADDR (or REDIS_URI/REDIS_URL) environment variable is not set")
	}

	if strings.HasPrefix(val, "redis://") || strings.HasPrefix(val, "rediss://") {
		opt, err := redis.ParseURL(val)
		if err != nil {
			return err
		}
		RedisClient = redis.NewClient(opt)
	} else {
		RedisClient = redis.NewClient(&redis.Options{Addr: val})
	}

	_, err := RedisClient.Ping(context.Background()).Result()
	return err
}
