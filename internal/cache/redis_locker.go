package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yoockh/podcaster/internal/utils"
)

// releaseScript deletes the lock only when it still carries our token, so a
// lock that expired and was re-taken by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the TTL only while the lock still carries our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker shares session locks across replicas. A held lock is renewed
// every ttl/3 until it is released, so a step that outlives ttl stays
// exclusive; ttl only bounds how long a crashed replica blocks the key.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

var _ Locker = (*RedisLocker)(nil)

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb, prefix: "lock:"}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	const op = "RedisLocker.Acquire"

	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "lock store unavailable", err)
	}
	if !ok {
		return nil, utils.ErrLocked
	}

	renewCtx, stop := context.WithCancel(context.Background())
	renewed := make(chan struct{})
	go func() {
		defer close(renewed)
		keepAlive(renewCtx, ttl/3, func(ctx context.Context) (bool, error) {
			n, err := refreshScript.Run(ctx, l.rdb, []string{l.prefix + key}, token, ttl.Milliseconds()).Int64()
			return n == 1, err
		})
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			<-renewed
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, l.rdb, []string{l.prefix + key}, token).Err()
		})
	}, nil
}

// keepAlive calls refresh every interval until ctx is done or refresh
// reports the lock is no longer ours. Transient errors are retried on the
// next tick.
func keepAlive(ctx context.Context, interval time.Duration, refresh func(context.Context) (bool, error)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rctx, cancel := context.WithTimeout(ctx, interval)
			held, err := refresh(rctx)
			cancel()
			if err == nil && !held {
				return
			}
		}
	}
}
