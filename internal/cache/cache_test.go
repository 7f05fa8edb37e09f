package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/podcaster/internal/utils"
)

type transcriptEntry struct {
	Text string `json:"text"`
}

func TestMemoryCache_HitMissExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	var got transcriptEntry
	hit, err := c.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetJSON(ctx, "k", transcriptEntry{Text: "hello"}, time.Minute))
	hit, err = c.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "hello", got.Text)

	now = now.Add(2 * time.Minute)
	hit, err = c.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryCache_Del(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.SetJSON(ctx, "a", 1, 0))
	require.NoError(t, c.Del(ctx, "a"))

	var n int
	hit, err := c.GetJSON(ctx, "a", &n)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestLocalLocker_FailsFastWhileHeld(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	release, err := l.Acquire(ctx, "session-1", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "session-1", time.Minute)
	assert.ErrorIs(t, err, utils.ErrLocked)

	other, err := l.Acquire(ctx, "session-2", time.Minute)
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(ctx, "session-1", time.Minute)
	require.NoError(t, err)
	again()
}

func TestKeepAlive_RefreshesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(ctx, 5*time.Millisecond, func(context.Context) (bool, error) {
			calls.Add(1)
			return true, nil
		})
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive did not stop after cancel")
	}
	stopped := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())
}

func TestKeepAlive_StopsWhenLockIsLost(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepAlive(context.Background(), 5*time.Millisecond, func(context.Context) (bool, error) {
			switch calls.Add(1) {
			case 1:
				return false, errors.New("connection reset")
			case 2:
				return true, nil
			default:
				return false, nil
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepAlive kept running after the lock was lost")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestKeepAlive_ZeroIntervalReturns(t *testing.T) {
	keepAlive(context.Background(), 0, func(context.Context) (bool, error) {
		t.Fatal("refresh must not run")
		return false, nil
	})
}

type fakeKV struct {
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	f.data[key] = value.([]byte)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestRedisCache_PrefixedRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	c := NewRedisCache(kv)

	var got transcriptEntry
	hit, err := c.GetJSON(ctx, "transcript:th:abc", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.SetJSON(ctx, "transcript:th:abc", transcriptEntry{Text: "hello"}, time.Hour))
	assert.Contains(t, kv.data, "cache:transcript:th:abc")
	assert.Equal(t, time.Hour, kv.ttls["cache:transcript:th:abc"])

	hit, err = c.GetJSON(ctx, "transcript:th:abc", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "hello", got.Text)

	require.NoError(t, c.Del(ctx, "transcript:th:abc"))
	assert.Empty(t, kv.data)
}

func TestRedisCache_UndecodableEntryIsDropped(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.data["cache:k"] = []byte("{not json")
	c := NewRedisCache(kv)

	var got transcriptEntry
	hit, err := c.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotContains(t, kv.data, "cache:k")
}

func TestRedisCache_StoreErrorsAreUnavailable(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.err = errors.New("dial tcp: connection refused")
	c := NewRedisCache(kv)

	var got transcriptEntry
	_, err := c.GetJSON(ctx, "k", &got)
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
	err = c.SetJSON(ctx, "k", transcriptEntry{Text: "x"}, time.Minute)
	assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
}
