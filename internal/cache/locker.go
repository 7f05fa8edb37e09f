package cache

import (
	"context"
	"sync"
	"time"

	"github.com/yoockh/podcaster/internal/utils"
)

// Locker grants exclusive access to a key. Acquire never waits: a held key
// returns utils.ErrLocked immediately. The returned release func is
// idempotent.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// LocalLocker serialises keys within one process.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string, _ time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, utils.ErrLocked
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
