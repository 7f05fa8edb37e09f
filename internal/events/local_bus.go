package events

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
)

// LocalBus fans events out within one process. Slow subscribers drop
// events rather than block the pipeline.
type LocalBus struct {
	mu   sync.Mutex
	subs map[string]map[chan []byte]struct{}
}

var _ Bus = (*LocalBus)(nil)

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[chan []byte]struct{})}
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	ev = stamp(ev)
	payload, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.SessionID] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, sessionID string) (<-chan []byte, func(), error) {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan []byte]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[sessionID], ch)
			if len(b.subs[sessionID]) == 0 {
				delete(b.subs, sessionID)
			}
			close(ch)
			b.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}
