package events

import (
	"context"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

type RedisBus struct {
	rdb *redis.Client
}

var _ Bus = (*RedisBus)(nil)

func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	ev = stamp(ev)
	payload, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, StatusChannel(ev.SessionID), payload).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, sessionID string) (<-chan []byte, func(), error) {
	ps := b.rdb.Subscribe(ctx, StatusChannel(sessionID))
	// wait for the subscription confirmation so no publish is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}

	out := make(chan []byte, 16)
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer close(out)
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(m.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}
