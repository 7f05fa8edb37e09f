package workers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/podcaster/internal/events"
	"github.com/yoockh/podcaster/internal/utils"
)

// StreamClient is the slice of the redis client the pool uses.
// *redis.Client satisfies it.
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) *redis.XAutoClaimCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// FinalizeWorkerPool consumes finalize jobs from a redis stream with a
// consumer group, so jobs survive an API restart and spread across
// replicas. Entries left pending by a consumer that died mid-job are
// claimed by a live consumer once they have been idle for ClaimIdle.
type FinalizeWorkerPool struct {
	Redis      StreamClient
	Pipeline   Finalizer
	Events     events.Bus
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string

	ClaimIdle     time.Duration
	ClaimInterval time.Duration
	Block         time.Duration
}

var _ FinalizeQueue = (*FinalizeWorkerPool)(nil)

func (p *FinalizeWorkerPool) defaults() {
	if p.Stream == "" {
		p.Stream = "podcast:finalize"
	}
	if p.Group == "" {
		p.Group = "finalize-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 2
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
	if p.ClaimIdle <= 0 {
		p.ClaimIdle = 15 * time.Minute
	}
	if p.ClaimInterval <= 0 {
		p.ClaimInterval = time.Minute
	}
	if p.Block <= 0 {
		p.Block = 5 * time.Second
	}
}

func (p *FinalizeWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Pipeline == nil {
		return errors.New("FinalizeWorkerPool missing dependency: Redis/Pipeline must be set")
	}
	p.defaults()

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *FinalizeWorkerPool) Enqueue(ctx context.Context, sessionID string) error {
	const op = "FinalizeWorkerPool.Enqueue"

	p.defaults()
	err := p.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: p.Stream,
		Values: map[string]any{"session_id": sessionID},
	}).Err()
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to queue finalize", err)
	}
	queued(ctx, p.Events, sessionID)
	return nil
}

func (p *FinalizeWorkerPool) runConsumer(ctx context.Context, consumer string) {
	p.reclaim(ctx, consumer)
	lastClaim := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if time.Since(lastClaim) >= p.ClaimInterval {
			p.reclaim(ctx, consumer)
			lastClaim = time.Now()
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    1,
			Block:    p.Block,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.process(ctx, msg)
			}
		}
	}
}

// reclaim takes over entries that another consumer read but never acked.
func (p *FinalizeWorkerPool) reclaim(ctx context.Context, consumer string) {
	start := "0-0"
	for {
		msgs, next, err := p.Redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   p.Stream,
			Group:    p.Group,
			MinIdle:  p.ClaimIdle,
			Start:    start,
			Count:    10,
			Consumer: consumer,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				p.Logger.WithError(err).Warn("failed to claim idle finalize jobs")
			}
			return
		}

		for _, msg := range msgs {
			p.Logger.WithFields(logrus.Fields{
				"redis_id": msg.ID,
				"consumer": consumer,
			}).Info("claimed idle finalize job")
			p.process(ctx, msg)
		}
		if next == "" || next == "0-0" {
			return
		}
		start = next
	}
}

// process runs one job and acks it whatever the outcome. A failed finalize
// is already on the session's status channel and is retried by calling
// Finalize again, so it is not left pending.
func (p *FinalizeWorkerPool) process(ctx context.Context, msg redis.XMessage) {
	p.handleMsg(ctx, msg)
	_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
}

func (p *FinalizeWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	sessionID, _ := msg.Values["session_id"].(string)
	if sessionID == "" {
		return
	}
	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":   msg.ID,
		"session_id": sessionID,
	})
	runJob(ctx, p.Pipeline, log, sessionID)
}
