package workers

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/podcaster/internal/events"
	"github.com/yoockh/podcaster/internal/utils"
)

// LocalQueue runs finalize jobs on in-process goroutines. Queued jobs are
// lost on restart.
type LocalQueue struct {
	Pipeline   Finalizer
	Events     events.Bus
	NumWorkers int
	Capacity   int
	Logger     *logrus.Logger

	once sync.Once
	jobs chan string
	wg   sync.WaitGroup
}

var _ FinalizeQueue = (*LocalQueue)(nil)

func (q *LocalQueue) init() {
	q.once.Do(func() {
		if q.NumWorkers <= 0 {
			q.NumWorkers = 2
		}
		if q.Capacity <= 0 {
			q.Capacity = 64
		}
		if q.Logger == nil {
			q.Logger = logrus.New()
		}
		q.jobs = make(chan string, q.Capacity)
	})
}

// Start launches the workers. They stop when ctx is done; Wait blocks until
// they have.
func (q *LocalQueue) Start(ctx context.Context) error {
	if q.Pipeline == nil {
		return errors.New("LocalQueue missing dependency: Pipeline must be set")
	}
	q.init()
	for i := 0; i < q.NumWorkers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-q.jobs:
					runJob(ctx, q.Pipeline, q.Logger.WithField("session_id", id), id)
				}
			}
		}()
	}
	return nil
}

func (q *LocalQueue) Wait() { q.wg.Wait() }

func (q *LocalQueue) Enqueue(ctx context.Context, sessionID string) error {
	const op = "LocalQueue.Enqueue"

	q.init()
	select {
	case q.jobs <- sessionID:
	default:
		return utils.E(utils.CodeUnavailable, op, "finalize queue is full", nil)
	}
	queued(ctx, q.Events, sessionID)
	return nil
}
