// Package workers runs Finalize outside the request that asked for it.
package workers

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/podcaster/internal/events"
	"github.com/yoockh/podcaster/internal/services"
)

// FinalizeQueue hands a session to the background finalize workers.
type FinalizeQueue interface {
	Enqueue(ctx context.Context, sessionID string) error
}

// Finalizer is the part of the pipeline the workers drive.
type Finalizer interface {
	Finalize(ctx context.Context, sessionID string) (*services.FinalizeResult, error)
}

func queued(ctx context.Context, bus events.Bus, sessionID string) {
	if bus == nil {
		return
	}
	_ = bus.Publish(ctx, events.Event{
		SessionID: sessionID,
		Step:      services.StepFinalize,
		Status:    events.StatusQueued,
	})
}

// runJob finalizes one session. Failures are already reported on the
// session's status channel by the pipeline; here they are only logged.
func runJob(ctx context.Context, f Finalizer, log *logrus.Entry, sessionID string) {
	res, err := f.Finalize(ctx, sessionID)
	if err != nil {
		log.WithError(err).Warn("background finalize failed")
		return
	}
	log.WithField("audio_url", res.AudioURL).Info("background finalize done")
}
