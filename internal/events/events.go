// Package events carries per-session status updates from the pipeline to
// websocket subscribers.
package events

import (
	"context"
	"time"
)

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Step      string    `json:"step"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Code      string    `json:"code,omitempty"`
	AudioURL  string    `json:"audio_url,omitempty"`
	At        time.Time `json:"at"`
}

// Bus publishes events and lets clients follow one session.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe delivers raw JSON payloads until cancel is called or ctx
	// ends.
	Subscribe(ctx context.Context, sessionID string) (payloads <-chan []byte, cancel func(), err error)
}

// StatusChannel is the pub/sub channel for one session.
func StatusChannel(sessionID string) string {
	return "session:" + sessionID + ":status"
}

func stamp(ev Event) Event {
	if ev.Type == "" {
		ev.Type = "status"
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return ev
}
