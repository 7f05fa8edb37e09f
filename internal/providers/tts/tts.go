// Package tts turns one line of dialogue into WAV audio in a given voice.
package tts

import (
	"context"
	"errors"
)

// ErrEmptyAudio is returned when a backend answers successfully but with no
// audio payload.
var ErrEmptyAudio = errors.New("tts: empty audio")

type Provider interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}
