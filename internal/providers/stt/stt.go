// Package stt turns a normalized waveform into plain transcript text.
package stt

import "context"

type Provider interface {
	// Transcribe takes WAV bytes (mono 16 kHz PCM) and a language hint such
	// as "th" or "en-US". Confidence is 0 when the backend does not report one.
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}
