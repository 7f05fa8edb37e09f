// Package mock provides a test double for the tts.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/yoockh/podcaster/internal/providers/tts"
)

type Call struct {
	Text    string
	VoiceID string
}

// Provider returns Audio for every call. Err fails every call; FailText
// fails only the named lines, with tts.ErrEmptyAudio.
type Provider struct {
	mu sync.Mutex

	Audio    []byte
	AudioFor func(text, voiceID string) []byte
	Err      error
	FailText map[string]bool

	Calls []Call
}

var _ tts.Provider = (*Provider)(nil)

func (p *Provider) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, Call{Text: text, VoiceID: voiceID})
	fail := p.FailText[text]
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}
	if fail {
		return nil, tts.ErrEmptyAudio
	}
	if p.AudioFor != nil {
		return p.AudioFor(text, voiceID), nil
	}
	return p.Audio, nil
}

func (p *Provider) CallsSnapshot() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.Calls...)
}
