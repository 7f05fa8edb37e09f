// Package mock provides a test double for the stt.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/yoockh/podcaster/internal/providers/stt"
)

type Call struct {
	Audio    []byte
	Language string
}

type Provider struct {
	mu sync.Mutex

	Text       string
	Confidence float64
	Err        error

	Calls []Call
}

var _ stt.Provider = (*Provider)(nil)

func (p *Provider) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Audio: audio, Language: language})
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	if p.Err != nil {
		return "", 0, p.Err
	}
	return p.Text, p.Confidence, nil
}

func (p *Provider) Close() error { return nil }

func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
