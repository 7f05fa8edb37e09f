// Package mock provides a test double for the llm.Provider interface.
//
// Responses are consumed in order; once exhausted the last one repeats. Set
// Err to fail every call, or Errs to fail individual calls by position.
package mock

import (
	"context"
	"sync"

	"github.com/yoockh/podcaster/internal/providers/llm"
)

// Call records a single invocation of Complete.
type Call struct {
	Messages []llm.Message
}

type Provider struct {
	mu sync.Mutex

	Responses []string
	Err       error
	Errs      map[int]error
	ModelName string

	Calls []Call
}

var _ llm.Provider = (*Provider)(nil)

func (p *Provider) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := len(p.Calls)
	p.Calls = append(p.Calls, Call{Messages: append([]llm.Message(nil), messages...)})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.Err != nil {
		return "", p.Err
	}
	if err, ok := p.Errs[idx]; ok {
		return "", err
	}
	if len(p.Responses) == 0 {
		return "", nil
	}
	if idx >= len(p.Responses) {
		idx = len(p.Responses) - 1
	}
	return p.Responses[idx], nil
}

func (p *Provider) Model() string {
	if p.ModelName == "" {
		return "mock"
	}
	return p.ModelName
}

func (p *Provider) Close() error { return nil }

// CallCount returns the number of Complete invocations so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
