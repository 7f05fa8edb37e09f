package dialogue

import (
	"context"
	"strings"
	"time"

	"github.com/yoockh/podcaster/internal/models"
	"github.com/yoockh/podcaster/internal/providers/llm"
	"github.com/yoockh/podcaster/internal/utils"
)

// Batch is one Extend worth of generated dialogue.
type Batch struct {
	// Script is the dialogue text exactly as generated, after the
	// suggestions block was cut off.
	Script      string
	Turns       []models.Turn
	Suggestions string
}

// Observer is told about every model call. It may be nil.
type Observer func(ctx context.Context, task, model string, took time.Duration, err error)

type Generator struct {
	fast      llm.Provider
	main      llm.Provider
	hostA     string
	hostB     string
	greetings []string
	timeout   time.Duration
	observe   Observer
}

type Option func(*Generator)

func WithHosts(a, b string) Option {
	return func(g *Generator) { g.hostA, g.hostB = a, b }
}

func WithGreetings(phrases []string) Option {
	return func(g *Generator) {
		if len(phrases) > 0 {
			g.greetings = phrases
		}
	}
}

// WithTimeout bounds every model call.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

func WithObserver(o Observer) Option {
	return func(g *Generator) { g.observe = o }
}

// NewGenerator uses fast for summaries and openings and main for
// continuation and closing.
func NewGenerator(fast, main llm.Provider, opts ...Option) *Generator {
	g := &Generator{
		fast:      fast,
		main:      main,
		hostA:     "Ava",
		hostB:     "Sompong",
		greetings: DefaultGreetings,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Summarize condenses a transcript into the reference digest.
func (g *Generator) Summarize(ctx context.Context, transcript string) (string, error) {
	const op = "Generator.Summarize"

	out, err := g.complete(ctx, "summarize", g.fast, []llm.Message{llm.User(summaryPrompt(transcript))})
	if err != nil {
		return "", utils.Upstream(op, "summary generation failed", err)
	}
	return out, nil
}

// SystemFromSummary builds the writer instruction for a session that has a
// reference digest.
func (g *Generator) SystemFromSummary(summary string) string {
	return systemFromSummary(summary, g.hostA, g.hostB)
}

// SystemFromTurns builds the writer instruction from early turns, used when
// no digest was stored.
func (g *Generator) SystemFromTurns(turns []models.Turn) string {
	return systemFromTurns(turns)
}

// Opening writes the 2-4 line introduction. Greeting sentences are removed.
func (g *Generator) Opening(ctx context.Context, summary string) ([]models.Turn, error) {
	const op = "Generator.Opening"

	out, err := g.complete(ctx, "opening", g.fast, []llm.Message{llm.User(openingPrompt(summary, g.hostA, g.hostB))})
	if err != nil {
		return nil, utils.Upstream(op, "opening generation failed", err)
	}
	return FilterGreetings(ParseTurns(out), g.greetings), nil
}

// Continue writes the next batch of dialogue for question, given the
// session's system instruction and recent turns.
func (g *Generator) Continue(ctx context.Context, system string, window []models.Turn, question string) (*Batch, error) {
	const op = "Generator.Continue"

	msgs := []llm.Message{
		llm.System(system),
		llm.User(continuePrompt(question, window)),
	}
	out, err := g.complete(ctx, "continue", g.main, msgs)
	if err != nil {
		return nil, utils.Upstream(op, "dialogue generation failed", err)
	}
	script, suggestions := SplitSuggestions(out)
	return &Batch{
		Script:      script,
		Turns:       ParseTurns(script),
		Suggestions: suggestions,
	}, nil
}

// Closing writes the 4-6 line sign-off from the tail of the dialogue.
func (g *Generator) Closing(ctx context.Context, tail []models.Turn) ([]models.Turn, error) {
	const op = "Generator.Closing"

	out, err := g.complete(ctx, "closing", g.main, []llm.Message{llm.User(closingPrompt(tail))})
	if err != nil {
		return nil, utils.Upstream(op, "closing generation failed", err)
	}
	script, _ := SplitSuggestions(out)
	return ParseTurns(script), nil
}

func (g *Generator) complete(ctx context.Context, task string, p llm.Provider, msgs []llm.Message) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	start := time.Now()
	out, err := p.Complete(ctx, msgs)
	if g.observe != nil {
		g.observe(ctx, task, p.Model(), time.Since(start), err)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
