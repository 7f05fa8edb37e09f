package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/podcaster/internal/models"
	"github.com/yoockh/podcaster/internal/providers/llm"
	"github.com/yoockh/podcaster/internal/providers/llm/mock"
	"github.com/yoockh/podcaster/internal/utils"
)

func TestGenerator_OpeningUsesFastModelAndFilters(t *testing.T) {
	fast := &mock.Provider{Responses: []string{"Here you go:\nA: Welcome to the show.\nB: Rice prices doubled overnight.\nA: So what happened?"}}
	main := &mock.Provider{}
	g := NewGenerator(fast, main, WithHosts("Mali", "Niran"))

	turns, err := g.Opening(context.Background(), "digest")
	require.NoError(t, err)
	assert.Equal(t, []models.Turn{
		{Speaker: models.SpeakerB, Text: "Rice prices doubled overnight."},
		{Speaker: models.SpeakerA, Text: "So what happened?"},
	}, turns)

	require.Equal(t, 1, fast.CallCount())
	assert.Zero(t, main.CallCount())
	prompt := fast.Calls[0].Messages[0].Content
	assert.Contains(t, prompt, "digest")
	assert.Contains(t, prompt, "Mali")
	assert.Contains(t, prompt, "Niran")
}

func TestGenerator_ContinueBuildsPromptAndSplits(t *testing.T) {
	main := &mock.Provider{Responses: []string{"A: next\nB: then\n### Suggested Follow-up Questions:\n1. q1\n2. q2\n3. q3"}}
	g := NewGenerator(&mock.Provider{}, main)

	window := []models.Turn{{Speaker: models.SpeakerA, Text: "earlier"}}
	b, err := g.Continue(context.Background(), "SYSTEM", window, "topic X")
	require.NoError(t, err)
	assert.Equal(t, "A: next\nB: then", b.Script)
	assert.Len(t, b.Turns, 2)
	assert.Equal(t, "1. q1\n2. q2\n3. q3", b.Suggestions)

	msgs := main.Calls[0].Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.System("SYSTEM"), msgs[0])
	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "Topic: topic X")
	assert.Contains(t, msgs[1].Content, "A: earlier\n")
	assert.Contains(t, msgs[1].Content, SuggestionsMarker)
	assert.Contains(t, msgs[1].Content, "Do not greet")
}

func TestGenerator_ContinueWithoutHistory(t *testing.T) {
	main := &mock.Provider{Responses: []string{"nothing parseable"}}
	g := NewGenerator(&mock.Provider{}, main)

	b, err := g.Continue(context.Background(), "S", nil, "q")
	require.NoError(t, err)
	assert.Empty(t, b.Turns)
	assert.Empty(t, b.Suggestions)
	assert.Contains(t, main.Calls[0].Messages[1].Content, emptyContext)
}

func TestGenerator_ClosingUsesTail(t *testing.T) {
	main := &mock.Provider{Responses: []string{"A: that's a wrap\nB: share this episode"}}
	g := NewGenerator(&mock.Provider{}, main)

	tail := []models.Turn{{Speaker: models.SpeakerB, Text: "last point"}}
	turns, err := g.Closing(context.Background(), tail)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
	assert.Contains(t, main.Calls[0].Messages[0].Content, "B: last point")
}

func TestGenerator_UpstreamErrors(t *testing.T) {
	fast := &mock.Provider{Err: errors.New("503")}
	g := NewGenerator(fast, fast)

	_, err := g.Summarize(context.Background(), "t")
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeUpstream))
}

type slowProvider struct{}

func (slowProvider) Complete(ctx context.Context, _ []llm.Message) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
func (slowProvider) Model() string { return "slow" }
func (slowProvider) Close() error  { return nil }

func TestGenerator_TimeoutIsReportedAsTimeout(t *testing.T) {
	var observed []string
	g := NewGenerator(slowProvider{}, slowProvider{},
		WithTimeout(20*time.Millisecond),
		WithObserver(func(_ context.Context, task, model string, _ time.Duration, err error) {
			observed = append(observed, task+"/"+model)
			assert.Error(t, err)
		}),
	)

	_, err := g.Closing(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeTimeout))
	assert.Equal(t, []string{"closing/slow"}, observed)
}

func TestSystemInstructions(t *testing.T) {
	g := NewGenerator(&mock.Provider{}, &mock.Provider{}, WithHosts("Mali", "Niran"))
	s := g.SystemFromSummary("the digest")
	assert.Contains(t, s, "the digest")
	assert.Contains(t, s, "A (Mali)")

	turns := []models.Turn{{Speaker: models.SpeakerA, Text: "one"}, {Speaker: models.SpeakerB, Text: "two"}}
	s = g.SystemFromTurns(turns)
	assert.True(t, strings.HasSuffix(s, "A: one B: two"))
}
