package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yoockh/podcaster/internal/models"
)

func TestParseTurns(t *testing.T) {
	got := ParseTurns("A: hello\nB: hi there\nrandom aside\nA: ok")
	assert.Equal(t, []models.Turn{
		{Speaker: models.SpeakerA, Text: "hello"},
		{Speaker: models.SpeakerB, Text: "hi there"},
		{Speaker: models.SpeakerA, Text: "ok"},
	}, got)
}

func TestParseTurns_Lenient(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []models.Turn
	}{
		{"empty", "", nil},
		{"no markers", "Sure! Here is your podcast.\n\nEnjoy.", nil},
		{"indented and CRLF", "  A:  spaced out  \r\n\tB:tight\r\n", []models.Turn{
			{Speaker: models.SpeakerA, Text: "spaced out"},
			{Speaker: models.SpeakerB, Text: "tight"},
		}},
		{"marker without text", "A:\nB:   \nA: kept", []models.Turn{
			{Speaker: models.SpeakerA, Text: "kept"},
		}},
		{"other speakers and markdown", "C: nope\n**A:** bold\na: lower\nA: yes", []models.Turn{
			{Speaker: models.SpeakerA, Text: "yes"},
		}},
		{"colon in text", "B: ratio is 3:1", []models.Turn{
			{Speaker: models.SpeakerB, Text: "ratio is 3:1"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTurns(tt.in))
		})
	}
}

func TestSplitSuggestions(t *testing.T) {
	d, s := SplitSuggestions("A: x\n### Suggested Follow-up Questions:\nq1\nq2\nq3")
	assert.Equal(t, "A: x", d)
	assert.Equal(t, "q1\nq2\nq3", s)
}

func TestSplitSuggestions_NoMarker(t *testing.T) {
	d, s := SplitSuggestions("A: x\nB: y\n")
	assert.Equal(t, "A: x\nB: y", d)
	assert.Equal(t, "", s)
}

func TestSplitSuggestions_ScriptMarker(t *testing.T) {
	in := "Intro chatter\n### Podcast Script:\nA: one\nB: two\n### Suggested Follow-up Questions:\n1. Why?\n"
	d, s := SplitSuggestions(in)
	assert.Equal(t, "A: one\nB: two", d)
	assert.Equal(t, "1. Why?", s)
}

func TestSplitSuggestions_OnlyFirstSuggestionsMarkerSplits(t *testing.T) {
	in := "A: x\n### Suggested Follow-up Questions:\nq1\n### Suggested Follow-up Questions:\nq2"
	_, s := SplitSuggestions(in)
	assert.Equal(t, "q1\n### Suggested Follow-up Questions:\nq2", s)
}

func TestQuestionList(t *testing.T) {
	in := "1. What changed?\n2) Who benefits?\n- **Is it fair?**\n\n• Next steps?\n### Notes"
	assert.Equal(t, []string{"What changed?", "Who benefits?", "Is it fair?", "Next steps?"}, QuestionList(in))
	assert.Empty(t, QuestionList(""))
}
