// Package dialogue writes and parses two-host podcast dialogue.
//
// The only formal contract with the language model is the speaker-prefixed
// line grammar: a line is a turn when, after trimming, it starts with "A:"
// or "B:" and has text after the marker. Everything else is dropped.
package dialogue

import (
	"regexp"
	"strings"

	"github.com/yoockh/podcaster/internal/models"
)

const (
	SuggestionsMarker = "### Suggested Follow-up Questions:"
	ScriptMarker      = "### Podcast Script:"
)

// ParseTurns extracts speaker-prefixed lines in order.
func ParseTurns(text string) []models.Turn {
	var out []models.Turn
	for _, line := range strings.Split(text, "\n") {
		if t, ok := parseLine(line); ok {
			out = append(out, t)
		}
	}
	return out
}

func parseLine(line string) (models.Turn, bool) {
	line = strings.TrimSpace(line)
	for _, sp := range []models.Speaker{models.SpeakerA, models.SpeakerB} {
		prefix := string(sp) + ":"
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		text := strings.TrimSpace(line[len(prefix):])
		if text == "" {
			return models.Turn{}, false
		}
		return models.Turn{Speaker: sp, Text: text}, true
	}
	return models.Turn{}, false
}

// SplitSuggestions cuts a generated response at the first suggestions
// marker. The dialogue part is further narrowed to whatever follows the last
// script marker, if one is present. A missing suggestions marker yields empty
// suggestions and the whole text as dialogue.
func SplitSuggestions(text string) (dialogue, suggestions string) {
	dialogue = text
	if i := strings.Index(text, SuggestionsMarker); i >= 0 {
		dialogue = text[:i]
		suggestions = text[i+len(SuggestionsMarker):]
	}
	if i := strings.LastIndex(dialogue, ScriptMarker); i >= 0 {
		dialogue = dialogue[i+len(ScriptMarker):]
	}
	return strings.TrimSpace(dialogue), strings.TrimSpace(suggestions)
}

var listPrefix = regexp.MustCompile(`^(?:[-*•]+|\d+[.)]|\(\d+\))\s*`)

// QuestionList splits a suggestions block into individual questions,
// stripping bullets, numbering and bold markers.
func QuestionList(suggestions string) []string {
	var out []string
	for _, line := range strings.Split(suggestions, "\n") {
		q := strings.TrimSpace(line)
		q = listPrefix.ReplaceAllString(q, "")
		q = strings.TrimSpace(strings.Trim(q, "*"))
		if q == "" || strings.HasPrefix(q, "#") {
			continue
		}
		out = append(out, q)
	}
	return out
}
