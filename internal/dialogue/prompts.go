package dialogue

import (
	"fmt"
	"strings"

	"github.com/yoockh/podcaster/internal/models"
)

const emptyContext = "(no conversation yet)"

func summaryPrompt(transcript string) string {
	return fmt.Sprintf(`Below is the full transcript of a video. Act as a content writer preparing reference notes for a podcast episode.

Your goals:
1. An overall summary, followed by the key topics as separate headings.
2. Notable quotes worth repeating on air.

Write in the same language as the transcript.

---
%s
---`, transcript)
}

func systemFromSummary(summary, hostA, hostB string) string {
	return fmt.Sprintf(`You write a podcast with two hosts, A (%s) and B (%s), who talk naturally. Keep the language simple, fluid and pleasant to listen to, and leave thought-provoking questions at the end.

Material for the podcast:
%s`, hostA, hostB, summary)
}

func systemFromTurns(turns []models.Turn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, t.String())
	}
	return "You are a podcast writing assistant.\nConversation so far:\n" + strings.Join(parts, " ")
}

func openingPrompt(summary, hostA, hostB string) string {
	return fmt.Sprintf(`Here is a summary of the key points of a video:

%s

Write the opening of a podcast episode with two hosts (%s and %s) who introduce these points in a way that makes listeners want to keep listening. Do not use generic greetings such as "welcome" or "hello everyone".

Format: alternate A: / B: for 2-4 lines. Keep the language concise and fluid. Output only the dialogue lines.`, summary, hostA, hostB)
}

func continuePrompt(question string, window []models.Turn) string {
	prev := models.FormatTurns(window)
	if prev == "" {
		prev = emptyContext
	}
	return fmt.Sprintf(`Topic: %s

Continue from the existing conversation:
%s
Write a two-host podcast dialogue alternating A: / B: smoothly for 10-20 lines, connected to what was already said. Do not greet the audience and do not start over. End with %s followed by at least 3 questions.`, question, prev, "`"+SuggestionsMarker+"`")
}

func closingPrompt(tail []models.Turn) string {
	return fmt.Sprintf(`Here is the podcast dialogue up to its final part:

%s
Write the **closing of the podcast episode** that:
1. Sums up the points that were discussed
2. Signs off in a friendly way
3. Invites listeners to follow, share or comment

Format: alternate A: / B: smoothly for 4-6 lines.`, models.FormatTurns(tail))
}
