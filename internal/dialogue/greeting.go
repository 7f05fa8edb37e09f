package dialogue

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yoockh/podcaster/internal/models"
)

// DefaultGreetings are the openers the hosts must not start with.
var DefaultGreetings = []string{
	"welcome",
	"hello",
	"hi everyone",
	"hi there",
	"hey everyone",
	"hey there",
	"good morning",
	"good afternoon",
	"good evening",
	"ยินดีต้อนรับ",
	"สวัสดี",
}

// addressees may follow a greeting word before its separator, as in
// "Hello everyone, ...".
var addressees = map[string]bool{
	"everyone":  true,
	"everybody": true,
	"all":       true,
	"folks":     true,
	"friends":   true,
	"listeners": true,
	"there":     true,
}

// continuations turn a greeting word into a greeting sentence, as in
// "Welcome back!" or "Welcome to the show."
var continuations = map[string]bool{
	"to":     true,
	"back":   true,
	"aboard": true,
}

// StripGreeting removes leading greeting clauses.
//
// A greeting word followed (after an optional addressee) by ',', '.', '!'
// or '?' is cut at that mark. A greeting word followed by "to", "back" or
// "aboard" opens a greeting sentence, which is cut at its '.', '!' or '?'.
// Any other Latin word after the greeting word means the line is not a
// greeting ("Hello Kitty sold ...") and it is kept whole. Thai text rarely
// carries punctuation, so there the clause ends at the first whitespace.
func StripGreeting(text string, greetings []string) string {
	out := strings.TrimSpace(text)
	for {
		next := stripOnce(out, greetings)
		if next == out || next == "" {
			return next
		}
		out = next
	}
}

func stripOnce(trimmed string, greetings []string) string {
	lower := strings.ToLower(trimmed)
	for _, g := range greetings {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" || !strings.HasPrefix(lower, g) {
			continue
		}
		rest := trimmed[len(g):]
		if r, _ := utf8.DecodeRuneInString(rest); isLatinLetter(r) {
			// "welcomed", "hellos": a longer word, not a greeting
			continue
		}

		body := strings.TrimLeftFunc(rest, unicode.IsSpace)
		word, after := leadingWord(body)
		if addressees[word] {
			body = strings.TrimLeftFunc(after, unicode.IsSpace)
			word, after = leadingWord(body)
		}

		switch {
		case body == "":
			return ""
		case strings.ContainsRune(".!?,", rune(body[0])):
			return strings.TrimSpace(body[1:])
		case continuations[word]:
			if i := strings.IndexAny(after, ".!?"); i >= 0 {
				return strings.TrimSpace(after[i+1:])
			}
			return ""
		case word != "":
			return trimmed
		}

		// non-Latin script
		if i := strings.IndexAny(rest, ".!?"); i >= 0 {
			return strings.TrimSpace(rest[i+1:])
		}
		if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
			return strings.TrimSpace(rest[i:])
		}
		return ""
	}
	return trimmed
}

// leadingWord splits off a leading run of Latin letters, lowercased.
func leadingWord(s string) (word, rest string) {
	i := strings.IndexFunc(s, func(r rune) bool { return !isLatinLetter(r) && r != '\'' })
	if i < 0 {
		i = len(s)
	}
	return strings.ToLower(s[:i]), s[i:]
}

// FilterGreetings strips greetings from every turn and drops turns left
// empty.
func FilterGreetings(turns []models.Turn, greetings []string) []models.Turn {
	out := make([]models.Turn, 0, len(turns))
	for _, t := range turns {
		t.Text = StripGreeting(t.Text, greetings)
		if t.Text == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

func isLatinLetter(r rune) bool {
	return r < unicode.MaxLatin1 && unicode.IsLetter(r)
}
