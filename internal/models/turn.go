package models

import (
	"fmt"
	"strings"
)

type Speaker string

const (
	SpeakerA Speaker = "A"
	SpeakerB Speaker = "B"
)

func (s Speaker) Valid() bool { return s == SpeakerA || s == SpeakerB }

// Turn is one spoken line. Turns are immutable once appended to a session.
type Turn struct {
	Speaker Speaker `json:"speaker" bson:"speaker"`
	Text    string  `json:"text" bson:"text"`
}

func (t Turn) String() string { return string(t.Speaker) + ": " + t.Text }

func (t Turn) Validate() error {
	if !t.Speaker.Valid() {
		return fmt.Errorf("invalid speaker %q", t.Speaker)
	}
	if strings.TrimSpace(t.Text) == "" {
		return fmt.Errorf("empty text for speaker %s", t.Speaker)
	}
	return nil
}

// FormatTurns renders turns as "A: text" lines, one per line, each newline-terminated.
func FormatTurns(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(t.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// LastTurns returns at most n turns from the tail.
func LastTurns(turns []Turn, n int) []Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// FirstTurns returns at most n turns from the head.
func FirstTurns(turns []Turn, n int) []Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[:n]
}
