package models

import (
	"fmt"
	"time"
)

// Session is a podcast in progress. The persisted record is authoritative;
// every pipeline step loads it, appends, and saves it back whole.
type Session struct {
	SessionID          string  `json:"session_id"`
	Source             string  `json:"source,omitempty"`
	Summary            string  `json:"summary,omitempty"`
	Turns              []Turn  `json:"script"`
	SuggestedQuestions string  `json:"suggested_questions"`
	Rounds             int     `json:"rounds"`
	AudioPath          *string `json:"audio_path,omitempty"`
	AudioURL           *string `json:"audio_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"timestamp"`
}

// Append adds a batch of turns at the end of the log. Turns that fail
// validation are skipped; the number actually appended is returned.
func (s *Session) Append(turns ...Turn) int {
	n := 0
	for _, t := range turns {
		if t.Validate() != nil {
			continue
		}
		s.Turns = append(s.Turns, t)
		n++
	}
	return n
}

func (s *Session) Finalized() bool { return s.AudioPath != nil && *s.AudioPath != "" }

// Clone returns a deep copy so callers can hand out sessions without sharing
// the turn slice.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Turns = append([]Turn(nil), s.Turns...)
	if s.AudioPath != nil {
		p := *s.AudioPath
		out.AudioPath = &p
	}
	if s.AudioURL != nil {
		u := *s.AudioURL
		out.AudioURL = &u
	}
	return &out
}

type StageKind string

const (
	StageUninitialized StageKind = "uninitialized"
	StageOpened        StageKind = "opened"
	StageExtended      StageKind = "extended"
	StageFinalized     StageKind = "finalized"
)

// Stage is a position in the session state machine. Rounds is only
// meaningful for StageExtended.
type Stage struct {
	Kind   StageKind `json:"kind"`
	Rounds int       `json:"rounds,omitempty"`
}

func (s Stage) String() string {
	if s.Kind == StageExtended {
		return fmt.Sprintf("extended(%d)", s.Rounds)
	}
	return string(s.Kind)
}

// Stage derives the state machine position from persisted fields.
func (s *Session) Stage() Stage {
	switch {
	case s == nil || (len(s.Turns) == 0 && s.Rounds == 0):
		return Stage{Kind: StageUninitialized}
	case s.Finalized():
		return Stage{Kind: StageFinalized}
	case s.Rounds > 0:
		return Stage{Kind: StageExtended, Rounds: s.Rounds}
	default:
		return Stage{Kind: StageOpened}
	}
}

// SessionSummary is the list view of a session.
type SessionSummary struct {
	SessionID string    `json:"session_id"`
	Source    string    `json:"source,omitempty"`
	TurnCount int       `json:"turn_count"`
	Stage     string    `json:"stage"`
	AudioURL  *string   `json:"audio_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"timestamp"`
}

func (s *Session) Summarize() SessionSummary {
	return SessionSummary{
		SessionID: s.SessionID,
		Source:    s.Source,
		TurnCount: len(s.Turns),
		Stage:     s.Stage().String(),
		AudioURL:  s.AudioURL,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
