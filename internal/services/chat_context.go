package services

import (
	"github.com/yoockh/podcaster/internal/models"
)

// ChatContext is the prompt window for one generation call. It is derived
// from the persisted session alone, so any process rebuilding it from the
// same record gets the same value.
type ChatContext struct {
	System string
	Window []models.Turn
}

// SystemInstructor turns a session's digest or early turns into the writer
// instruction.
type SystemInstructor interface {
	SystemFromSummary(summary string) string
	SystemFromTurns(turns []models.Turn) string
}

// BuildChatContext uses the stored summary for the system instruction when
// present and the first systemTurns turns otherwise. The window holds the
// last windowTurns turns.
func BuildChatContext(s *models.Session, si SystemInstructor, windowTurns, systemTurns int) ChatContext {
	var system string
	if s.Summary != "" {
		system = si.SystemFromSummary(s.Summary)
	} else {
		system = si.SystemFromTurns(models.FirstTurns(s.Turns, systemTurns))
	}
	window := models.LastTurns(s.Turns, windowTurns)
	return ChatContext{
		System: system,
		Window: append([]models.Turn(nil), window...),
	}
}
