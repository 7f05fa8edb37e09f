package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/podcaster/internal/models"
	"github.com/yoockh/podcaster/internal/repositories"
	"github.com/yoockh/podcaster/internal/utils"
)

// SessionService owns the canonical session record. Every pipeline step
// loads it, mutates the returned copy, and saves it back whole.
type SessionService interface {
	Create(sessionID, source string) *models.Session
	Load(ctx context.Context, sessionID string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	List(ctx context.Context, limit int) ([]models.SessionSummary, error)
}

type sessionService struct {
	sessions repositories.SessionRepository
	now      func() time.Time
}

func NewSessionService(sessions repositories.SessionRepository) SessionService {
	return &sessionService{sessions: sessions, now: time.Now}
}

// NewSessionID formats a timestamp plus a short random suffix, so two
// sessions opened within the same second stay distinct.
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return now.Format("20060102_150405") + "_" + suffix
}

// Create returns an empty, unsaved session.
func (s *sessionService) Create(sessionID, source string) *models.Session {
	now := s.now().UTC()
	return &models.Session{
		SessionID: sessionID,
		Source:    source,
		Turns:     []models.Turn{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *sessionService) Load(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "SessionService.Load"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	out, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.Upstream(op, "failed to load session", err)
	}
	return out, nil
}

// Save overwrites the whole record. It persists exactly what it is given,
// so saving the same session twice leaves the same record.
func (s *sessionService) Save(ctx context.Context, sess *models.Session) error {
	const op = "SessionService.Save"

	if sess == nil || sess.SessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now().UTC()
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = sess.CreatedAt
	}
	if err := s.sessions.Upsert(ctx, sess); err != nil {
		return utils.Upstream(op, "failed to save session", err)
	}
	return nil
}

func (s *sessionService) List(ctx context.Context, limit int) ([]models.SessionSummary, error) {
	const op = "SessionService.List"

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.sessions.List(ctx, limit)
	if err != nil {
		return nil, utils.Upstream(op, "failed to list sessions", err)
	}
	out := make([]models.SessionSummary, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Summarize())
	}
	return out, nil
}
