// Package memory is an in-process session store for local runs and tests.
// Records do not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/yoockh/podcaster/internal/models"
	"github.com/yoockh/podcaster/internal/repositories"
	"github.com/yoockh/podcaster/internal/utils"
)

type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	writes   int
}

var _ repositories.SessionRepository = (*SessionRepo)(nil)

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[string]*models.Session)}
}

func (r *SessionRepo) Upsert(ctx context.Context, s *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.SessionID] = s.Clone()
	r.writes++
	return nil
}

func (r *SessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *SessionRepo) List(ctx context.Context, limit int) ([]models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	out := make([]models.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID > out[j].SessionID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Writes reports how many upserts the store has accepted.
func (r *SessionRepo) Writes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}

// Len reports how many distinct sessions are stored.
func (r *SessionRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
