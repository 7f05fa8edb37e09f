// Package repositories defines the durable session record store. Concrete
// stores live in the postgres, mongo and memory subpackages.
package repositories

import (
	"context"

	"github.com/yoockh/podcaster/internal/models"
)

// TableName is the table (postgres) or collection (mongo) holding session records.
const TableName = "podcast_scripts"

type SessionRepository interface {
	// Upsert overwrites the whole record keyed by session_id.
	Upsert(ctx context.Context, s *models.Session) error
	// GetBySessionID returns utils.ErrNotFound when no record exists.
	GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error)
	// List returns the newest sessions first.
	List(ctx context.Context, limit int) ([]models.Session, error)
}
