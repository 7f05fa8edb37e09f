package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yoockh/podcaster/internal/models"
	"github.com/yoockh/podcaster/internal/repositories"
	"github.com/yoockh/podcaster/internal/utils"
)

// sessionRow is the podcast_scripts table layout.
type sessionRow struct {
	SessionID          string         `gorm:"column:session_id;type:text;primaryKey"`
	Source             string         `gorm:"column:source;type:text"`
	Summary            string         `gorm:"column:summary;type:text"`
	Script             datatypes.JSON `gorm:"column:script;type:jsonb"`
	SuggestedQuestions string         `gorm:"column:suggested_questions;type:text"`
	Rounds             int            `gorm:"column:rounds;type:integer"`
	AudioPath          *string        `gorm:"column:audio_path;type:text"`
	AudioURL           *string        `gorm:"column:audio_url;type:text"`
	CreatedAt          time.Time      `gorm:"column:created_at;type:timestamptz;index"`
	Timestamp          time.Time      `gorm:"column:timestamp;type:timestamptz"`
}

func (sessionRow) TableName() string { return repositories.TableName }

// upsertColumns is every column except the key and created_at, which is immutable.
var upsertColumns = []string{
	"source", "summary", "script", "suggested_questions", "rounds",
	"audio_path", "audio_url", "timestamp",
}

type sessionRepo struct {
	db *gorm.DB
}

var _ repositories.SessionRepository = (*sessionRepo)(nil)

func NewSessionRepo(db *gorm.DB) repositories.SessionRepository {
	return &sessionRepo{db: db}
}

// Migrate creates or updates the podcast_scripts table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&sessionRow{})
}

func (r *sessionRepo) Upsert(ctx context.Context, s *models.Session) error {
	row, err := toRow(s)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		Create(row).Error
}

func (r *sessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	var row sessionRow
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromRow(&row)
}

func (r *sessionRepo) List(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []sessionRow
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Session, 0, len(rows))
	for i := range rows {
		s, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

func toRow(s *models.Session) (*sessionRow, error) {
	script, err := models.EncodeScript(s.Turns)
	if err != nil {
		return nil, err
	}
	return &sessionRow{
		SessionID:          s.SessionID,
		Source:             s.Source,
		Summary:            s.Summary,
		Script:             datatypes.JSON(script),
		SuggestedQuestions: s.SuggestedQuestions,
		Rounds:             s.Rounds,
		AudioPath:          s.AudioPath,
		AudioURL:           s.AudioURL,
		CreatedAt:          s.CreatedAt.UTC(),
		Timestamp:          s.UpdatedAt.UTC(),
	}, nil
}

func fromRow(row *sessionRow) (*models.Session, error) {
	turns, err := models.DecodeScript(row.Script)
	if err != nil {
		return nil, err
	}
	return &models.Session{
		SessionID:          row.SessionID,
		Source:             row.Source,
		Summary:            row.Summary,
		Turns:              turns,
		SuggestedQuestions: row.SuggestedQuestions,
		Rounds:             row.Rounds,
		AudioPath:          row.AudioPath,
		AudioURL:           row.AudioURL,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.Timestamp,
	}, nil
}
