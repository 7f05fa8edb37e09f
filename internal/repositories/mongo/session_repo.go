package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yoockh/podcaster/internal/models"
	"github.com/yoockh/podcaster/internal/repositories"
	"github.com/yoockh/podcaster/internal/utils"
)

// sessionDocument mirrors the postgres row: the script is kept as the same
// JSON string so both stores hold an identical serialised turn list.
type sessionDocument struct {
	SessionID          string    `bson:"session_id"`
	Source             string    `bson:"source,omitempty"`
	Summary            string    `bson:"summary,omitempty"`
	Script             string    `bson:"script"`
	SuggestedQuestions string    `bson:"suggested_questions"`
	Rounds             int       `bson:"rounds"`
	AudioPath          *string   `bson:"audio_path,omitempty"`
	AudioURL           *string   `bson:"audio_url,omitempty"`
	CreatedAt          time.Time `bson:"created_at"`
	Timestamp          time.Time `bson:"timestamp"`
}

type sessionRepo struct {
	col *mongo.Collection
}

var _ repositories.SessionRepository = (*sessionRepo)(nil)

func NewSessionRepo(db *mongo.Database) repositories.SessionRepository {
	return &sessionRepo{col: db.Collection(repositories.TableName)}
}

func (r *sessionRepo) Upsert(ctx context.Context, s *models.Session) error {
	doc, err := toDocument(s)
	if err != nil {
		return err
	}
	_, err = r.col.ReplaceOne(ctx,
		bson.M{"session_id": s.SessionID},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *sessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	var doc sessionDocument
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromDocument(&doc)
}

func (r *sessionRepo) List(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []sessionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Session, 0, len(docs))
	for i := range docs {
		s, err := fromDocument(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

func toDocument(s *models.Session) (*sessionDocument, error) {
	script, err := models.EncodeScript(s.Turns)
	if err != nil {
		return nil, err
	}
	return &sessionDocument{
		SessionID:          s.SessionID,
		Source:             s.Source,
		Summary:            s.Summary,
		Script:             string(script),
		SuggestedQuestions: s.SuggestedQuestions,
		Rounds:             s.Rounds,
		AudioPath:          s.AudioPath,
		AudioURL:           s.AudioURL,
		CreatedAt:          s.CreatedAt.UTC(),
		Timestamp:          s.UpdatedAt.UTC(),
	}, nil
}

func fromDocument(doc *sessionDocument) (*models.Session, error) {
	turns, err := models.DecodeScript([]byte(doc.Script))
	if err != nil {
		return nil, err
	}
	return &models.Session{
		SessionID:          doc.SessionID,
		Source:             doc.Source,
		Summary:            doc.Summary,
		Turns:              turns,
		SuggestedQuestions: doc.SuggestedQuestions,
		Rounds:             doc.Rounds,
		AudioPath:          doc.AudioPath,
		AudioURL:           doc.AudioURL,
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.Timestamp,
	}, nil
}
