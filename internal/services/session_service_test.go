package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/podcaster/internal/models"
	"github.com/yoockh/podcaster/internal/repositories/memory"
	"github.com/yoockh/podcaster/internal/utils"
)

func TestNewSessionID_Format(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 8, 7, 0, time.UTC)
	id := NewSessionID(now)
	assert.Regexp(t, regexp.MustCompile(`^20261017_090807_[0-9a-f]{6}$`), id)
	assert.NotEqual(t, id, NewSessionID(now))
}

func TestSessionService_CreateIsNotPersisted(t *testing.T) {
	repo := memory.NewSessionRepo()
	svc := NewSessionService(repo)

	s := svc.Create("s1", "talk.wav")
	assert.Equal(t, "s1", s.SessionID)
	assert.Empty(t, s.Turns)
	assert.False(t, s.CreatedAt.IsZero())
	assert.Zero(t, repo.Writes())
}

func TestSessionService_SaveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSessionRepo()
	svc := NewSessionService(repo)

	s := svc.Create("s1", "talk.wav")
	s.Append(models.Turn{Speaker: models.SpeakerA, Text: "hi"})
	require.NoError(t, svc.Save(ctx, s))
	first, err := svc.Load(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, svc.Save(ctx, s))
	second, err := svc.Load(ctx, "s1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.Len())
}

func TestSessionService_LoadErrors(t *testing.T) {
	svc := NewSessionService(memory.NewSessionRepo())

	_, err := svc.Load(context.Background(), "")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = svc.Load(context.Background(), "missing")
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
}

func TestSessionService_SaveRejectsMissingID(t *testing.T) {
	svc := NewSessionService(memory.NewSessionRepo())
	err := svc.Save(context.Background(), &models.Session{})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestSessionService_List(t *testing.T) {
	ctx := context.Background()
	svc := NewSessionService(memory.NewSessionRepo())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b"} {
		s := &models.Session{SessionID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		s.Append(models.Turn{Speaker: models.SpeakerA, Text: "x"})
		require.NoError(t, svc.Save(ctx, s))
	}

	got, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].SessionID)
}
