package service_test

import (
	"context"
	"testing"
	"time"

	"taskManager/internal/events"
	"taskManager/internal/models/tag"
	"taskManager/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTagService_CreateTag(t *testing.T) {
	actor := newActor()
	repo := new(MockTagRepository)
	svc := service.NewTagService(repo, nil, fixedClock(time.Now()))

	repo.On("Create", mock.Anything, mock.MatchedBy(func(tg *tag.Tag) bool {
		return tg.Name == "urgent" && tg.Color == tag.DefaultColor && tg.UserID == actor.UUID
	})).Return(nil)

	name := "  urgent "
	created, err := svc.CreateTag(context.Background(), actor, service.TagInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "urgent", created.Name)

	bad := "red"
	_, err = svc.CreateTag(context.Background(), actor, service.TagInput{Name: &name, Color: &bad})
	assert.Equal(t, service.CodeValidation, businessCode(err))
	repo.AssertNumberOfCalls(t, "Create", 1)
}

func TestTagService_MergeTags(t *testing.T) {
	ctx := context.Background()
	actor := newActor()
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)

	t.Run("self merge rejected before storage", func(t *testing.T) {
		repo := new(MockTagRepository)
		rec := &recorder{}
		svc := service.NewTagService(repo, rec, fixedClock(now))

		id := uuid.New()
		_, err := svc.MergeTags(ctx, actor, id, id)

		busErr, ok := service.AsBusinessError(err)
		require.True(t, ok)
		assert.Equal(t, service.CodeValidation, busErr.Code)
		assert.Contains(t, busErr.Details, "target_id")
		repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "Merge", mock.Anything, mock.Anything, mock.Anything)
		assert.Empty(t, rec.names())
	})

	t.Run("missing ids", func(t *testing.T) {
		svc := service.NewTagService(new(MockTagRepository), nil)
		_, err := svc.MergeTags(ctx, actor, uuid.Nil, uuid.Nil)
		busErr, ok := service.AsBusinessError(err)
		require.True(t, ok)
		assert.Contains(t, busErr.Details, "source_id")
		assert.Contains(t, busErr.Details, "target_id")
	})

	t.Run("success", func(t *testing.T) {
		repo := new(MockTagRepository)
		rec := &recorder{}
		svc := service.NewTagService(repo, rec, fixedClock(now))

		source := &tag.Tag{UUID: uuid.New(), UserID: actor.UUID, Name: "wip", UsageCount: 2}
		target := &tag.Tag{UUID: uuid.New(), UserID: actor.UUID, Name: "doing", UsageCount: 3}
		merged := &tag.Tag{UUID: target.UUID, UserID: actor.UUID, Name: "doing", UsageCount: 5}

		repo.On("GetByID", mock.Anything, source.UUID).Return(source, nil)
		repo.On("GetByID", mock.Anything, target.UUID).Return(target, nil)
		repo.On("Merge", mock.Anything, source.UUID, target.UUID).Return(merged, nil)

		got, err := svc.MergeTags(ctx, actor, source.UUID, target.UUID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.UsageCount)
		assert.Equal(t, []events.Name{events.TagMerged}, rec.names())
		repo.AssertExpectations(t)
	})

	t.Run("foreign target", func(t *testing.T) {
		repo := new(MockTagRepository)
		svc := service.NewTagService(repo, nil, fixedClock(now))

		source := &tag.Tag{UUID: uuid.New(), UserID: actor.UUID}
		target := &tag.Tag{UUID: uuid.New(), UserID: uuid.New()}
		repo.On("GetByID", mock.Anything, source.UUID).Return(source, nil)
		repo.On("GetByID", mock.Anything, target.UUID).Return(target, nil)

		_, err := svc.MergeTags(ctx, actor, source.UUID, target.UUID)
		assert.Equal(t, service.CodeForbidden, businessCode(err))
		repo.AssertNotCalled(t, "Merge", mock.Anything, mock.Anything, mock.Anything)
	})
}
