package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"taskManager/internal/events"
	"taskManager/internal/logger"
	"taskManager/internal/models/category"
	"taskManager/internal/models/tag"
	"taskManager/internal/models/user"
	"taskManager/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxTagNameLength = 50

type TagService struct {
	repo   TagRepository
	events events.Publisher
	settings
}

func NewTagService(repo TagRepository, publisher events.Publisher, opts ...Option) *TagService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &TagService{
		repo:     repo,
		events:   publisher,
		settings: applyOptions(opts),
	}
}

type TagInput struct {
	Name  *string
	Color *string
}

func (s *TagService) CreateTag(ctx context.Context, actor *user.User, input TagInput) (*tag.Tag, error) {
	t := &tag.Tag{
		UUID:      uuid.New(),
		UserID:    actor.UUID,
		Color:     tag.DefaultColor,
		CreatedAt: s.now(),
	}
	if err := applyTagInput(t, input, true); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewValidationError("name", "тег с таким названием уже есть")
		}
		return nil, fmt.Errorf("создание тега: %w", err)
	}
	return t, nil
}

func (s *TagService) GetTag(ctx context.Context, actor *user.User, id uuid.UUID) (*tag.Tag, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ResourceTag, id.String())
	}
	if err := authorize(actor, t.UserID, ResourceTag, id); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TagService) ListTags(ctx context.Context, actor *user.User) ([]*tag.Tag, error) {
	tags, err := s.repo.ListByUser(ctx, actor.UUID)
	if err != nil {
		return nil, fmt.Errorf("получение тегов: %w", err)
	}
	return tags, nil
}

func (s *TagService) UpdateTag(ctx context.Context, actor *user.User, id uuid.UUID, input TagInput) (*tag.Tag, error) {
	t, err := s.GetTag(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := applyTagInput(t, input, false); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, t); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewValidationError("name", "тег с таким названием уже есть")
		}
		return nil, translate(err, ResourceTag, id.String())
	}
	return t, nil
}

func (s *TagService) DeleteTag(ctx context.Context, actor *user.User, id uuid.UUID) error {
	if _, err := s.GetTag(ctx, actor, id); err != nil {
		return err
	}
	return translate(s.repo.Delete(ctx, id), ResourceTag, id.String())
}

// MergeTags переносит задачи с source на target, суммирует счётчики и удаляет source.
// Слияние тега с самим собой отклоняется без изменений.
func (s *TagService) MergeTags(ctx context.Context, actor *user.User, sourceID, targetID uuid.UUID) (*tag.Tag, error) {
	errs := map[string]string{}
	if sourceID == uuid.Nil {
		errs["source_id"] = "не указан исходный тег"
	}
	if targetID == uuid.Nil {
		errs["target_id"] = "не указан целевой тег"
	}
	if len(errs) == 0 && sourceID == targetID {
		errs["target_id"] = "нельзя объединить тег с самим собой"
	}
	if len(errs) > 0 {
		return nil, NewValidationErrors(errs)
	}

	source, err := s.GetTag(ctx, actor, sourceID)
	if err != nil {
		return nil, err
	}
	target, err := s.GetTag(ctx, actor, targetID)
	if err != nil {
		return nil, err
	}
	if source.UserID != target.UserID {
		return nil, NewValidationError("target_id", "теги принадлежат разным пользователям")
	}

	merged, err := s.repo.Merge(ctx, sourceID, targetID)
	if err != nil {
		logger.Error("Service: Не удалось объединить теги", err,
			zap.String("source_id", sourceID.String()),
			zap.String("target_id", targetID.String()))
		return nil, translate(err, ResourceTag, sourceID.String())
	}

	s.events.Publish(ctx, events.New(events.TagMerged, merged.UserID, merged.UUID, s.now()).
		With("source_id", sourceID.String()).
		With("usage_count", merged.UsageCount))

	return merged, nil
}

func applyTagInput(t *tag.Tag, input TagInput, creating bool) error {
	errs := map[string]string{}

	if input.Name != nil || creating {
		name := ""
		if input.Name != nil {
			name = strings.TrimSpace(*input.Name)
		}
		switch {
		case name == "":
			errs["name"] = "название не может быть пустым"
		case utf8.RuneCountInString(name) > maxTagNameLength:
			errs["name"] = fmt.Sprintf("название длиннее %d символов", maxTagNameLength)
		default:
			t.Name = name
		}
	}
	if input.Color != nil {
		if !category.ValidColor(*input.Color) {
			errs["color"] = "цвет должен быть в формате #rrggbb"
		} else {
			t.Color = *input.Color
		}
	}

	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}
