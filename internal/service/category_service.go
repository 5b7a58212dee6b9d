package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"taskManager/internal/models/category"
	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
	"taskManager/internal/repository"

	"github.com/google/uuid"
)

const maxNameLength = 100

type CategoryService struct {
	repo  CategoryRepository
	tasks TaskRepository
	settings
}

func NewCategoryService(repo CategoryRepository, tasks TaskRepository, opts ...Option) *CategoryService {
	return &CategoryService{
		repo:     repo,
		tasks:    tasks,
		settings: applyOptions(opts),
	}
}

type CategoryInput struct {
	Name  *string
	Color *string
	Icon  *string
	Type  *string
}

func (s *CategoryService) CreateCategory(ctx context.Context, actor *user.User, input CategoryInput) (*category.Category, error) {
	c := &category.Category{
		UUID:      uuid.New(),
		UserID:    actor.UUID,
		Color:     category.DefaultColor,
		CreatedAt: s.now(),
	}
	if err := applyCategoryInput(c, input, true); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewValidationError("name", "категория с таким названием уже есть")
		}
		return nil, fmt.Errorf("создание категории: %w", err)
	}
	return c, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, actor *user.User, id uuid.UUID) (*category.Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ResourceCategory, id.String())
	}
	if err := authorize(actor, c.UserID, ResourceCategory, id); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CategoryService) ListCategories(ctx context.Context, actor *user.User) ([]*category.Category, error) {
	categories, err := s.repo.ListByUser(ctx, actor.UUID)
	if err != nil {
		return nil, fmt.Errorf("получение категорий: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, actor *user.User, id uuid.UUID, input CategoryInput) (*category.Category, error) {
	c, err := s.GetCategory(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := applyCategoryInput(c, input, false); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewValidationError("name", "категория с таким названием уже есть")
		}
		return nil, translate(err, ResourceCategory, id.String())
	}
	return c, nil
}

// DeleteCategory удаляет категорию; задачи остаются без категории.
func (s *CategoryService) DeleteCategory(ctx context.Context, actor *user.User, id uuid.UUID) error {
	if _, err := s.GetCategory(ctx, actor, id); err != nil {
		return err
	}
	return translate(s.repo.Delete(ctx, id), ResourceCategory, id.String())
}

// CategoryTasks: задачи категории с теми же фильтрами, что и общий список.
func (s *CategoryService) CategoryTasks(ctx context.Context, actor *user.User, id uuid.UUID, filter task.Filter) (*TaskPage, error) {
	c, err := s.GetCategory(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if errs := filter.Validate(); len(errs) > 0 {
		return nil, NewValidationErrors(errs)
	}

	filter.CategoryID = &c.UUID
	filter.NoCategory = false
	filter = filter.Normalize(s.perPage, s.maxPerPage).ResolveDates(s.now())

	return listTasks(ctx, s.tasks, c.UserID, filter)
}

func applyCategoryInput(c *category.Category, input CategoryInput, creating bool) error {
	errs := map[string]string{}

	if input.Name != nil || creating {
		name := ""
		if input.Name != nil {
			name = strings.TrimSpace(*input.Name)
		}
		switch {
		case name == "":
			errs["name"] = "название не может быть пустым"
		case utf8.RuneCountInString(name) > maxNameLength:
			errs["name"] = fmt.Sprintf("название длиннее %d символов", maxNameLength)
		default:
			c.Name = name
		}
	}
	if input.Color != nil {
		if !category.ValidColor(*input.Color) {
			errs["color"] = "цвет должен быть в формате #rrggbb"
		} else {
			c.Color = *input.Color
		}
	}
	if input.Icon != nil {
		c.Icon = *input.Icon
	}
	if input.Type != nil {
		c.Type = *input.Type
	}

	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}
