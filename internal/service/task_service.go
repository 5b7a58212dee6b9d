package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"taskManager/internal/events"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
	"taskManager/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxTitleLength = 255

// здесь происходит проверка ошибок бизнес-логики

type TaskService struct {
	repo       TaskRepository
	categories CategoryRepository
	tags       TagRepository
	events     events.Publisher
	settings
}

func NewTaskService(repo TaskRepository, categories CategoryRepository, tags TagRepository, publisher events.Publisher, opts ...Option) *TaskService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &TaskService{
		repo:       repo,
		categories: categories,
		tags:       tags,
		events:     publisher,
		settings:   applyOptions(opts),
	}
}

type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    task.Priority
	CategoryID  *uuid.UUID
	TagIDs      []uuid.UUID
	Completed   bool
}

// UpdateTaskInput: частичное обновление; nil означает "не менять".
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	DueDate       *time.Time
	ClearDueDate  bool
	Priority      *task.Priority
	CategoryID    *uuid.UUID
	ClearCategory bool
	TagIDs        []uuid.UUID
	Completed     *bool
}

type TaskPage struct {
	Items   []*task.Task
	Page    int
	PerPage int
	Total   int
}

func (s *TaskService) CreateTask(ctx context.Context, actor *user.User, input CreateTaskInput) (*task.Task, error) {
	errs := map[string]string{}
	validateTitle(input.Title, true, errs)
	if input.Priority == 0 {
		input.Priority = task.PriorityMedium
	}
	if !input.Priority.Valid() {
		errs["priority"] = "допустимо low, medium, high или urgent"
	}
	if len(errs) > 0 {
		return nil, NewValidationErrors(errs)
	}

	if err := s.checkRelations(ctx, actor.UUID, input.CategoryID, input.TagIDs); err != nil {
		return nil, err
	}

	now := s.now()
	newTask := &task.Task{
		UUID:        uuid.New(),
		UserID:      actor.UUID,
		CategoryID:  input.CategoryID,
		Title:       input.Title,
		Description: input.Description,
		DueDate:     input.DueDate,
		Priority:    input.Priority,
		TagIDs:      task.Unique(input.TagIDs),
		CreatedAt:   now,
		Version:     1,
	}
	newTask.SetCompleted(input.Completed, now)

	if err := s.repo.Create(ctx, newTask); err != nil {
		logger.Error("Service: Не удалось создать задачу", err, zap.String("user_id", actor.UUID.String()))
		return nil, fmt.Errorf("создание задачи: %w", err)
	}

	s.events.Publish(ctx, events.New(events.TaskCreated, newTask.UserID, newTask.UUID, now).
		With("title", newTask.Title))

	return newTask, nil
}

func (s *TaskService) GetTaskByID(ctx context.Context, actor *user.User, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
		}
		return nil, translate(err, ResourceTask, id.String())
	}
	if err := authorize(actor, t.UserID, ResourceTask, id); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, actor *user.User, id uuid.UUID, input UpdateTaskInput) (*task.Task, error) {
	t, err := s.GetTaskByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	errs := map[string]string{}
	if input.Title != nil {
		validateTitle(*input.Title, true, errs)
	}
	if input.Priority != nil && !input.Priority.Valid() {
		errs["priority"] = "допустимо low, medium, high или urgent"
	}
	if input.ClearCategory && input.CategoryID != nil {
		errs["category_id"] = "нельзя одновременно задать и очистить категорию"
	}
	if len(errs) > 0 {
		return nil, NewValidationErrors(errs)
	}

	if err := s.checkRelations(ctx, t.UserID, input.CategoryID, input.TagIDs); err != nil {
		return nil, err
	}

	now := s.now()
	wasCompleted := t.Completed

	options := []task.TaskOption{
		task.WithDescription(input.Description),
		task.WithTags(input.TagIDs),
	}
	if input.Title != nil {
		options = append(options, task.WithTitle(*input.Title))
	}
	if input.Priority != nil {
		options = append(options, task.WithPriority(*input.Priority))
	}
	if input.DueDate != nil {
		options = append(options, task.WithDueDate(*input.DueDate))
	}
	if input.ClearDueDate {
		options = append(options, task.WithoutDueDate())
	}
	if input.CategoryID != nil {
		options = append(options, task.WithCategory(*input.CategoryID))
	}
	if input.ClearCategory {
		options = append(options, task.WithoutCategory())
	}
	if input.Completed != nil {
		options = append(options, task.WithCompleted(*input.Completed, now))
	}

	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}

	if err := s.repo.Update(ctx, t); err != nil {
		logger.Warn("Service: Не удалось обновить задачу", zap.String("task_id", id.String()), zap.Error(err))
		return nil, translate(err, ResourceTask, id.String())
	}

	s.events.Publish(ctx, completionEvent(t, wasCompleted, now))
	return t, nil
}

// ToggleTask переключает выполнение: pending -> completed -> pending.
func (s *TaskService) ToggleTask(ctx context.Context, actor *user.User, id uuid.UUID) (*task.Task, error) {
	t, err := s.GetTaskByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	wasCompleted := t.Completed
	t.Toggle(now)

	if err := s.repo.Update(ctx, t); err != nil {
		logger.Warn("Service: Не удалось переключить задачу", zap.String("task_id", id.String()), zap.Error(err))
		return nil, translate(err, ResourceTask, id.String())
	}

	s.events.Publish(ctx, completionEvent(t, wasCompleted, now))
	return t, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, actor *user.User, id uuid.UUID) error {
	t, err := s.GetTaskByID(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return translate(err, ResourceTask, id.String())
	}

	s.events.Publish(ctx, events.New(events.TaskDeleted, t.UserID, t.UUID, s.now()))
	return nil
}

// ListTasks возвращает страницу задач пользователя по фильтру.
func (s *TaskService) ListTasks(ctx context.Context, actor *user.User, filter task.Filter) (*TaskPage, error) {
	if errs := filter.Validate(); len(errs) > 0 {
		return nil, NewValidationErrors(errs)
	}

	filter = filter.Normalize(s.perPage, s.maxPerPage).ResolveDates(s.now())

	if filter.CategoryID != nil {
		if err := s.checkCategory(ctx, actor.UUID, *filter.CategoryID, "category"); err != nil {
			return nil, err
		}
	}

	return listTasks(ctx, s.repo, actor.UUID, filter)
}

func (s *TaskService) OverdueTasks(ctx context.Context, actor *user.User, page, perPage int) (*TaskPage, error) {
	now := s.now()
	filter := task.Filter{
		Status:    task.StatusIncomplete,
		DueBefore: &now,
		Page:      page,
		PerPage:   perPage,
	}
	return s.ListTasks(ctx, actor, filter)
}

func (s *TaskService) DueTodayTasks(ctx context.Context, actor *user.User, page, perPage int) (*TaskPage, error) {
	filter := task.Filter{
		DateFilter: task.DateToday,
		Page:       page,
		PerPage:    perPage,
	}
	return s.ListTasks(ctx, actor, filter)
}

func listTasks(ctx context.Context, repo TaskRepository, userID uuid.UUID, filter task.Filter) (*TaskPage, error) {
	tasks, err := repo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	total, err := repo.Count(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("подсчёт задач: %w", err)
	}
	return &TaskPage{
		Items:   tasks,
		Page:    filter.Page,
		PerPage: filter.PerPage,
		Total:   total,
	}, nil
}

// checkRelations проверяет, что категория и теги существуют и принадлежат владельцу задачи.
func (s *TaskService) checkRelations(ctx context.Context, ownerID uuid.UUID, categoryID *uuid.UUID, tagIDs []uuid.UUID) error {
	if categoryID != nil {
		if err := s.checkCategory(ctx, ownerID, *categoryID, "category_id"); err != nil {
			return err
		}
	}

	if len(tagIDs) == 0 {
		return nil
	}
	unique := task.Unique(tagIDs)
	found, err := s.tags.ListByIDs(ctx, unique)
	if err != nil {
		return fmt.Errorf("проверка тегов: %w", err)
	}
	if len(found) != len(unique) {
		return NewValidationError("tag_ids", "один или несколько тегов не найдены")
	}
	for _, t := range found {
		if t.UserID != ownerID {
			return NewValidationError("tag_ids", "один или несколько тегов не найдены")
		}
	}
	return nil
}

func (s *TaskService) checkCategory(ctx context.Context, ownerID, categoryID uuid.UUID, field string) error {
	c, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewValidationError(field, "категория не найдена")
		}
		return fmt.Errorf("проверка категории: %w", err)
	}
	if c.UserID != ownerID {
		return NewValidationError(field, "категория не найдена")
	}
	return nil
}

func validateTitle(title string, required bool, errs map[string]string) {
	switch {
	case required && title == "":
		errs["title"] = "название не может быть пустым"
	case utf8.RuneCountInString(title) > maxTitleLength:
		errs["title"] = fmt.Sprintf("название длиннее %d символов", maxTitleLength)
	}
}

func completionEvent(t *task.Task, wasCompleted bool, now time.Time) events.Event {
	name := events.TaskUpdated
	switch {
	case t.Completed && !wasCompleted:
		name = events.TaskCompleted
	case !t.Completed && wasCompleted:
		name = events.TaskReopened
	}
	return events.New(name, t.UserID, t.UUID, now).With("completed", t.Completed)
}
