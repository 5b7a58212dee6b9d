package handlers

import (
	"context"
	"time"

	"taskManager/internal/models/category"
	"taskManager/internal/models/tag"
	"taskManager/internal/models/task"
	"taskManager/internal/models/timeentry"
	"taskManager/internal/models/user"
	"taskManager/internal/service"

	"github.com/google/uuid"
)

type TaskService interface {
	CreateTask(ctx context.Context, actor *user.User, input service.CreateTaskInput) (*task.Task, error)
	GetTaskByID(ctx context.Context, actor *user.User, id uuid.UUID) (*task.Task, error)
	UpdateTask(ctx context.Context, actor *user.User, id uuid.UUID, input service.UpdateTaskInput) (*task.Task, error)
	ToggleTask(ctx context.Context, actor *user.User, id uuid.UUID) (*task.Task, error)
	DeleteTask(ctx context.Context, actor *user.User, id uuid.UUID) error
	ListTasks(ctx context.Context, actor *user.User, filter task.Filter) (*service.TaskPage, error)
	OverdueTasks(ctx context.Context, actor *user.User, page, perPage int) (*service.TaskPage, error)
	DueTodayTasks(ctx context.Context, actor *user.User, page, perPage int) (*service.TaskPage, error)
}

type CategoryService interface {
	CreateCategory(ctx context.Context, actor *user.User, input service.CategoryInput) (*category.Category, error)
	GetCategory(ctx context.Context, actor *user.User, id uuid.UUID) (*category.Category, error)
	ListCategories(ctx context.Context, actor *user.User) ([]*category.Category, error)
	UpdateCategory(ctx context.Context, actor *user.User, id uuid.UUID, input service.CategoryInput) (*category.Category, error)
	DeleteCategory(ctx context.Context, actor *user.User, id uuid.UUID) error
	CategoryTasks(ctx context.Context, actor *user.User, id uuid.UUID, filter task.Filter) (*service.TaskPage, error)
}

type TagService interface {
	CreateTag(ctx context.Context, actor *user.User, input service.TagInput) (*tag.Tag, error)
	GetTag(ctx context.Context, actor *user.User, id uuid.UUID) (*tag.Tag, error)
	ListTags(ctx context.Context, actor *user.User) ([]*tag.Tag, error)
	UpdateTag(ctx context.Context, actor *user.User, id uuid.UUID, input service.TagInput) (*tag.Tag, error)
	DeleteTag(ctx context.Context, actor *user.User, id uuid.UUID) error
	MergeTags(ctx context.Context, actor *user.User, sourceID, targetID uuid.UUID) (*tag.Tag, error)
}

type TimeEntryService interface {
	StartTimer(ctx context.Context, actor *user.User, taskID uuid.UUID, description string) (*timeentry.Entry, error)
	StopTimer(ctx context.Context, actor *user.User, entryID uuid.UUID) (*timeentry.Entry, error)
	ActiveTimer(ctx context.Context, actor *user.User) (*timeentry.Entry, error)
	LogTime(ctx context.Context, actor *user.User, taskID uuid.UUID, startedAt, endedAt time.Time, description string) (*timeentry.Entry, error)
	TaskEntries(ctx context.Context, actor *user.User, taskID uuid.UUID) (*service.TaskTime, error)
	DeleteEntry(ctx context.Context, actor *user.User, entryID uuid.UUID) error
}

type UserService interface {
	Register(ctx context.Context, input service.RegisterInput) (*user.User, error)
	UpdateProfile(ctx context.Context, actor *user.User, input service.UpdateProfileInput) (*user.User, error)
}

type StatisticsService interface {
	TaskStatistics(ctx context.Context, actor *user.User) (*task.Statistics, error)
	UserStatistics(ctx context.Context, actor *user.User) (*service.UserStatistics, error)
}

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

var (
	_ TaskService       = (*service.TaskService)(nil)
	_ CategoryService   = (*service.CategoryService)(nil)
	_ TagService        = (*service.TagService)(nil)
	_ TimeEntryService  = (*service.TimeEntryService)(nil)
	_ UserService       = (*service.UserService)(nil)
	_ StatisticsService = (*service.StatisticsService)(nil)
)
