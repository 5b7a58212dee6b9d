package service

import (
	"context"
	"time"

	"taskManager/internal/models/category"
	"taskManager/internal/models/tag"
	"taskManager/internal/models/task"
	"taskManager/internal/models/timeentry"
	"taskManager/internal/models/user"

	"github.com/google/uuid"
)

type TaskRepository interface {
	Create(context.Context, *task.Task) error
	Update(context.Context, *task.Task) error
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	Delete(context.Context, uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID, filter task.Filter) ([]*task.Task, error)
	Count(ctx context.Context, userID uuid.UUID, filter task.Filter) (int, error)
	CountCreatedByMonth(ctx context.Context, userID uuid.UUID, from, to time.Time) (map[int]int, error)
	GetTasksDueBetween(ctx context.Context, from task.DueCursor, to time.Time, limit int) ([]*task.Task, error)
}

type CategoryRepository interface {
	Create(context.Context, *category.Category) error
	Update(context.Context, *category.Category) error
	GetByID(context.Context, uuid.UUID) (*category.Category, error)
	Delete(context.Context, uuid.UUID) error
	ListByUser(context.Context, uuid.UUID) ([]*category.Category, error)
}

type TagRepository interface {
	Create(context.Context, *tag.Tag) error
	Update(context.Context, *tag.Tag) error
	GetByID(context.Context, uuid.UUID) (*tag.Tag, error)
	Delete(context.Context, uuid.UUID) error
	ListByUser(context.Context, uuid.UUID) ([]*tag.Tag, error)
	ListByIDs(context.Context, []uuid.UUID) ([]*tag.Tag, error)
	Merge(ctx context.Context, sourceID, targetID uuid.UUID) (*tag.Tag, error)
}

type TimeEntryRepository interface {
	Start(context.Context, *timeentry.Entry) error
	Create(context.Context, *timeentry.Entry) error
	Stop(ctx context.Context, id uuid.UUID, endedAt time.Time) (*timeentry.Entry, error)
	GetByID(context.Context, uuid.UUID) (*timeentry.Entry, error)
	GetActive(ctx context.Context, userID uuid.UUID) (*timeentry.Entry, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*timeentry.Entry, error)
	Delete(context.Context, uuid.UUID) error
	SumClosed(ctx context.Context, userID uuid.UUID) (time.Duration, error)
}

type UserRepository interface {
	Create(context.Context, *user.User) error
	Update(context.Context, *user.User) error
	GetByID(context.Context, uuid.UUID) (*user.User, error)
	GetByEmail(context.Context, string) (*user.User, error)
}

// HealthChecker реализуют оба хранилища.
type HealthChecker interface {
	HealthCheck(context.Context) error
}

// Clock подменяется в тестах.
type Clock func() time.Time

func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return func() time.Time {
		return time.Now().In(loc).Truncate(time.Microsecond)
	}
}
