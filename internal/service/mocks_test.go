package service_test

import (
	"context"
	"sync"
	"time"

	"taskManager/internal/events"
	"taskManager/internal/models/category"
	"taskManager/internal/models/tag"
	"taskManager/internal/models/task"
	"taskManager/internal/models/timeentry"
	"taskManager/internal/models/user"
	"taskManager/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockTaskRepository - мок репозитория задач
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTaskRepository) List(ctx context.Context, userID uuid.UUID, filter task.Filter) ([]*task.Task, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) Count(ctx context.Context, userID uuid.UUID, filter task.Filter) (int, error) {
	args := m.Called(ctx, userID, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockTaskRepository) CountCreatedByMonth(ctx context.Context, userID uuid.UUID, from, to time.Time) (map[int]int, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]int), args.Error(1)
}

func (m *MockTaskRepository) GetTasksDueBetween(ctx context.Context, from task.DueCursor, to time.Time, limit int) ([]*task.Task, error) {
	args := m.Called(ctx, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)

type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) Create(ctx context.Context, c *category.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCategoryRepository) Update(ctx context.Context, c *category.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*category.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*category.Category), args.Error(1)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCategoryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*category.Category, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*category.Category), args.Error(1)
}

var _ service.CategoryRepository = (*MockCategoryRepository)(nil)

type MockTagRepository struct {
	mock.Mock
}

func (m *MockTagRepository) Create(ctx context.Context, t *tag.Tag) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTagRepository) Update(ctx context.Context, t *tag.Tag) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTagRepository) GetByID(ctx context.Context, id uuid.UUID) (*tag.Tag, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tag.Tag), args.Error(1)
}

func (m *MockTagRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTagRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*tag.Tag, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*tag.Tag), args.Error(1)
}

func (m *MockTagRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*tag.Tag, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*tag.Tag), args.Error(1)
}

func (m *MockTagRepository) Merge(ctx context.Context, sourceID, targetID uuid.UUID) (*tag.Tag, error) {
	args := m.Called(ctx, sourceID, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tag.Tag), args.Error(1)
}

var _ service.TagRepository = (*MockTagRepository)(nil)

type MockTimeEntryRepository struct {
	mock.Mock
}

func (m *MockTimeEntryRepository) Start(ctx context.Context, e *timeentry.Entry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockTimeEntryRepository) Create(ctx context.Context, e *timeentry.Entry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockTimeEntryRepository) Stop(ctx context.Context, id uuid.UUID, endedAt time.Time) (*timeentry.Entry, error) {
	args := m.Called(ctx, id, endedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*timeentry.Entry), args.Error(1)
}

func (m *MockTimeEntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*timeentry.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*timeentry.Entry), args.Error(1)
}

func (m *MockTimeEntryRepository) GetActive(ctx context.Context, userID uuid.UUID) (*timeentry.Entry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*timeentry.Entry), args.Error(1)
}

func (m *MockTimeEntryRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*timeentry.Entry, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*timeentry.Entry), args.Error(1)
}

func (m *MockTimeEntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTimeEntryRepository) SumClosed(ctx context.Context, userID uuid.UUID) (time.Duration, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(time.Duration), args.Error(1)
}

var _ service.TimeEntryRepository = (*MockTimeEntryRepository)(nil)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

var _ service.UserRepository = (*MockUserRepository)(nil)

// recorder запоминает опубликованные события
type recorder struct {
	mtx    sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) names() []events.Name {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	res := make([]events.Name, len(r.events))
	for i, e := range r.events {
		res[i] = e.Name
	}
	return res
}

func fixedClock(at time.Time) service.Option {
	return service.WithClock(func() time.Time { return at })
}

func newActor() *user.User {
	return &user.User{UUID: uuid.New(), Name: "Actor", Email: "actor@example.com", Role: user.RoleUser, Active: true}
}

func businessCode(err error) string {
	if busErr, ok := service.AsBusinessError(err); ok {
		return busErr.Code
	}
	return ""
}
