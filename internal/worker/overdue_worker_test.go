package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskManager/internal/events"
	"taskManager/internal/models/task"
	"taskManager/internal/models/user"
	"taskManager/internal/repository/sqlite"
	"taskManager/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDueTaskSource struct {
	mock.Mock
}

func (m *MockDueTaskSource) GetTasksDueBetween(ctx context.Context, from task.DueCursor, to time.Time, limit int) ([]*task.Task, error) {
	args := m.Called(ctx, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

type collector struct {
	mtx    sync.Mutex
	events []events.Event
}

func (c *collector) Publish(_ context.Context, e events.Event) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.events = append(c.events, e)
}

type steppingClock struct {
	times []time.Time
	i     int
}

func (c *steppingClock) now() time.Time {
	t := c.times[c.i]
	if c.i < len(c.times)-1 {
		c.i++
	}
	return t
}

func dueTask(due time.Time) *task.Task {
	return &task.Task{UUID: uuid.New(), UserID: uuid.New(), Title: "late", DueDate: &due}
}

func TestOverdueWorker_CheckPublishesAndAdvances(t *testing.T) {
	t0 := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(5 * time.Minute)
	t2 := t1.Add(5 * time.Minute)
	clock := &steppingClock{times: []time.Time{t0, t1, t2}}

	repo := new(MockDueTaskSource)
	sink := &collector{}

	repo.On("GetTasksDueBetween", mock.Anything, task.CursorAt(t0), t1, 10).
		Return([]*task.Task{dueTask(t0.Add(time.Minute)), dueTask(t0.Add(2 * time.Minute))}, nil).Once()
	repo.On("GetTasksDueBetween", mock.Anything, task.CursorAt(t1), t2, 10).
		Return([]*task.Task{}, nil).Once()

	w := worker.NewOverdueWorker(repo, sink, clock.now, "", 10)

	assert.Equal(t, 2, w.Check(context.Background()))
	assert.Equal(t, 0, w.Check(context.Background()))

	require.Len(t, sink.events, 2)
	for _, e := range sink.events {
		assert.Equal(t, events.TaskOverdue, e.Name)
	}
	repo.AssertExpectations(t)
}

func TestOverdueWorker_FullBatchResumesFromLastTask(t *testing.T) {
	t0 := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t1.Add(time.Minute)
	clock := &steppingClock{times: []time.Time{t0, t1, t2}}
	last := dueTask(t0.Add(10 * time.Minute))

	repo := new(MockDueTaskSource)
	repo.On("GetTasksDueBetween", mock.Anything, task.CursorAt(t0), t1, 2).
		Return([]*task.Task{dueTask(t0.Add(5 * time.Minute)), last}, nil).Once()
	repo.On("GetTasksDueBetween", mock.Anything, task.DueCursor{DueDate: *last.DueDate, ID: last.UUID}, t2, 2).
		Return([]*task.Task{dueTask(t0.Add(20 * time.Minute))}, nil).Once()

	w := worker.NewOverdueWorker(repo, nil, clock.now, "", 2)
	assert.Equal(t, 2, w.Check(context.Background()))
	assert.Equal(t, 1, w.Check(context.Background()))
	repo.AssertExpectations(t)
}

func TestOverdueWorker_ErrorKeepsWindow(t *testing.T) {
	t0 := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	t2 := t1.Add(time.Minute)
	clock := &steppingClock{times: []time.Time{t0, t1, t2}}

	repo := new(MockDueTaskSource)
	repo.On("GetTasksDueBetween", mock.Anything, task.CursorAt(t0), t1, 5).Return(nil, errors.New("db down")).Once()
	repo.On("GetTasksDueBetween", mock.Anything, task.CursorAt(t0), t2, 5).Return([]*task.Task{}, nil).Once()

	w := worker.NewOverdueWorker(repo, nil, clock.now, "", 5)
	assert.Equal(t, 0, w.Check(context.Background()))
	assert.Equal(t, 0, w.Check(context.Background()))
	repo.AssertExpectations(t)
}

func TestOverdueWorker_StartRejectsBadSchedule(t *testing.T) {
	w := worker.NewOverdueWorker(new(MockDueTaskSource), nil, nil, "not a schedule", 1)
	assert.Error(t, w.Start(context.Background()))
}

func TestOverdueWorker_StartStopsOnCancel(t *testing.T) {
	w := worker.NewOverdueWorker(new(MockDueTaskSource), nil, nil, "@every 1h", 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestOverdueWorker_TiedDueDatesAcrossBatches(t *testing.T) {
	storage, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer storage.Close()

	ctx := context.Background()
	u := &user.User{UUID: uuid.New(), Name: "Tie", Email: "tie@example.com", PasswordHash: "hash", Role: user.RoleUser, Active: true, CreatedAt: time.Now()}
	require.NoError(t, storage.Users.Create(ctx, u))

	t0 := time.Date(2026, time.May, 1, 10, 0, 0, 0, time.UTC)
	due := t0.Add(time.Minute)
	want := map[uuid.UUID]bool{}
	for i := 0; i < 3; i++ {
		tk := &task.Task{UUID: uuid.New(), UserID: u.UUID, Title: "tied", Priority: task.PriorityMedium, DueDate: &due, CreatedAt: t0, Version: 1}
		require.NoError(t, storage.Tasks.Create(ctx, tk))
		want[tk.UUID] = true
	}

	clock := &steppingClock{times: []time.Time{t0, t0.Add(5 * time.Minute), t0.Add(10 * time.Minute), t0.Add(15 * time.Minute)}}
	sink := &collector{}
	w := worker.NewOverdueWorker(storage.Tasks, sink, clock.now, "", 2)

	assert.Equal(t, 2, w.Check(ctx))
	assert.Equal(t, 1, w.Check(ctx))
	assert.Equal(t, 0, w.Check(ctx))

	got := map[uuid.UUID]bool{}
	for _, e := range sink.events {
		got[e.EntityID] = true
	}
	assert.Equal(t, want, got)
}
