package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"taskManager/internal/events"
	"taskManager/internal/models/task"
	"taskManager/internal/models/timeentry"
	"taskManager/internal/repository"
	"taskManager/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTimeEntryService_StartTimer(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.June, 2, 10, 0, 0, 0, time.UTC)
	actor := newActor()
	owned := &task.Task{UUID: uuid.New(), UserID: actor.UUID, Title: "Timed"}

	t.Run("starts when nothing is running", func(t *testing.T) {
		entries := new(MockTimeEntryRepository)
		tasks := new(MockTaskRepository)
		rec := &recorder{}
		svc := service.NewTimeEntryService(entries, tasks, rec, fixedClock(now))

		tasks.On("GetByID", mock.Anything, owned.UUID).Return(owned, nil)
		entries.On("GetActive", mock.Anything, actor.UUID).Return(nil, fmt.Errorf("получение: %w", repository.ErrNotFound))
		entries.On("Start", mock.Anything, mock.MatchedBy(func(e *timeentry.Entry) bool {
			return e.TaskID == owned.UUID && e.EndedAt == nil && e.StartedAt.Equal(now)
		})).Return(nil)

		entry, err := svc.StartTimer(ctx, actor, owned.UUID, "focus")
		require.NoError(t, err)
		assert.True(t, entry.Active())
		assert.Equal(t, []events.Name{events.TimerStarted}, rec.names())
	})

	t.Run("already running", func(t *testing.T) {
		entries := new(MockTimeEntryRepository)
		tasks := new(MockTaskRepository)
		svc := service.NewTimeEntryService(entries, tasks, nil, fixedClock(now))

		running := &timeentry.Entry{UUID: uuid.New(), TaskID: uuid.New(), UserID: actor.UUID, StartedAt: now.Add(-time.Hour)}
		tasks.On("GetByID", mock.Anything, owned.UUID).Return(owned, nil)
		entries.On("GetActive", mock.Anything, actor.UUID).Return(running, nil)

		_, err := svc.StartTimer(ctx, actor, owned.UUID, "")
		busErr, ok := service.AsBusinessError(err)
		require.True(t, ok)
		assert.Equal(t, service.CodeTimerRunning, busErr.Code)
		assert.Equal(t, running.UUID.String(), busErr.Details["active_entry_id"])
		entries.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
	})

	t.Run("lost race reported as running", func(t *testing.T) {
		entries := new(MockTimeEntryRepository)
		tasks := new(MockTaskRepository)
		svc := service.NewTimeEntryService(entries, tasks, nil, fixedClock(now))

		tasks.On("GetByID", mock.Anything, owned.UUID).Return(owned, nil)
		entries.On("GetActive", mock.Anything, actor.UUID).Return(nil, repository.ErrNotFound)
		entries.On("Start", mock.Anything, mock.Anything).Return(fmt.Errorf("запуск таймера: %w", repository.ErrActiveEntryExists))

		_, err := svc.StartTimer(ctx, actor, owned.UUID, "")
		assert.Equal(t, service.CodeTimerRunning, businessCode(err))
	})

	t.Run("foreign task", func(t *testing.T) {
		entries := new(MockTimeEntryRepository)
		tasks := new(MockTaskRepository)
		svc := service.NewTimeEntryService(entries, tasks, nil, fixedClock(now))

		foreign := &task.Task{UUID: uuid.New(), UserID: uuid.New()}
		tasks.On("GetByID", mock.Anything, foreign.UUID).Return(foreign, nil)

		_, err := svc.StartTimer(ctx, actor, foreign.UUID, "")
		assert.Equal(t, service.CodeForbidden, businessCode(err))
	})
}

func TestTimeEntryService_StopTimer(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.June, 2, 10, 0, 0, 0, time.UTC)
	actor := newActor()

	t.Run("stops active entry", func(t *testing.T) {
		entries := new(MockTimeEntryRepository)
		rec := &recorder{}
		svc := service.NewTimeEntryService(entries, new(MockTaskRepository), rec, fixedClock(now))

		active := &timeentry.Entry{UUID: uuid.New(), TaskID: uuid.New(), UserID: actor.UUID, StartedAt: now.Add(-30 * time.Minute)}
		end := now
		stopped := *active
		stopped.EndedAt = &end

		entries.On("GetByID", mock.Anything, active.UUID).Return(active, nil)
		entries.On("Stop", mock.Anything, active.UUID, now).Return(&stopped, nil)

		got, err := svc.StopTimer(ctx, actor, active.UUID)
		require.NoError(t, err)
		assert.Equal(t, 30*time.Minute, got.Duration(now))
		assert.Equal(t, []events.Name{events.TimerStopped}, rec.names())
	})

	t.Run("already stopped", func(t *testing.T) {
		entries := new(MockTimeEntryRepository)
		svc := service.NewTimeEntryService(entries, new(MockTaskRepository), nil, fixedClock(now))

		end := now.Add(-time.Minute)
		closed := &timeentry.Entry{UUID: uuid.New(), UserID: actor.UUID, StartedAt: now.Add(-time.Hour), EndedAt: &end}
		entries.On("GetByID", mock.Anything, closed.UUID).Return(closed, nil)

		_, err := svc.StopTimer(ctx, actor, closed.UUID)
		assert.Equal(t, service.CodeTimerStopped, businessCode(err))
		entries.AssertNotCalled(t, "Stop", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stopped concurrently", func(t *testing.T) {
		entries := new(MockTimeEntryRepository)
		svc := service.NewTimeEntryService(entries, new(MockTaskRepository), nil, fixedClock(now))

		active := &timeentry.Entry{UUID: uuid.New(), UserID: actor.UUID, StartedAt: now.Add(-time.Hour)}
		entries.On("GetByID", mock.Anything, active.UUID).Return(active, nil)
		entries.On("Stop", mock.Anything, active.UUID, now).Return(nil, repository.ErrEntryStopped)

		_, err := svc.StopTimer(ctx, actor, active.UUID)
		assert.Equal(t, service.CodeTimerStopped, businessCode(err))
	})
}

func TestTimeEntryService_LogTime(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.June, 2, 10, 0, 0, 0, time.UTC)
	actor := newActor()

	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		wantField string
	}{
		{name: "end before start", start: now.Add(-time.Hour), end: now.Add(-2 * time.Hour), wantField: "ended_at"},
		{name: "end in future", start: now.Add(-time.Hour), end: now.Add(time.Hour), wantField: "ended_at"},
		{name: "missing start", end: now, wantField: "started_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := new(MockTimeEntryRepository)
			svc := service.NewTimeEntryService(entries, new(MockTaskRepository), nil, fixedClock(now))

			_, err := svc.LogTime(ctx, actor, uuid.New(), tt.start, tt.end, "")
			busErr, ok := service.AsBusinessError(err)
			require.True(t, ok)
			assert.Contains(t, busErr.Details, tt.wantField)
			entries.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}

	t.Run("task total includes running entry", func(t *testing.T) {
		entries := new(MockTimeEntryRepository)
		tasks := new(MockTaskRepository)
		svc := service.NewTimeEntryService(entries, tasks, nil, fixedClock(now))

		owned := &task.Task{UUID: uuid.New(), UserID: actor.UUID}
		end := now.Add(-time.Hour)
		list := []*timeentry.Entry{
			{UUID: uuid.New(), TaskID: owned.UUID, StartedAt: now.Add(-10 * time.Minute)},
			{UUID: uuid.New(), TaskID: owned.UUID, StartedAt: end.Add(-20 * time.Minute), EndedAt: &end},
		}
		tasks.On("GetByID", mock.Anything, owned.UUID).Return(owned, nil)
		entries.On("ListByTask", mock.Anything, owned.UUID).Return(list, nil)

		total, err := svc.TaskEntries(ctx, actor, owned.UUID)
		require.NoError(t, err)
		assert.Equal(t, int64(30*60), total.TotalSeconds)
		assert.Len(t, total.Entries, 2)
	})
}
