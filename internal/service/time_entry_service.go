package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskManager/internal/events"
	"taskManager/internal/logger"
	"taskManager/internal/models/timeentry"
	"taskManager/internal/models/user"
	"taskManager/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TimeEntryService struct {
	repo   TimeEntryRepository
	tasks  TaskRepository
	events events.Publisher
	settings
}

func NewTimeEntryService(repo TimeEntryRepository, tasks TaskRepository, publisher events.Publisher, opts ...Option) *TimeEntryService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &TimeEntryService{
		repo:     repo,
		tasks:    tasks,
		events:   publisher,
		settings: applyOptions(opts),
	}
}

type TaskTime struct {
	Entries      []*timeentry.Entry
	TotalSeconds int64
}

// StartTimer запускает таймер по задаче. У пользователя может быть только одна активная запись.
func (s *TimeEntryService) StartTimer(ctx context.Context, actor *user.User, taskID uuid.UUID, description string) (*timeentry.Entry, error) {
	if err := s.checkTask(ctx, actor, taskID); err != nil {
		return nil, err
	}

	active, err := s.repo.GetActive(ctx, actor.UUID)
	switch {
	case err == nil:
		return nil, timerRunning(active)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("проверка активного таймера: %w", err)
	}

	now := s.now()
	entry := &timeentry.Entry{
		UUID:        uuid.New(),
		TaskID:      taskID,
		UserID:      actor.UUID,
		StartedAt:   now,
		Description: description,
		CreatedAt:   now,
	}

	if err := s.repo.Start(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrActiveEntryExists) {
			logger.Warn("Service: Параллельный запуск таймера", zap.String("user_id", actor.UUID.String()))
			return nil, timerRunning(nil)
		}
		return nil, fmt.Errorf("запуск таймера: %w", err)
	}

	s.events.Publish(ctx, events.New(events.TimerStarted, actor.UUID, entry.UUID, now).
		With("task_id", taskID.String()))
	return entry, nil
}

func (s *TimeEntryService) StopTimer(ctx context.Context, actor *user.User, entryID uuid.UUID) (*timeentry.Entry, error) {
	entry, err := s.getEntry(ctx, actor, entryID)
	if err != nil {
		return nil, err
	}
	if !entry.Active() {
		return nil, timerStopped(entryID)
	}

	now := s.now()
	stopped, err := s.repo.Stop(ctx, entryID, now)
	if err != nil {
		if errors.Is(err, repository.ErrEntryStopped) {
			return nil, timerStopped(entryID)
		}
		return nil, translate(err, ResourceTimeEntry, entryID.String())
	}

	s.events.Publish(ctx, events.New(events.TimerStopped, stopped.UserID, stopped.UUID, now).
		With("task_id", stopped.TaskID.String()).
		With("seconds", int64(stopped.Duration(now).Seconds())))
	return stopped, nil
}

func (s *TimeEntryService) ActiveTimer(ctx context.Context, actor *user.User) (*timeentry.Entry, error) {
	entry, err := s.repo.GetActive(ctx, actor.UUID)
	if err != nil {
		return nil, translate(err, ResourceTimeEntry, "active")
	}
	return entry, nil
}

// LogTime добавляет завершённую запись задним числом.
func (s *TimeEntryService) LogTime(ctx context.Context, actor *user.User, taskID uuid.UUID, startedAt, endedAt time.Time, description string) (*timeentry.Entry, error) {
	errs := map[string]string{}
	now := s.now()
	if startedAt.IsZero() {
		errs["started_at"] = "время начала обязательно"
	}
	if endedAt.IsZero() {
		errs["ended_at"] = "время окончания обязательно"
	} else if !endedAt.After(startedAt) {
		errs["ended_at"] = "окончание должно быть позже начала"
	} else if endedAt.After(now) {
		errs["ended_at"] = "окончание не может быть в будущем"
	}
	if len(errs) > 0 {
		return nil, NewValidationErrors(errs)
	}

	if err := s.checkTask(ctx, actor, taskID); err != nil {
		return nil, err
	}

	entry := &timeentry.Entry{
		UUID:        uuid.New(),
		TaskID:      taskID,
		UserID:      actor.UUID,
		StartedAt:   startedAt,
		EndedAt:     &endedAt,
		Description: description,
		CreatedAt:   now,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("добавление записи времени: %w", err)
	}
	return entry, nil
}

func (s *TimeEntryService) TaskEntries(ctx context.Context, actor *user.User, taskID uuid.UUID) (*TaskTime, error) {
	if err := s.checkTask(ctx, actor, taskID); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("получение записей времени: %w", err)
	}
	return &TaskTime{
		Entries:      entries,
		TotalSeconds: int64(timeentry.TotalDuration(entries, s.now()).Seconds()),
	}, nil
}

func (s *TimeEntryService) DeleteEntry(ctx context.Context, actor *user.User, entryID uuid.UUID) error {
	if _, err := s.getEntry(ctx, actor, entryID); err != nil {
		return err
	}
	return translate(s.repo.Delete(ctx, entryID), ResourceTimeEntry, entryID.String())
}

func (s *TimeEntryService) getEntry(ctx context.Context, actor *user.User, id uuid.UUID) (*timeentry.Entry, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ResourceTimeEntry, id.String())
	}
	if err := authorize(actor, entry.UserID, ResourceTimeEntry, id); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *TimeEntryService) checkTask(ctx context.Context, actor *user.User, taskID uuid.UUID) error {
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return translate(err, ResourceTask, taskID.String())
	}
	return authorize(actor, t.UserID, ResourceTask, taskID)
}

func timerRunning(active *timeentry.Entry) *BusinessError {
	details := []Detail{}
	if active != nil {
		details = append(details,
			ToDetail("active_entry_id", active.UUID.String()),
			ToDetail("task_id", active.TaskID.String()))
	}
	return NewBusinessError(CodeTimerRunning, "таймер уже запущен, сначала остановите его", details...)
}

func timerStopped(id uuid.UUID) *BusinessError {
	return NewBusinessError(CodeTimerStopped, "таймер уже остановлен", ToDetail("id", id.String()))
}
