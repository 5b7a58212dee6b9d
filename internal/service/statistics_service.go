package service

import (
	"context"
	"errors"
	"fmt"

	"taskManager/internal/models/category"
	"taskManager/internal/models/task"
	"taskManager/internal/models/timeentry"
	"taskManager/internal/models/user"
	"taskManager/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// StatisticsService: единственное место, где считаются счётчики для дашбордов.
type StatisticsService struct {
	tasks      TaskRepository
	categories CategoryRepository
	tags       TagRepository
	entries    TimeEntryRepository
	settings
}

func NewStatisticsService(tasks TaskRepository, categories CategoryRepository, tags TagRepository, entries TimeEntryRepository, opts ...Option) *StatisticsService {
	return &StatisticsService{
		tasks:      tasks,
		categories: categories,
		tags:       tags,
		entries:    entries,
		settings:   applyOptions(opts),
	}
}

type UserStatistics struct {
	Tasks                *task.Statistics `json:"tasks"`
	Categories           int              `json:"categories"`
	Tags                 int              `json:"tags"`
	TrackedSeconds       int64            `json:"tracked_seconds"`
	CompletionPercentage float64          `json:"completion_percentage"`
	ActiveEntry          *timeentry.Entry `json:"active_time_entry"`
}

// TaskStatistics считает счётчики задач пользователя.
// due_today включает и выполненные задачи; overdue только невыполненные.
func (s *StatisticsService) TaskStatistics(ctx context.Context, actor *user.User) (*task.Statistics, error) {
	now := s.now()
	userID := actor.UUID
	stats := task.NewStatistics()

	dayFrom, dayTo := task.DayRange(now)
	yearFrom, yearTo := task.YearRange(now)

	var completed, total, dueToday, overdue int
	byPriority := make([]int, len(task.Priorities()))
	var byMonth map[int]int

	g, gctx := errgroup.WithContext(ctx)

	count := func(dst *int, filter task.Filter) {
		g.Go(func() error {
			n, err := s.tasks.Count(gctx, userID, filter)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}

	count(&total, task.Filter{})
	count(&completed, task.Filter{Status: task.StatusCompleted})
	count(&dueToday, task.Filter{DueFrom: &dayFrom, DueTo: &dayTo})
	count(&overdue, task.Filter{Status: task.StatusIncomplete, DueBefore: &now})
	for i, p := range task.Priorities() {
		count(&byPriority[i], task.Filter{Priority: p})
	}
	g.Go(func() error {
		months, err := s.tasks.CountCreatedByMonth(gctx, userID, yearFrom, yearTo)
		if err != nil {
			return err
		}
		byMonth = months
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("подсчёт статистики: %w", err)
	}

	stats.Total = total
	stats.Completed = completed
	stats.Incomplete = total - completed
	stats.DueToday = dueToday
	stats.Overdue = overdue
	for i, p := range task.Priorities() {
		stats.ByPriority[p.String()] = byPriority[i]
	}
	for month, n := range byMonth {
		if month >= 1 && month <= 12 {
			stats.ByMonth[task.MonthKey(month)] = n
		}
	}

	return stats, nil
}

func (s *StatisticsService) UserStatistics(ctx context.Context, actor *user.User) (*UserStatistics, error) {
	taskStats, err := s.TaskStatistics(ctx, actor)
	if err != nil {
		return nil, err
	}

	categories, err := s.categories.ListByUser(ctx, actor.UUID)
	if err != nil {
		return nil, fmt.Errorf("получение категорий: %w", err)
	}
	tags, err := s.tags.ListByUser(ctx, actor.UUID)
	if err != nil {
		return nil, fmt.Errorf("получение тегов: %w", err)
	}

	tracked, active, err := s.trackedTime(ctx, actor.UUID)
	if err != nil {
		return nil, err
	}

	return &UserStatistics{
		Tasks:                taskStats,
		Categories:           len(categories),
		Tags:                 len(tags),
		TrackedSeconds:       tracked,
		CompletionPercentage: category.Percentage(taskStats.Completed, taskStats.Total),
		ActiveEntry:          active,
	}, nil
}

func (s *StatisticsService) trackedTime(ctx context.Context, userID uuid.UUID) (int64, *timeentry.Entry, error) {
	closed, err := s.entries.SumClosed(ctx, userID)
	if err != nil {
		return 0, nil, fmt.Errorf("подсчёт времени: %w", err)
	}

	active, err := s.entries.GetActive(ctx, userID)
	switch {
	case err == nil:
		closed += active.Duration(s.now())
	case errors.Is(err, repository.ErrNotFound):
		active = nil
	default:
		return 0, nil, fmt.Errorf("получение активного таймера: %w", err)
	}

	return int64(closed.Seconds()), active, nil
}
