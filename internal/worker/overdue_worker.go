package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskManager/internal/events"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultSchedule  = "@every 5m"
	DefaultBatchSize = 100
)

type DueTaskSource interface {
	GetTasksDueBetween(ctx context.Context, from task.DueCursor, to time.Time, limit int) ([]*task.Task, error)
}

// OverdueWorker по расписанию находит задачи, чей срок истёк с прошлого запуска,
// и публикует для каждой событие task.overdue.
type OverdueWorker struct {
	repo      DueTaskSource
	events    events.Publisher
	now       func() time.Time
	schedule  string
	batchSize int

	mtx    sync.Mutex
	cursor task.DueCursor
}

func NewOverdueWorker(repo DueTaskSource, publisher events.Publisher, now func() time.Time, schedule string, batchSize int) *OverdueWorker {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if now == nil {
		now = time.Now
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &OverdueWorker{
		repo:      repo,
		events:    publisher,
		now:       now,
		schedule:  schedule,
		batchSize: batchSize,
		cursor:    task.CursorAt(now()),
	}
}

// Start блокируется до отмены ctx; повторный запуск задания, пока идёт предыдущее, пропускается.
func (w *OverdueWorker) Start(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	if _, err := c.AddFunc(w.schedule, func() { w.Check(ctx) }); err != nil {
		return fmt.Errorf("расписание %q: %w", w.schedule, err)
	}

	logger.Info("Worker: Фоновая проверка просроченных задач запущена", zap.String("schedule", w.schedule))
	c.Start()

	<-ctx.Done()
	logger.Info("Worker: Фоновая проверка останавливается")
	<-c.Stop().Done()
	return nil
}

// Check обрабатывает не больше одной пачки; если пачка полная, следующий запуск продолжит
// с последней задачи пачки, включая задачи с тем же сроком.
func (w *OverdueWorker) Check(ctx context.Context) int {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	start := time.Now()
	now := w.now()
	tasks, err := w.repo.GetTasksDueBetween(ctx, w.cursor, now, w.batchSize)
	if err != nil {
		logger.Warn("Worker: ошибка получения задач", zap.Error(err))
		return 0
	}

	for _, t := range tasks {
		w.events.Publish(ctx, events.New(events.TaskOverdue, t.UserID, t.UUID, now).
			With("due_date", t.DueDate))
	}

	w.cursor = task.CursorAt(now)
	if len(tasks) == w.batchSize {
		w.cursor = task.CursorAfter(tasks[len(tasks)-1])
	}

	level := zapcore.InfoLevel
	if len(tasks) == 0 {
		level = zapcore.DebugLevel
	}
	logger.Log(
		level,
		"Worker: Завершение проверки задач",
		zap.Duration("ms", time.Since(start)),
		zap.Int("overdue", len(tasks)),
		zap.Time("checked_until", w.cursor.DueDate),
	)
	return len(tasks)
}
