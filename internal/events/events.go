package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskManager/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Name string

const (
	TaskCreated   Name = "task.created"
	TaskUpdated   Name = "task.updated"
	TaskCompleted Name = "task.completed"
	TaskReopened  Name = "task.reopened"
	TaskDeleted   Name = "task.deleted"
	TaskOverdue   Name = "task.overdue"
	TagMerged     Name = "tag.merged"
	TimerStarted  Name = "timer.started"
	TimerStopped  Name = "timer.stopped"
)

type Event struct {
	Name       Name
	UserID     uuid.UUID
	EntityID   uuid.UUID
	OccurredAt time.Time
	Payload    map[string]any
}

func New(name Name, userID, entityID uuid.UUID, at time.Time) Event {
	return Event{
		Name:       name,
		UserID:     userID,
		EntityID:   entityID,
		OccurredAt: at,
		Payload:    map[string]any{},
	}
}

func (e Event) With(key string, value any) Event {
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	e.Payload[key] = value
	return e
}

// Publisher: всё, что нужно сервисам от шины событий.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type Handler func(ctx context.Context, event Event)

// Dispatcher синхронно раздаёт события подписчикам.
// Паника в подписчике логируется и не мешает остальным.
type Dispatcher struct {
	mtx      sync.RWMutex
	handlers map[Name][]Handler
	all      []Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[Name][]Handler),
	}
}

// Subscribe подписывает handler на перечисленные события, без имён на все.
func (d *Dispatcher) Subscribe(handler Handler, names ...Name) {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if len(names) == 0 {
		d.all = append(d.all, handler)
		return
	}
	for _, name := range names {
		d.handlers[name] = append(d.handlers[name], handler)
	}
}

func (d *Dispatcher) Publish(ctx context.Context, event Event) {
	d.mtx.RLock()
	targets := make([]Handler, 0, len(d.all)+len(d.handlers[event.Name]))
	targets = append(targets, d.all...)
	targets = append(targets, d.handlers[event.Name]...)
	d.mtx.RUnlock()

	for _, handler := range targets {
		d.safeCall(ctx, handler, event)
	}
}

func (d *Dispatcher) safeCall(ctx context.Context, handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Events: Паника в подписчике", fmt.Errorf("%v", r),
				zap.String("event", string(event.Name)))
		}
	}()
	handler(ctx, event)
}

// LogHandler пишет каждое событие в журнал.
func LogHandler(ctx context.Context, event Event) {
	fields := []zap.Field{
		zap.String("event", string(event.Name)),
		zap.String("user_id", event.UserID.String()),
		zap.String("entity_id", event.EntityID.String()),
		zap.Time("occurred_at", event.OccurredAt),
	}
	for key, value := range event.Payload {
		fields = append(fields, zap.Any(key, value))
	}
	logger.Info("Events: Событие", fields...)
}

// Nop ничего не публикует.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
