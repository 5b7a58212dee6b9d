package task

import (
	"time"

	"github.com/google/uuid"
)

// TaskOption применяет частичное обновление к задаче.
// Конструкторы возвращают nil, если менять нечего; nil-опции пропускаются.
type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	if title == "" {
		return nil
	}
	return func(task *Task) {
		task.Title = title
	}
}

func WithDescription(description *string) TaskOption {
	if description == nil {
		return nil
	}
	return func(task *Task) {
		task.Description = *description
	}
}

func WithPriority(priority Priority) TaskOption {
	if !priority.Valid() {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithDueDate(dueDate time.Time) TaskOption {
	if dueDate.IsZero() {
		return nil
	}
	return func(task *Task) {
		task.DueDate = &dueDate
	}
}

func WithoutDueDate() TaskOption {
	return func(task *Task) {
		task.DueDate = nil
	}
}

func WithCategory(categoryID uuid.UUID) TaskOption {
	if categoryID == uuid.Nil {
		return nil
	}
	return func(task *Task) {
		task.CategoryID = &categoryID
	}
}

func WithoutCategory() TaskOption {
	return func(task *Task) {
		task.CategoryID = nil
	}
}

func WithCompleted(completed bool, now time.Time) TaskOption {
	return func(task *Task) {
		task.SetCompleted(completed, now)
	}
}

func WithTags(tagIDs []uuid.UUID) TaskOption {
	if tagIDs == nil {
		return nil
	}
	return func(task *Task) {
		task.TagIDs = Unique(tagIDs)
	}
}

// Unique убирает повторы, сохраняя порядок.
func Unique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	res := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	return res
}
