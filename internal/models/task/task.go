package task

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Task struct {
	UUID        uuid.UUID   `json:"uuid" db:"id"`
	UserID      uuid.UUID   `json:"user_id" db:"user_id"`
	CategoryID  *uuid.UUID  `json:"category_id,omitempty" db:"category_id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	DueDate     *time.Time  `json:"due_date,omitempty" db:"due_date"`
	Priority    Priority    `json:"priority" db:"priority"`
	Completed   bool        `json:"completed" db:"completed"`
	CompletedAt *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	TagIDs      []uuid.UUID `json:"tag_ids" db:"-"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty" db:"updated_at"`
	Version     int         `json:"version" db:"version"`
}

// IsOverdue сообщает, что незавершённая задача просрочена относительно now.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
}

// Toggle переключает задачу между pending и completed.
// completed_at выставляется только вместе с completed.
func (t *Task) Toggle(now time.Time) {
	t.SetCompleted(!t.Completed, now)
}

func (t *Task) SetCompleted(completed bool, now time.Time) {
	if completed == t.Completed && (completed == (t.CompletedAt != nil)) {
		return
	}
	t.Completed = completed
	if completed {
		at := now
		t.CompletedAt = &at
		return
	}
	t.CompletedAt = nil
}

func (t *Task) HasTag(id uuid.UUID) bool {
	for _, tagID := range t.TagIDs {
		if tagID == id {
			return true
		}
	}
	return false
}

type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

var priorityNames = map[Priority]string{
	PriorityLow:    "low",
	PriorityMedium: "medium",
	PriorityHigh:   "high",
	PriorityUrgent: "urgent",
}

// Priorities перечисляет приоритеты по возрастанию.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}
}

func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return strconv.Itoa(int(p))
}

// ParsePriority принимает и имя ("high"), и порядковый номер ("3").
func ParsePriority(raw string) (Priority, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for p, name := range priorityNames {
		if name == raw {
			return p, nil
		}
	}
	if n, err := strconv.Atoi(raw); err == nil && Priority(n).Valid() {
		return Priority(n), nil
	}
	return 0, fmt.Errorf("неизвестный приоритет %q", raw)
}

func (p Priority) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParsePriority(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// DueCursor задаёт нижнюю границу выборки по сроку: берутся задачи с (due_date, id) строго после курсора.
// Нулевой ID означает границу только по времени.
type DueCursor struct {
	DueDate time.Time
	ID      uuid.UUID
}

func CursorAt(t time.Time) DueCursor {
	return DueCursor{DueDate: t}
}

// CursorAfter указывает на задачу, после которой нужно продолжить выборку.
func CursorAfter(t *Task) DueCursor {
	c := DueCursor{ID: t.UUID}
	if t.DueDate != nil {
		c.DueDate = *t.DueDate
	}
	return c
}

func (c DueCursor) HasID() bool {
	return c.ID != uuid.Nil
}
