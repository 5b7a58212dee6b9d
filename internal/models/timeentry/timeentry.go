package timeentry

import (
	"time"

	"github.com/google/uuid"
)

// Entry: интервал работы над задачей. Активна, пока EndedAt == nil.
type Entry struct {
	UUID        uuid.UUID  `json:"uuid" db:"id"`
	TaskID      uuid.UUID  `json:"task_id" db:"task_id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	Description string     `json:"description" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

func (e *Entry) Active() bool {
	return e.EndedAt == nil
}

// Duration считает длительность; для активной записи до now.
func (e *Entry) Duration(now time.Time) time.Duration {
	end := now
	if e.EndedAt != nil {
		end = *e.EndedAt
	}
	if end.Before(e.StartedAt) {
		return 0
	}
	return end.Sub(e.StartedAt)
}

func TotalDuration(entries []*Entry, now time.Time) time.Duration {
	var total time.Duration
	for _, e := range entries {
		total += e.Duration(now)
	}
	return total
}
