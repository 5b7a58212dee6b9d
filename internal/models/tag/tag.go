package tag

import (
	"time"

	"github.com/google/uuid"
)

const DefaultColor = "#3b82f6"

type Tag struct {
	UUID       uuid.UUID  `json:"uuid" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	Name       string     `json:"name" db:"name"`
	Color      string     `json:"color" db:"color"`
	UsageCount int        `json:"usage_count" db:"usage_count"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}
