package category

import (
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"
)

const DefaultColor = "#6b7280"

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type Category struct {
	UUID      uuid.UUID  `json:"uuid" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	Name      string     `json:"name" db:"name"`
	Color     string     `json:"color" db:"color"`
	Icon      string     `json:"icon" db:"icon"`
	Type      string     `json:"type" db:"type"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`

	// считаются при чтении, не хранятся
	TaskCount          int `json:"task_count" db:"-"`
	CompletedTaskCount int `json:"completed_task_count" db:"-"`
}

func (c *Category) CompletionPercentage() float64 {
	return Percentage(c.CompletedTaskCount, c.TaskCount)
}

// Percentage: доля part от total в процентах, округлённая до сотых; 0 при пустом total.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*10000) / 100
}

func ValidColor(color string) bool {
	return colorPattern.MatchString(color)
}
