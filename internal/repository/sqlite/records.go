package sqlite

import (
	"time"

	"taskManager/internal/models/category"
	"taskManager/internal/models/tag"
	"taskManager/internal/models/task"
	"taskManager/internal/models/timeentry"
	"taskManager/internal/models/user"

	"github.com/google/uuid"
)

// Записи хранят время в UTC: строковое сравнение в SQLite тогда совпадает с хронологическим.

type userRecord struct {
	ID           uuid.UUID `gorm:"type:text;primaryKey"`
	Name         string    `gorm:"size:100;not null"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:users_email_key"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"size:20;not null"`
	Active       bool      `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    *time.Time `gorm:"autoUpdateTime:false"`
}

func (userRecord) TableName() string { return "users" }

type categoryRecord struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey"`
	UserID    uuid.UUID `gorm:"type:text;not null;uniqueIndex:categories_user_name_key,priority:1"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:categories_user_name_key,priority:2"`
	Color     string    `gorm:"size:7;not null"`
	Icon      string    `gorm:"size:50;not null"`
	Type      string    `gorm:"size:50;not null"`
	CreatedAt time.Time
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false"`
}

func (categoryRecord) TableName() string { return "categories" }

type taskRecord struct {
	ID          uuid.UUID  `gorm:"type:text;primaryKey"`
	UserID      uuid.UUID  `gorm:"type:text;not null;index:idx_tasks_user_due_date,priority:1"`
	CategoryID  *uuid.UUID `gorm:"type:text;index"`
	Title       string     `gorm:"size:255;not null"`
	Description string     `gorm:"not null"`
	DueDate     *time.Time `gorm:"index:idx_tasks_user_due_date,priority:2"`
	Priority    int        `gorm:"not null"`
	Completed   bool       `gorm:"not null"`
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   *time.Time `gorm:"autoUpdateTime:false"`
	Version     int        `gorm:"not null"`
}

func (taskRecord) TableName() string { return "tasks" }

type tagRecord struct {
	ID         uuid.UUID `gorm:"type:text;primaryKey"`
	UserID     uuid.UUID `gorm:"type:text;not null;uniqueIndex:tags_user_name_key,priority:1"`
	Name       string    `gorm:"size:50;not null;uniqueIndex:tags_user_name_key,priority:2"`
	Color      string    `gorm:"size:7;not null"`
	UsageCount int       `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  *time.Time `gorm:"autoUpdateTime:false"`
}

func (tagRecord) TableName() string { return "tags" }

type taskTagRecord struct {
	TaskID uuid.UUID `gorm:"type:text;primaryKey"`
	TagID  uuid.UUID `gorm:"type:text;primaryKey;index"`
}

func (taskTagRecord) TableName() string { return "task_tags" }

type timeEntryRecord struct {
	ID          uuid.UUID  `gorm:"type:text;primaryKey"`
	TaskID      uuid.UUID  `gorm:"type:text;not null;index"`
	UserID      uuid.UUID  `gorm:"type:text;not null;index:idx_time_entries_active_user,unique,where:ended_at IS NULL"`
	StartedAt   time.Time  `gorm:"not null"`
	EndedAt     *time.Time
	Description string `gorm:"not null"`
	CreatedAt   time.Time
}

func (timeEntryRecord) TableName() string { return "time_entries" }

func fromUser(u *user.User) *userRecord {
	return &userRecord{
		ID:           u.UUID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Active:       u.Active,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    utc(u.UpdatedAt),
	}
}

func (r *userRecord) model() *user.User {
	return &user.User{
		UUID:         r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Role:         user.Role(r.Role),
		Active:       r.Active,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func fromCategory(c *category.Category) *categoryRecord {
	return &categoryRecord{
		ID:        c.UUID,
		UserID:    c.UserID,
		Name:      c.Name,
		Color:     c.Color,
		Icon:      c.Icon,
		Type:      c.Type,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: utc(c.UpdatedAt),
	}
}

func fromTask(t *task.Task) *taskRecord {
	return &taskRecord{
		ID:          t.UUID,
		UserID:      t.UserID,
		CategoryID:  t.CategoryID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     utc(t.DueDate),
		Priority:    int(t.Priority),
		Completed:   t.Completed,
		CompletedAt: utc(t.CompletedAt),
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   utc(t.UpdatedAt),
		Version:     t.Version,
	}
}

func (r *taskRecord) model(tagIDs []uuid.UUID) *task.Task {
	if tagIDs == nil {
		tagIDs = []uuid.UUID{}
	}
	return &task.Task{
		UUID:        r.ID,
		UserID:      r.UserID,
		CategoryID:  r.CategoryID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		Priority:    task.Priority(r.Priority),
		Completed:   r.Completed,
		CompletedAt: r.CompletedAt,
		TagIDs:      tagIDs,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Version:     r.Version,
	}
}

func fromTag(t *tag.Tag) *tagRecord {
	return &tagRecord{
		ID:         t.UUID,
		UserID:     t.UserID,
		Name:       t.Name,
		Color:      t.Color,
		UsageCount: t.UsageCount,
		CreatedAt:  t.CreatedAt.UTC(),
		UpdatedAt:  utc(t.UpdatedAt),
	}
}

func (r *tagRecord) model() *tag.Tag {
	return &tag.Tag{
		UUID:       r.ID,
		UserID:     r.UserID,
		Name:       r.Name,
		Color:      r.Color,
		UsageCount: r.UsageCount,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func fromEntry(e *timeentry.Entry) *timeEntryRecord {
	return &timeEntryRecord{
		ID:          e.UUID,
		TaskID:      e.TaskID,
		UserID:      e.UserID,
		StartedAt:   e.StartedAt.UTC(),
		EndedAt:     utc(e.EndedAt),
		Description: e.Description,
		CreatedAt:   e.CreatedAt.UTC(),
	}
}

func (r *timeEntryRecord) model() *timeentry.Entry {
	return &timeentry.Entry{
		UUID:        r.ID,
		TaskID:      r.TaskID,
		UserID:      r.UserID,
		StartedAt:   r.StartedAt,
		EndedAt:     r.EndedAt,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	}
}
