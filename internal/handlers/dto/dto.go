package dto

import (
	"encoding/json"
	"time"

	"taskManager/internal/models/category"
	"taskManager/internal/models/tag"
	"taskManager/internal/models/task"
	"taskManager/internal/models/timeentry"
	"taskManager/internal/models/user"
	"taskManager/internal/service"

	"github.com/google/uuid"
)

// Nullable различает отсутствующее поле и явный null.
type Nullable[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Null = true
		return nil
	}
	return json.Unmarshal(data, &n.Value)
}

type CreateTaskRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	DueDate     *string     `json:"due_date,omitempty"`
	Priority    *string     `json:"priority,omitempty"`
	CategoryID  *uuid.UUID  `json:"category_id,omitempty"`
	TagIDs      []uuid.UUID `json:"tag_ids,omitempty"`
	Completed   bool        `json:"completed"`
}

type UpdateTaskRequest struct {
	Title       *string             `json:"title,omitempty"`
	Description *string             `json:"description,omitempty"`
	DueDate     Nullable[string]    `json:"due_date"`
	Priority    *string             `json:"priority,omitempty"`
	CategoryID  Nullable[uuid.UUID] `json:"category_id"`
	TagIDs      *[]uuid.UUID        `json:"tag_ids,omitempty"`
	Completed   *bool               `json:"completed,omitempty"`
}

type TaskResponse struct {
	UUID        uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	CategoryID  *uuid.UUID  `json:"category_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	DueDate     *time.Time  `json:"due_date"`
	Priority    string      `json:"priority"`
	Completed   bool        `json:"completed"`
	CompletedAt *time.Time  `json:"completed_at"`
	TagIDs      []uuid.UUID `json:"tag_ids"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   *time.Time  `json:"updated_at,omitempty"`
	Version     int         `json:"version"`
	IsOverdue   bool        `json:"is_overdue"`
}

func FromTask(t *task.Task, now time.Time) TaskResponse {
	tagIDs := t.TagIDs
	if tagIDs == nil {
		tagIDs = []uuid.UUID{}
	}
	return TaskResponse{
		UUID:        t.UUID,
		UserID:      t.UserID,
		CategoryID:  t.CategoryID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    t.Priority.String(),
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
		TagIDs:      tagIDs,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Version:     t.Version,
		IsOverdue:   t.IsOverdue(now),
	}
}

func FromTaskList(tasks []*task.Task, now time.Time) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t, now)
	}
	return result
}

// Page: формат любого постраничного списка.
type Page[T any] struct {
	Items   []T `json:"items"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}

func FromTaskPage(p *service.TaskPage, now time.Time) Page[TaskResponse] {
	return Page[TaskResponse]{
		Items:   FromTaskList(p.Items, now),
		Page:    p.Page,
		PerPage: p.PerPage,
		Total:   p.Total,
	}
}

type CategoryRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
	Type  *string `json:"type,omitempty"`
}

type CategoryResponse struct {
	UUID                 uuid.UUID  `json:"id"`
	Name                 string     `json:"name"`
	Color                string     `json:"color"`
	Icon                 string     `json:"icon"`
	Type                 string     `json:"type"`
	TaskCount            int        `json:"task_count"`
	CompletedTaskCount   int        `json:"completed_task_count"`
	CompletionPercentage float64    `json:"completion_percentage"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
}

func FromCategory(c *category.Category) CategoryResponse {
	return CategoryResponse{
		UUID:                 c.UUID,
		Name:                 c.Name,
		Color:                c.Color,
		Icon:                 c.Icon,
		Type:                 c.Type,
		TaskCount:            c.TaskCount,
		CompletedTaskCount:   c.CompletedTaskCount,
		CompletionPercentage: c.CompletionPercentage(),
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

type TagRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

type MergeTagsRequest struct {
	SourceID uuid.UUID `json:"source_id"`
	TargetID uuid.UUID `json:"target_id"`
}

type TagResponse struct {
	UUID       uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Color      string     `json:"color"`
	UsageCount int        `json:"usage_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

func FromTag(t *tag.Tag) TagResponse {
	return TagResponse{
		UUID:       t.UUID,
		Name:       t.Name,
		Color:      t.Color,
		UsageCount: t.UsageCount,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

type StartTimerRequest struct {
	Description string `json:"description"`
}

type LogTimeRequest struct {
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	Description string    `json:"description"`
}

type TimeEntryResponse struct {
	UUID            uuid.UUID  `json:"id"`
	TaskID          uuid.UUID  `json:"task_id"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	Description     string     `json:"description"`
	DurationSeconds int64      `json:"duration_seconds"`
	Active          bool       `json:"active"`
}

func FromTimeEntry(e *timeentry.Entry, now time.Time) TimeEntryResponse {
	return TimeEntryResponse{
		UUID:            e.UUID,
		TaskID:          e.TaskID,
		StartedAt:       e.StartedAt,
		EndedAt:         e.EndedAt,
		Description:     e.Description,
		DurationSeconds: int64(e.Duration(now).Seconds()),
		Active:          e.Active(),
	}
}

type TaskTimeResponse struct {
	Entries      []TimeEntryResponse `json:"entries"`
	TotalSeconds int64               `json:"total_seconds"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Name            *string `json:"name,omitempty"`
	Password        *string `json:"password,omitempty"`
	CurrentPassword string  `json:"current_password"`
}

type UserResponse struct {
	UUID      uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func FromUser(u *user.User) UserResponse {
	return UserResponse{
		UUID:      u.UUID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

type UserStatisticsResponse struct {
	Tasks                *task.Statistics   `json:"tasks"`
	Categories           int                `json:"categories"`
	Tags                 int                `json:"tags"`
	TrackedSeconds       int64              `json:"tracked_seconds"`
	CompletionPercentage float64            `json:"completion_percentage"`
	ActiveTimeEntry      *TimeEntryResponse `json:"active_time_entry"`
}

func FromUserStatistics(s *service.UserStatistics, now time.Time) UserStatisticsResponse {
	res := UserStatisticsResponse{
		Tasks:                s.Tasks,
		Categories:           s.Categories,
		Tags:                 s.Tags,
		TrackedSeconds:       s.TrackedSeconds,
		CompletionPercentage: s.CompletionPercentage,
	}
	if s.ActiveEntry != nil {
		entry := FromTimeEntry(s.ActiveEntry, now)
		res.ActiveTimeEntry = &entry
	}
	return res
}
