package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TaskRepo struct {
	db *gorm.DB
}

// колонки, по которым разрешена сортировка
var sortColumns = map[string]string{
	"due_date":     "tasks.due_date",
	"title":        "tasks.title",
	"priority":     "tasks.priority",
	"created_at":   "tasks.created_at",
	"updated_at":   "tasks.updated_at",
	"completed_at": "tasks.completed_at",
}

func (r *TaskRepo) Create(ctx context.Context, t *task.Task) error {
	rec := fromTask(t)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		return attachTags(tx, t.UUID, task.Unique(t.TagIDs))
	})
	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err)
		return fmt.Errorf("добавление задачи: %w", mapError(err))
	}
	t.CreatedAt = rec.CreatedAt
	return nil
}

func (r *TaskRepo) Update(ctx context.Context, t *task.Task) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&taskRecord{}).
			Where("id = ? AND version = ?", t.UUID, t.Version).
			Updates(map[string]any{
				"title":        t.Title,
				"description":  t.Description,
				"due_date":     utc(t.DueDate),
				"priority":     int(t.Priority),
				"completed":    t.Completed,
				"completed_at": utc(t.CompletedAt),
				"category_id":  t.CategoryID,
				"updated_at":   now,
				"version":      gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&taskRecord{}).Where("id = ?", t.UUID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return repo.ErrNotFound
			}
			logger.Warn("Конфликт версий при обновлении задачи",
				zap.String("task_id", t.UUID.String()),
				zap.Int("expected_version", t.Version))
			return repo.ErrVersionConflict
		}
		return syncTags(tx, t.UUID, t.TagIDs)
	})
	if err != nil {
		return fmt.Errorf("обновление задачи: %w", mapError(err))
	}
	t.Version++
	t.UpdatedAt = &now
	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	db := r.db.WithContext(ctx)

	var rec taskRecord
	if err := db.Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("получение задачи: %w", mapError(err))
	}
	tags, err := loadTags(db, []uuid.UUID{rec.ID})
	if err != nil {
		return nil, fmt.Errorf("получение тегов задачи: %w", err)
	}
	return rec.model(tags[rec.ID]), nil
}

func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&taskRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}

		var tagIDs []uuid.UUID
		if err := tx.Model(&taskTagRecord{}).Where("task_id = ?", id).Pluck("tag_id", &tagIDs).Error; err != nil {
			return err
		}
		if err := detachTags(tx, id, tagIDs); err != nil {
			return err
		}
		return tx.Where("task_id = ?", id).Delete(&timeEntryRecord{}).Error
	})
	if err != nil {
		return fmt.Errorf("удаление задачи: %w", mapError(err))
	}
	return nil
}

func (r *TaskRepo) List(ctx context.Context, userID uuid.UUID, filter task.Filter) ([]*task.Task, error) {
	db := r.db.WithContext(ctx)

	q := applyFilter(db.Model(&taskRecord{}), userID, filter)
	q = applyOrder(q, filter)
	if filter.PerPage > 0 {
		q = q.Limit(filter.PerPage).Offset(filter.Offset())
	}

	var recs []taskRecord
	if err := q.Find(&recs).Error; err != nil {
		logger.Error("Repository: Не удалось получить задачи", err)
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	return withTags(db, recs)
}

func (r *TaskRepo) Count(ctx context.Context, userID uuid.UUID, filter task.Filter) (int, error) {
	var n int64
	q := applyFilter(r.db.WithContext(ctx).Model(&taskRecord{}), userID, filter)
	if err := q.Count(&n).Error; err != nil {
		logger.Error("Repository: Не удалось посчитать задачи", err)
		return 0, fmt.Errorf("подсчёт задач: %w", err)
	}
	return int(n), nil
}

// CountCreatedByMonth раскладывает задачи по месяцам в Go:
// у SQLite нет часовых поясов, а даты хранятся в UTC.
func (r *TaskRepo) CountCreatedByMonth(ctx context.Context, userID uuid.UUID, from, to time.Time) (map[int]int, error) {
	var created []time.Time
	err := r.db.WithContext(ctx).Model(&taskRecord{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from.UTC(), to.UTC()).
		Pluck("created_at", &created).Error
	if err != nil {
		return nil, fmt.Errorf("группировка по месяцам: %w", err)
	}

	res := make(map[int]int, 12)
	for _, at := range created {
		res[int(at.In(from.Location()).Month())]++
	}
	return res, nil
}

func (r *TaskRepo) GetTasksDueBetween(ctx context.Context, from task.DueCursor, to time.Time, limit int) ([]*task.Task, error) {
	db := r.db.WithContext(ctx)

	q := db.Where("completed = ? AND due_date <= ?", false, to.UTC())
	after := from.DueDate.UTC()
	if from.HasID() {
		q = q.Where("(due_date > ? OR (due_date = ? AND id > ?))", after, after, from.ID)
	} else {
		q = q.Where("due_date > ?", after)
	}

	var recs []taskRecord
	err := q.Order("due_date, id").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("получение задач по сроку: %w", err)
	}
	return withTags(db, recs)
}

func applyFilter(q *gorm.DB, userID uuid.UUID, f task.Filter) *gorm.DB {
	q = q.Where("tasks.user_id = ?", userID)

	if f.Search != "" {
		pattern := repo.LikePattern(f.Search)
		q = q.Where(`(tasks.title LIKE ? ESCAPE '\' OR tasks.description LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	switch f.Status {
	case task.StatusCompleted:
		q = q.Where("tasks.completed = ?", true)
	case task.StatusIncomplete:
		q = q.Where("tasks.completed = ?", false)
	}
	if f.CategoryID != nil {
		q = q.Where("tasks.category_id = ?", *f.CategoryID)
	}
	if f.NoCategory {
		q = q.Where("tasks.category_id IS NULL")
	}
	if f.Categorized {
		q = q.Where("tasks.category_id IS NOT NULL")
	}
	if f.Priority.Valid() {
		q = q.Where("tasks.priority = ?", int(f.Priority))
	}
	if f.TagID != nil {
		q = q.Where("EXISTS (SELECT 1 FROM task_tags tt WHERE tt.task_id = tasks.id AND tt.tag_id = ?)", *f.TagID)
	}
	if f.DueFrom != nil {
		q = q.Where("tasks.due_date >= ?", f.DueFrom.UTC())
	}
	if f.DueTo != nil {
		q = q.Where("tasks.due_date < ?", f.DueTo.UTC())
	}
	if f.DueBefore != nil {
		q = q.Where("tasks.due_date < ?", f.DueBefore.UTC())
	}
	return q
}

func applyOrder(q *gorm.DB, f task.Filter) *gorm.DB {
	column, ok := sortColumns[f.SortField]
	if !ok {
		column = sortColumns[task.DefaultSortField]
	}
	direction := "ASC"
	if f.SortDirection == task.SortDesc {
		direction = "DESC"
	}
	return q.Order(fmt.Sprintf("%s IS NULL, %s %s", column, column, direction)).
		Order("tasks.created_at DESC").
		Order("tasks.id")
}

func withTags(db *gorm.DB, recs []taskRecord) ([]*task.Task, error) {
	ids := make([]uuid.UUID, len(recs))
	for i := range recs {
		ids[i] = recs[i].ID
	}
	tags, err := loadTags(db, ids)
	if err != nil {
		return nil, fmt.Errorf("получение тегов задач: %w", err)
	}

	tasks := make([]*task.Task, 0, len(recs))
	for i := range recs {
		tasks = append(tasks, recs[i].model(tags[recs[i].ID]))
	}
	return tasks, nil
}

func loadTags(db *gorm.DB, taskIDs []uuid.UUID) (map[uuid.UUID][]uuid.UUID, error) {
	res := make(map[uuid.UUID][]uuid.UUID, len(taskIDs))
	if len(taskIDs) == 0 {
		return res, nil
	}

	var links []taskTagRecord
	if err := db.Where("task_id IN ?", taskIDs).Order("tag_id").Find(&links).Error; err != nil {
		return nil, err
	}
	for _, l := range links {
		res[l.TaskID] = append(res[l.TaskID], l.TagID)
	}
	return res, nil
}

func attachTags(tx *gorm.DB, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}
	links := make([]taskTagRecord, len(tagIDs))
	for i, id := range tagIDs {
		links[i] = taskTagRecord{TaskID: taskID, TagID: id}
	}
	if err := tx.Create(&links).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: тег уже привязан", repo.ErrDuplicate)
		}
		return err
	}
	return tx.Model(&tagRecord{}).Where("id IN ?", tagIDs).
		Update("usage_count", gorm.Expr("usage_count + 1")).Error
}

func detachTags(tx *gorm.DB, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}
	// счётчик уменьшается только у тегов, которые действительно были привязаны
	var linked []uuid.UUID
	if err := tx.Model(&taskTagRecord{}).Where("task_id = ? AND tag_id IN ?", taskID, tagIDs).Pluck("tag_id", &linked).Error; err != nil {
		return err
	}
	if len(linked) == 0 {
		return nil
	}
	if err := tx.Where("task_id = ? AND tag_id IN ?", taskID, linked).Delete(&taskTagRecord{}).Error; err != nil {
		return err
	}
	return tx.Model(&tagRecord{}).Where("id IN ?", linked).
		Update("usage_count", gorm.Expr("MAX(usage_count - 1, 0)")).Error
}

func syncTags(tx *gorm.DB, taskID uuid.UUID, wanted []uuid.UUID) error {
	var current []uuid.UUID
	if err := tx.Model(&taskTagRecord{}).Where("task_id = ?", taskID).Pluck("tag_id", &current).Error; err != nil {
		return err
	}

	have := make(map[uuid.UUID]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}
	want := make(map[uuid.UUID]struct{}, len(wanted))
	var added, removed []uuid.UUID
	for _, id := range task.Unique(wanted) {
		want[id] = struct{}{}
		if _, ok := have[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range current {
		if _, ok := want[id]; !ok {
			removed = append(removed, id)
		}
	}

	if err := detachTags(tx, taskID, removed); err != nil {
		return err
	}
	return attachTags(tx, taskID, added)
}
