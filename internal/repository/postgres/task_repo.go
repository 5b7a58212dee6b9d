package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

const taskColumns = `
	t.id,
	t.user_id,
	t.category_id,
	t.title,
	t.description,
	t.due_date,
	t.priority,
	t.completed,
	t.completed_at,
	t.created_at,
	t.updated_at,
	t.version,
	ARRAY(SELECT tt.tag_id::text FROM task_tags tt WHERE tt.task_id = t.id ORDER BY tt.tag_id) AS tag_ids`

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	var priority int16
	var tagIDs []string

	err := row.Scan(
		&t.UUID,
		&t.UserID,
		&t.CategoryID,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&priority,
		&t.Completed,
		&t.CompletedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.Version,
		&tagIDs,
	)
	if err != nil {
		return nil, err
	}

	t.Priority = task.Priority(priority)
	if t.TagIDs, err = parseUUIDs(tagIDs); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TaskRepo) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()
	defer logSlow("task.create", start)

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `INSERT INTO tasks
					(id, user_id, category_id, title, description, due_date, priority, completed, completed_at, created_at, version)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
					RETURNING created_at, version`

		err := tx.QueryRow(ctx, query,
			taskToCreate.UUID,
			taskToCreate.UserID,
			taskToCreate.CategoryID,
			taskToCreate.Title,
			taskToCreate.Description,
			taskToCreate.DueDate,
			int16(taskToCreate.Priority),
			taskToCreate.Completed,
			taskToCreate.CompletedAt,
			taskToCreate.CreatedAt,
		).Scan(&taskToCreate.CreatedAt, &taskToCreate.Version)
		if err != nil {
			return mapError(err)
		}

		return attachTags(ctx, tx, taskToCreate.UUID, taskToCreate.TagIDs)
	})
	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}
	return nil
}

// Update сохраняет задачу с проверкой версии и синхронизирует её теги.
func (r *TaskRepo) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()
	defer logSlow("task.update", start)

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		query := `UPDATE tasks
				SET title = $1,
					description = $2,
					due_date = $3,
					priority = $4,
					completed = $5,
					completed_at = $6,
					category_id = $7,
					version = version + 1,
					updated_at = NOW()
				WHERE id = $8 AND version = $9
				RETURNING updated_at, version`

		err := tx.QueryRow(ctx, query,
			taskToUpdate.Title,
			taskToUpdate.Description,
			taskToUpdate.DueDate,
			int16(taskToUpdate.Priority),
			taskToUpdate.Completed,
			taskToUpdate.CompletedAt,
			taskToUpdate.CategoryID,
			taskToUpdate.UUID,
			taskToUpdate.Version,
		).Scan(&taskToUpdate.UpdatedAt, &taskToUpdate.Version)
		if err == pgx.ErrNoRows {
			if exists, existsErr := rowExists(ctx, tx, "tasks", taskToUpdate.UUID); existsErr != nil {
				return existsErr
			} else if !exists {
				return repo.ErrNotFound
			}
			logger.Warn("Конфликт версий при обновлении задачи",
				zap.String("task_id", taskToUpdate.UUID.String()),
				zap.Int("expected_version", taskToUpdate.Version))
			return repo.ErrVersionConflict
		}
		if err != nil {
			return mapError(err)
		}

		return syncTags(ctx, tx, taskToUpdate.UUID, taskToUpdate.TagIDs)
	})
	if err != nil {
		logger.Warn("Repository: Не удалось обновить задачу", zap.String("task_id", taskToUpdate.UUID.String()), zap.Error(err))
		return fmt.Errorf("обновление задачи: %w", err)
	}
	return nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()
	defer logSlow("task.get", start)

	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = $1`

	t, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("получение задачи: %w", mapError(err))
	}
	return t, nil
}

// Delete удаляет задачу и уменьшает счётчики использования её тегов.
func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer logSlow("task.delete", start)

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE tags
				SET usage_count = GREATEST(usage_count - 1, 0)
				WHERE id IN (SELECT tag_id FROM task_tags WHERE task_id = $1)`, id)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repo.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("удаление задачи: %w", mapError(err))
	}
	return nil
}

func (r *TaskRepo) List(ctx context.Context, userID uuid.UUID, filter task.Filter) ([]*task.Task, error) {
	start := time.Now()
	defer logSlow("task.list", start)

	where, args := buildWhere(userID, filter)
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE ` + where + ` ORDER BY ` + orderBy(filter)

	if filter.PerPage > 0 {
		args = append(args, filter.PerPage, filter.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	return r.queryTasks(ctx, query, args...)
}

// Count считает задачи по тем же условиям, что и List, без пагинации.
func (r *TaskRepo) Count(ctx context.Context, userID uuid.UUID, filter task.Filter) (int, error) {
	start := time.Now()
	defer logSlow("task.count", start)

	where, args := buildWhere(userID, filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks t WHERE `+where, args...).Scan(&total); err != nil {
		logger.Error("Repository: Не удалось посчитать задачи", err)
		return 0, fmt.Errorf("подсчёт задач: %w", err)
	}
	return total, nil
}

// CountCreatedByMonth группирует задачи, созданные в [from, to), по месяцу в часовом поясе from.
func (r *TaskRepo) CountCreatedByMonth(ctx context.Context, userID uuid.UUID, from, to time.Time) (map[int]int, error) {
	start := time.Now()
	defer logSlow("task.count_by_month", start)

	query := `SELECT EXTRACT(MONTH FROM created_at AT TIME ZONE $2)::int AS month, COUNT(*)
				FROM tasks
				WHERE user_id = $1 AND created_at >= $3 AND created_at < $4
				GROUP BY month`

	rows, err := r.pool.Query(ctx, query, userID, from.Location().String(), from, to)
	if err != nil {
		logger.Error("Repository: Не удалось сгруппировать задачи по месяцам", err)
		return nil, fmt.Errorf("группировка по месяцам: %w", err)
	}
	defer rows.Close()

	res := make(map[int]int, 12)
	for rows.Next() {
		var month, n int
		if err := rows.Scan(&month, &n); err != nil {
			return nil, fmt.Errorf("сканирование строки: %w", err)
		}
		res[month] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return res, nil
}

// GetTasksDueBetween возвращает невыполненные задачи всех пользователей со сроком после from и не позже to,
// упорядоченные по (due_date, id), чтобы полную пачку можно было продолжить с последней задачи.
func (r *TaskRepo) GetTasksDueBetween(ctx context.Context, from task.DueCursor, to time.Time, limit int) ([]*task.Task, error) {
	start := time.Now()
	defer logSlow("task.due_between", start)

	lower := `t.due_date > $1`
	args := []any{from.DueDate, to, limit}
	if from.HasID() {
		lower = `(t.due_date, t.id) > ($1, $4)`
		args = append(args, from.ID)
	}

	query := `SELECT ` + taskColumns + `
				FROM tasks t
				WHERE t.completed = FALSE AND ` + lower + ` AND t.due_date <= $2
				ORDER BY t.due_date, t.id
				LIMIT $3`

	return r.queryTasks(ctx, query, args...)
}

func (r *TaskRepo) queryTasks(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err)
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
			return nil, fmt.Errorf("сканирование задачи: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tasks, nil
}

// buildWhere собирает условия фильтра; первым всегда идёт владелец.
func buildWhere(userID uuid.UUID, f task.Filter) (string, []any) {
	conds := []string{"t.user_id = $1"}
	args := []any{userID}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}

	if f.Search != "" {
		add("(t.title ILIKE ? OR t.description ILIKE ?)", repo.LikePattern(f.Search))
	}
	switch f.Status {
	case task.StatusCompleted:
		conds = append(conds, "t.completed = TRUE")
	case task.StatusIncomplete:
		conds = append(conds, "t.completed = FALSE")
	}
	if f.CategoryID != nil {
		add("t.category_id = ?", *f.CategoryID)
	}
	if f.NoCategory {
		conds = append(conds, "t.category_id IS NULL")
	}
	if f.Categorized {
		conds = append(conds, "t.category_id IS NOT NULL")
	}
	if f.Priority.Valid() {
		add("t.priority = ?", int16(f.Priority))
	}
	if f.TagID != nil {
		add("EXISTS (SELECT 1 FROM task_tags ft WHERE ft.task_id = t.id AND ft.tag_id = ?)", *f.TagID)
	}
	if f.DueFrom != nil {
		add("t.due_date >= ?", *f.DueFrom)
	}
	if f.DueTo != nil {
		add("t.due_date < ?", *f.DueTo)
	}
	if f.DueBefore != nil {
		add("t.due_date < ?", *f.DueBefore)
	}

	return strings.Join(conds, " AND "), args
}

// orderBy строится только из белого списка полей; NULL всегда в конце.
func orderBy(f task.Filter) string {
	field := f.SortField
	if !task.SortableField(field) {
		field = task.DefaultSortField
	}
	direction := "ASC"
	if f.SortDirection == task.SortDesc {
		direction = "DESC"
	}
	return fmt.Sprintf("t.%s %s NULLS LAST, t.created_at DESC, t.id", pq.QuoteIdentifier(field), direction)
}

// attachTags увеличивает счётчик только у тегов, связь с которыми действительно добавилась.
func attachTags(ctx context.Context, q querier, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}

	_, err := q.Exec(ctx, `WITH inserted AS (
					INSERT INTO task_tags (task_id, tag_id)
					SELECT $1, unnest($2::uuid[])
					ON CONFLICT DO NOTHING
					RETURNING tag_id
				)
				UPDATE tags SET usage_count = usage_count + 1
				WHERE id IN (SELECT tag_id FROM inserted)`, taskID, uuidStrings(tagIDs))
	return mapError(err)
}

// detachTags уменьшает счётчик только у тегов, связь с которыми действительно была удалена.
func detachTags(ctx context.Context, q querier, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		return nil
	}

	_, err := q.Exec(ctx, `WITH deleted AS (
					DELETE FROM task_tags
					WHERE task_id = $1 AND tag_id = ANY($2::uuid[])
					RETURNING tag_id
				)
				UPDATE tags SET usage_count = GREATEST(usage_count - 1, 0)
				WHERE id IN (SELECT tag_id FROM deleted)`, taskID, uuidStrings(tagIDs))
	return err
}

// syncTags приводит связи задачи к wanted, меняя счётчики только у изменившихся тегов.
func syncTags(ctx context.Context, q querier, taskID uuid.UUID, wanted []uuid.UUID) error {
	rows, err := q.Query(ctx, `SELECT tag_id FROM task_tags WHERE task_id = $1`, taskID)
	if err != nil {
		return err
	}
	current, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return err
	}

	added, removed := diffIDs(current, wanted)
	if err := detachTags(ctx, q, taskID, removed); err != nil {
		return err
	}
	return attachTags(ctx, q, taskID, added)
}

func diffIDs(current, wanted []uuid.UUID) (added, removed []uuid.UUID) {
	have := make(map[uuid.UUID]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}
	want := make(map[uuid.UUID]struct{}, len(wanted))
	for _, id := range wanted {
		if _, dup := want[id]; dup {
			continue
		}
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
	return added, removed
}

func rowExists(ctx context.Context, q querier, table string, id uuid.UUID) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, pq.QuoteIdentifier(table))
	if err := q.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
