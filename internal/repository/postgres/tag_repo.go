package postgres

import (
	"context"
	"fmt"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/tag"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type TagRepo struct {
	pool *pgxpool.Pool
}

const tagColumns = `id, user_id, name, color, usage_count, created_at, updated_at`

func scanTag(row pgx.Row) (*tag.Tag, error) {
	t := &tag.Tag{}
	if err := row.Scan(&t.UUID, &t.UserID, &t.Name, &t.Color, &t.UsageCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TagRepo) Create(ctx context.Context, t *tag.Tag) error {
	start := time.Now()
	defer logSlow("tag.create", start)

	query := `INSERT INTO tags (id, user_id, name, color, usage_count, created_at)
				VALUES ($1, $2, $3, $4, 0, $5)
				RETURNING usage_count, created_at`

	err := r.pool.QueryRow(ctx, query, t.UUID, t.UserID, t.Name, t.Color, t.CreatedAt).Scan(&t.UsageCount, &t.CreatedAt)
	if err != nil {
		logger.Warn("Repository: Не удалось добавить тег", zap.String("name", t.Name), zap.Error(err))
		return fmt.Errorf("добавление тега: %w", mapError(err))
	}
	return nil
}

func (r *TagRepo) Update(ctx context.Context, t *tag.Tag) error {
	start := time.Now()
	defer logSlow("tag.update", start)

	query := `UPDATE tags SET name = $1, color = $2, updated_at = NOW()
				WHERE id = $3
				RETURNING usage_count, updated_at`

	if err := r.pool.QueryRow(ctx, query, t.Name, t.Color, t.UUID).Scan(&t.UsageCount, &t.UpdatedAt); err != nil {
		return fmt.Errorf("обновление тега: %w", mapError(err))
	}
	return nil
}

func (r *TagRepo) GetByID(ctx context.Context, id uuid.UUID) (*tag.Tag, error) {
	start := time.Now()
	defer logSlow("tag.get", start)

	t, err := scanTag(r.pool.QueryRow(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("получение тега: %w", mapError(err))
	}
	return t, nil
}

func (r *TagRepo) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer logSlow("tag.delete", start)

	res, err := r.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить тег", err)
		return fmt.Errorf("удаление тега: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *TagRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*tag.Tag, error) {
	return r.queryTags(ctx, `SELECT `+tagColumns+` FROM tags WHERE user_id = $1 ORDER BY usage_count DESC, name, id`, userID)
}

func (r *TagRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*tag.Tag, error) {
	if len(ids) == 0 {
		return []*tag.Tag{}, nil
	}
	return r.queryTags(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ANY($1::uuid[]) ORDER BY name, id`, uuidStrings(ids))
}

// Merge переносит связи source на target и удаляет source в одной транзакции.
// Задачи, где были оба тега, остаются с одной связью; usage_count складывается.
func (r *TagRepo) Merge(ctx context.Context, sourceID, targetID uuid.UUID) (*tag.Tag, error) {
	start := time.Now()
	defer logSlow("tag.merge", start)

	var merged *tag.Tag
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// блокировка в порядке id, чтобы встречные слияния не зацикливались
		rows, err := tx.Query(ctx, `SELECT id, usage_count FROM tags
					WHERE id = ANY($1::uuid[])
					ORDER BY id
					FOR UPDATE`, uuidStrings([]uuid.UUID{sourceID, targetID}))
		if err != nil {
			return err
		}
		usage := map[uuid.UUID]int{}
		for rows.Next() {
			var id uuid.UUID
			var n int
			if err := rows.Scan(&id, &n); err != nil {
				rows.Close()
				return err
			}
			usage[id] = n
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if _, ok := usage[sourceID]; !ok {
			return repo.ErrNotFound
		}
		if _, ok := usage[targetID]; !ok {
			return repo.ErrNotFound
		}

		_, err = tx.Exec(ctx, `INSERT INTO task_tags (task_id, tag_id)
					SELECT task_id, $2 FROM task_tags WHERE tag_id = $1
					ON CONFLICT DO NOTHING`, sourceID, targetID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM task_tags WHERE tag_id = $1`, sourceID); err != nil {
			return err
		}

		merged, err = scanTag(tx.QueryRow(ctx, `UPDATE tags
					SET usage_count = usage_count + $2, updated_at = NOW()
					WHERE id = $1
					RETURNING `+tagColumns, targetID, usage[sourceID]))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `DELETE FROM tags WHERE id = $1`, sourceID)
		return err
	})
	if err != nil {
		logger.Warn("Repository: Не удалось объединить теги",
			zap.String("source_id", sourceID.String()),
			zap.String("target_id", targetID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("объединение тегов: %w", mapError(err))
	}
	return merged, nil
}

func (r *TagRepo) queryTags(ctx context.Context, query string, args ...any) ([]*tag.Tag, error) {
	start := time.Now()
	defer logSlow("tag.list", start)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить теги", err)
		return nil, fmt.Errorf("получение тегов: %w", err)
	}
	defer rows.Close()

	tags := []*tag.Tag{}
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("сканирование тега: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return tags, nil
}
