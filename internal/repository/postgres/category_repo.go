package postgres

import (
	"context"
	"fmt"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/category"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type CategoryRepo struct {
	pool *pgxpool.Pool
}

// счётчики задач считаются при каждом чтении
const categorySelect = `SELECT
		c.id,
		c.user_id,
		c.name,
		c.color,
		c.icon,
		c.type,
		c.created_at,
		c.updated_at,
		COUNT(t.id) AS task_count,
		COUNT(t.id) FILTER (WHERE t.completed) AS completed_task_count
	FROM categories c
	LEFT JOIN tasks t ON t.category_id = c.id`

func scanCategory(row pgx.Row) (*category.Category, error) {
	c := &category.Category{}
	err := row.Scan(
		&c.UUID,
		&c.UserID,
		&c.Name,
		&c.Color,
		&c.Icon,
		&c.Type,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.TaskCount,
		&c.CompletedTaskCount,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CategoryRepo) Create(ctx context.Context, c *category.Category) error {
	start := time.Now()
	defer logSlow("category.create", start)

	query := `INSERT INTO categories (id, user_id, name, color, icon, type, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING created_at`

	err := r.pool.QueryRow(ctx, query, c.UUID, c.UserID, c.Name, c.Color, c.Icon, c.Type, c.CreatedAt).Scan(&c.CreatedAt)
	if err != nil {
		logger.Warn("Repository: Не удалось добавить категорию", zap.String("name", c.Name), zap.Error(err))
		return fmt.Errorf("добавление категории: %w", mapError(err))
	}
	return nil
}

func (r *CategoryRepo) Update(ctx context.Context, c *category.Category) error {
	start := time.Now()
	defer logSlow("category.update", start)

	query := `UPDATE categories
				SET name = $1, color = $2, icon = $3, type = $4, updated_at = NOW()
				WHERE id = $5
				RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, c.Name, c.Color, c.Icon, c.Type, c.UUID).Scan(&c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("обновление категории: %w", mapError(err))
	}
	return nil
}

func (r *CategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*category.Category, error) {
	start := time.Now()
	defer logSlow("category.get", start)

	query := categorySelect + ` WHERE c.id = $1 GROUP BY c.id`

	c, err := scanCategory(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("получение категории: %w", mapError(err))
	}
	return c, nil
}

// Delete удаляет категорию; задачи остаются без категории (ON DELETE SET NULL).
func (r *CategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer logSlow("category.delete", start)

	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить категорию", err)
		return fmt.Errorf("удаление категории: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *CategoryRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*category.Category, error) {
	start := time.Now()
	defer logSlow("category.list", start)

	query := categorySelect + ` WHERE c.user_id = $1 GROUP BY c.id ORDER BY c.name, c.id`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		logger.Error("Repository: Не удалось получить категории", err)
		return nil, fmt.Errorf("получение категорий: %w", err)
	}
	defer rows.Close()

	categories := []*category.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("сканирование категории: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return categories, nil
}
