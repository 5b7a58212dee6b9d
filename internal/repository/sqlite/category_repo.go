package sqlite

import (
	"context"
	"fmt"
	"time"

	"taskManager/internal/models/category"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryRepo struct {
	db *gorm.DB
}

type categoryCounts struct {
	CategoryID uuid.UUID
	Total      int
	Completed  int
}

func (r *CategoryRepo) Create(ctx context.Context, c *category.Category) error {
	rec := fromCategory(c)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("добавление категории: %w", mapError(err))
	}
	c.CreatedAt = rec.CreatedAt
	return nil
}

func (r *CategoryRepo) Update(ctx context.Context, c *category.Category) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&categoryRecord{}).Where("id = ?", c.UUID).Updates(map[string]any{
		"name":       c.Name,
		"color":      c.Color,
		"icon":       c.Icon,
		"type":       c.Type,
		"updated_at": now,
	})
	if res.Error != nil {
		return fmt.Errorf("обновление категории: %w", mapError(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("обновление категории: %w", repo.ErrNotFound)
	}
	c.UpdatedAt = &now
	return nil
}

func (r *CategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*category.Category, error) {
	db := r.db.WithContext(ctx)

	var rec categoryRecord
	if err := db.Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("получение категории: %w", mapError(err))
	}
	res, err := withCounts(db, []categoryRecord{rec})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}

// Delete отвязывает задачи от категории и удаляет её.
func (r *CategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&categoryRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return tx.Model(&taskRecord{}).Where("category_id = ?", id).Update("category_id", nil).Error
	})
	if err != nil {
		return fmt.Errorf("удаление категории: %w", mapError(err))
	}
	return nil
}

func (r *CategoryRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*category.Category, error) {
	db := r.db.WithContext(ctx)

	var recs []categoryRecord
	if err := db.Where("user_id = ?", userID).Order("name, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("получение категорий: %w", err)
	}
	return withCounts(db, recs)
}

func withCounts(db *gorm.DB, recs []categoryRecord) ([]*category.Category, error) {
	res := make([]*category.Category, 0, len(recs))
	if len(recs) == 0 {
		return res, nil
	}

	ids := make([]uuid.UUID, len(recs))
	for i := range recs {
		ids[i] = recs[i].ID
	}

	var counts []categoryCounts
	err := db.Model(&taskRecord{}).
		Select("category_id, COUNT(*) AS total, COALESCE(SUM(CASE WHEN completed THEN 1 ELSE 0 END), 0) AS completed").
		Where("category_id IN ?", ids).
		Group("category_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("подсчёт задач категорий: %w", err)
	}
	byID := make(map[uuid.UUID]categoryCounts, len(counts))
	for _, c := range counts {
		byID[c.CategoryID] = c
	}

	for i := range recs {
		rec := recs[i]
		n := byID[rec.ID]
		res = append(res, &category.Category{
			UUID:               rec.ID,
			UserID:             rec.UserID,
			Name:               rec.Name,
			Color:              rec.Color,
			Icon:               rec.Icon,
			Type:               rec.Type,
			CreatedAt:          rec.CreatedAt,
			UpdatedAt:          rec.UpdatedAt,
			TaskCount:          n.Total,
			CompletedTaskCount: n.Completed,
		})
	}
	return res, nil
}
