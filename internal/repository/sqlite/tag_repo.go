package sqlite

import (
	"context"
	"fmt"
	"time"

	"taskManager/internal/models/tag"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TagRepo struct {
	db *gorm.DB
}

func (r *TagRepo) Create(ctx context.Context, t *tag.Tag) error {
	rec := fromTag(t)
	rec.UsageCount = 0
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("добавление тега: %w", mapError(err))
	}
	t.UsageCount = 0
	t.CreatedAt = rec.CreatedAt
	return nil
}

func (r *TagRepo) Update(ctx context.Context, t *tag.Tag) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&tagRecord{}).Where("id = ?", t.UUID).Updates(map[string]any{
			"name":       t.Name,
			"color":      t.Color,
			"updated_at": now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return tx.Model(&tagRecord{}).Select("usage_count").Where("id = ?", t.UUID).Row().Scan(&t.UsageCount)
	})
	if err != nil {
		return fmt.Errorf("обновление тега: %w", mapError(err))
	}
	t.UpdatedAt = &now
	return nil
}

func (r *TagRepo) GetByID(ctx context.Context, id uuid.UUID) (*tag.Tag, error) {
	var rec tagRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("получение тега: %w", mapError(err))
	}
	return rec.model(), nil
}

func (r *TagRepo) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&tagRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}
		return tx.Where("tag_id = ?", id).Delete(&taskTagRecord{}).Error
	})
	if err != nil {
		return fmt.Errorf("удаление тега: %w", mapError(err))
	}
	return nil
}

func (r *TagRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*tag.Tag, error) {
	var recs []tagRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("usage_count DESC, name, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("получение тегов: %w", err)
	}
	return tagModels(recs), nil
}

func (r *TagRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*tag.Tag, error) {
	if len(ids) == 0 {
		return []*tag.Tag{}, nil
	}
	var recs []tagRecord
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("получение тегов: %w", err)
	}
	return tagModels(recs), nil
}

// Merge выполняется в одной транзакции; единственное соединение SQLite сериализует её с другими записями.
func (r *TagRepo) Merge(ctx context.Context, sourceID, targetID uuid.UUID) (*tag.Tag, error) {
	var merged tagRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var source tagRecord
		if err := tx.Where("id = ?", sourceID).First(&source).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", targetID).First(&merged).Error; err != nil {
			return err
		}

		err := tx.Exec(`INSERT OR IGNORE INTO task_tags (task_id, tag_id)
				SELECT task_id, ? FROM task_tags WHERE tag_id = ?`, targetID, sourceID).Error
		if err != nil {
			return err
		}
		if err := tx.Where("tag_id = ?", sourceID).Delete(&taskTagRecord{}).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		merged.UsageCount += source.UsageCount
		merged.UpdatedAt = &now
		err = tx.Model(&tagRecord{}).Where("id = ?", targetID).Updates(map[string]any{
			"usage_count": merged.UsageCount,
			"updated_at":  now,
		}).Error
		if err != nil {
			return err
		}

		return tx.Where("id = ?", sourceID).Delete(&tagRecord{}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("объединение тегов: %w", mapError(err))
	}
	return merged.model(), nil
}

func tagModels(recs []tagRecord) []*tag.Tag {
	res := make([]*tag.Tag, 0, len(recs))
	for i := range recs {
		res = append(res, recs[i].model())
	}
	return res
}
