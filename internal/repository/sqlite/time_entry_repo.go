package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskManager/internal/models/timeentry"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TimeEntryRepo struct {
	db *gorm.DB
}

// Start проверяет и вставляет запись в одной транзакции.
// Частичный уникальный индекс idx_time_entries_active_user страхует инвариант.
func (r *TimeEntryRepo) Start(ctx context.Context, e *timeentry.Entry) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&timeEntryRecord{}).Where("user_id = ? AND ended_at IS NULL", e.UserID).Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return repo.ErrActiveEntryExists
		}
		return insertEntry(tx, e)
	})
	if err != nil {
		return fmt.Errorf("запуск таймера: %w", err)
	}
	return nil
}

func (r *TimeEntryRepo) Create(ctx context.Context, e *timeentry.Entry) error {
	if err := insertEntry(r.db.WithContext(ctx), e); err != nil {
		return fmt.Errorf("добавление записи времени: %w", err)
	}
	return nil
}

func insertEntry(db *gorm.DB, e *timeentry.Entry) error {
	rec := fromEntry(e)
	if err := db.Create(rec).Error; err != nil {
		// единственный уникальный индекс помимо первичного ключа относится к активной записи
		if errors.Is(err, gorm.ErrDuplicatedKey) && rec.EndedAt == nil {
			return repo.ErrActiveEntryExists
		}
		return mapError(err)
	}
	e.CreatedAt = rec.CreatedAt
	return nil
}

func (r *TimeEntryRepo) Stop(ctx context.Context, id uuid.UUID, endedAt time.Time) (*timeentry.Entry, error) {
	var rec timeEntryRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&rec).Error; err != nil {
			return err
		}

		end := endedAt.UTC()
		if end.Before(rec.StartedAt) {
			end = rec.StartedAt
		}
		res := tx.Model(&timeEntryRecord{}).Where("id = ? AND ended_at IS NULL", id).Update("ended_at", end)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrEntryStopped
		}
		rec.EndedAt = &end
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("остановка таймера: %w", mapError(err))
	}
	return rec.model(), nil
}

func (r *TimeEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*timeentry.Entry, error) {
	var rec timeEntryRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("получение записи времени: %w", mapError(err))
	}
	return rec.model(), nil
}

func (r *TimeEntryRepo) GetActive(ctx context.Context, userID uuid.UUID) (*timeentry.Entry, error) {
	var rec timeEntryRecord
	if err := r.db.WithContext(ctx).Where("user_id = ? AND ended_at IS NULL", userID).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("получение активного таймера: %w", mapError(err))
	}
	return rec.model(), nil
}

func (r *TimeEntryRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*timeentry.Entry, error) {
	var recs []timeEntryRecord
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("started_at DESC, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("получение записей времени: %w", err)
	}
	entries := make([]*timeentry.Entry, 0, len(recs))
	for i := range recs {
		entries = append(entries, recs[i].model())
	}
	return entries, nil
}

func (r *TimeEntryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&timeEntryRecord{})
	if res.Error != nil {
		return fmt.Errorf("удаление записи времени: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// SumClosed складывает длительности в Go: у SQLite нет интервалов.
func (r *TimeEntryRepo) SumClosed(ctx context.Context, userID uuid.UUID) (time.Duration, error) {
	var recs []timeEntryRecord
	err := r.db.WithContext(ctx).
		Select("started_at", "ended_at").
		Where("user_id = ? AND ended_at IS NOT NULL", userID).
		Find(&recs).Error
	if err != nil {
		return 0, fmt.Errorf("подсчёт времени: %w", err)
	}

	var total time.Duration
	for i := range recs {
		total += recs[i].EndedAt.Sub(recs[i].StartedAt)
	}
	return total, nil
}
