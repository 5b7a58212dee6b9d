package sqlite

import (
	"context"
	"fmt"
	"time"

	"taskManager/internal/models/user"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepo struct {
	db *gorm.DB
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	rec := fromUser(u)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("добавление пользователя: %w", mapError(err))
	}
	u.CreatedAt = rec.CreatedAt
	return nil
}

func (r *UserRepo) Update(ctx context.Context, u *user.User) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&userRecord{}).Where("id = ?", u.UUID).Updates(map[string]any{
		"name":          u.Name,
		"email":         u.Email,
		"password_hash": u.PasswordHash,
		"role":          string(u.Role),
		"active":        u.Active,
		"updated_at":    now,
	})
	if res.Error != nil {
		return fmt.Errorf("обновление пользователя: %w", mapError(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("обновление пользователя: %w", repo.ErrNotFound)
	}
	u.UpdatedAt = &now
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("получение пользователя: %w", mapError(err))
	}
	return rec.model(), nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).Where("lower(email) = lower(?)", email).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("получение пользователя: %w", mapError(err))
	}
	return rec.model(), nil
}
