package postgres

import (
	"context"
	"fmt"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

const userColumns = `id, name, email, password_hash, role, active, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	var role string
	if err := row.Scan(&u.UUID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = user.Role(role)
	return u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	start := time.Now()
	defer logSlow("user.create", start)

	query := `INSERT INTO users (id, name, email, password_hash, role, active, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING created_at`

	err := r.pool.QueryRow(ctx, query, u.UUID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.Active, u.CreatedAt).Scan(&u.CreatedAt)
	if err != nil {
		logger.Warn("Repository: Не удалось добавить пользователя", zap.Error(err))
		return fmt.Errorf("добавление пользователя: %w", mapError(err))
	}
	return nil
}

func (r *UserRepo) Update(ctx context.Context, u *user.User) error {
	start := time.Now()
	defer logSlow("user.update", start)

	query := `UPDATE users
				SET name = $1, email = $2, password_hash = $3, role = $4, active = $5, updated_at = NOW()
				WHERE id = $6
				RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query, u.Name, u.Email, u.PasswordHash, string(u.Role), u.Active, u.UUID).Scan(&u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("обновление пользователя: %w", mapError(err))
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	start := time.Now()
	defer logSlow("user.get", start)

	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("получение пользователя: %w", mapError(err))
	}
	return u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	start := time.Now()
	defer logSlow("user.get_by_email", start)

	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, fmt.Errorf("получение пользователя: %w", mapError(err))
	}
	return u, nil
}
