package postgres

import (
	"context"
	"fmt"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/timeentry"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type TimeEntryRepo struct {
	pool *pgxpool.Pool
}

const entryColumns = `id, task_id, user_id, started_at, ended_at, description, created_at`

func scanEntry(row pgx.Row) (*timeentry.Entry, error) {
	e := &timeentry.Entry{}
	if err := row.Scan(&e.UUID, &e.TaskID, &e.UserID, &e.StartedAt, &e.EndedAt, &e.Description, &e.CreatedAt); err != nil {
		return nil, err
	}
	return e, nil
}

// Start открывает запись, если у пользователя нет активной.
// Проверка и вставка сериализуются advisory-блокировкой по user_id;
// частичный уникальный индекс страхует от гонки с Create.
func (r *TimeEntryRepo) Start(ctx context.Context, e *timeentry.Entry) error {
	start := time.Now()
	defer logSlow("time_entry.start", start)

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, e.UserID.String()); err != nil {
			return err
		}

		var active bool
		err := tx.QueryRow(ctx, `SELECT EXISTS (
					SELECT 1 FROM time_entries WHERE user_id = $1 AND ended_at IS NULL)`, e.UserID).Scan(&active)
		if err != nil {
			return err
		}
		if active {
			return repo.ErrActiveEntryExists
		}

		return insertEntry(ctx, tx, e)
	})
	if err != nil {
		logger.Warn("Repository: Не удалось запустить таймер", zap.String("user_id", e.UserID.String()), zap.Error(err))
		return fmt.Errorf("запуск таймера: %w", mapError(err))
	}
	return nil
}

// Create сохраняет запись как есть; используется для ручного учёта времени.
func (r *TimeEntryRepo) Create(ctx context.Context, e *timeentry.Entry) error {
	start := time.Now()
	defer logSlow("time_entry.create", start)

	if err := insertEntry(ctx, r.pool, e); err != nil {
		return fmt.Errorf("добавление записи времени: %w", mapError(err))
	}
	return nil
}

func insertEntry(ctx context.Context, q querier, e *timeentry.Entry) error {
	query := `INSERT INTO time_entries (id, task_id, user_id, started_at, ended_at, description, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING created_at`

	return q.QueryRow(ctx, query, e.UUID, e.TaskID, e.UserID, e.StartedAt, e.EndedAt, e.Description, e.CreatedAt).Scan(&e.CreatedAt)
}

// Stop закрывает активную запись. Повторная остановка даёт ErrEntryStopped.
func (r *TimeEntryRepo) Stop(ctx context.Context, id uuid.UUID, endedAt time.Time) (*timeentry.Entry, error) {
	start := time.Now()
	defer logSlow("time_entry.stop", start)

	query := `UPDATE time_entries
				SET ended_at = GREATEST($2, started_at)
				WHERE id = $1 AND ended_at IS NULL
				RETURNING ` + entryColumns

	e, err := scanEntry(r.pool.QueryRow(ctx, query, id, endedAt))
	if err == pgx.ErrNoRows {
		exists, existsErr := rowExists(ctx, r.pool, "time_entries", id)
		if existsErr != nil {
			return nil, fmt.Errorf("остановка таймера: %w", existsErr)
		}
		if exists {
			return nil, repo.ErrEntryStopped
		}
		return nil, repo.ErrNotFound
	}
	if err != nil {
		logger.Error("Repository: Не удалось остановить таймер", err)
		return nil, fmt.Errorf("остановка таймера: %w", err)
	}
	return e, nil
}

func (r *TimeEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*timeentry.Entry, error) {
	start := time.Now()
	defer logSlow("time_entry.get", start)

	e, err := scanEntry(r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("получение записи времени: %w", mapError(err))
	}
	return e, nil
}

func (r *TimeEntryRepo) GetActive(ctx context.Context, userID uuid.UUID) (*timeentry.Entry, error) {
	start := time.Now()
	defer logSlow("time_entry.active", start)

	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE user_id = $1 AND ended_at IS NULL`

	e, err := scanEntry(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("получение активного таймера: %w", mapError(err))
	}
	return e, nil
}

func (r *TimeEntryRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*timeentry.Entry, error) {
	start := time.Now()
	defer logSlow("time_entry.list", start)

	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE task_id = $1 ORDER BY started_at DESC, id`, taskID)
	if err != nil {
		logger.Error("Repository: Не удалось получить записи времени", err)
		return nil, fmt.Errorf("получение записей времени: %w", err)
	}
	defer rows.Close()

	entries := []*timeentry.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("сканирование записи времени: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return entries, nil
}

func (r *TimeEntryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer logSlow("time_entry.delete", start)

	res, err := r.pool.Exec(ctx, `DELETE FROM time_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("удаление записи времени: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// SumClosed: суммарная длительность закрытых записей пользователя.
func (r *TimeEntryRepo) SumClosed(ctx context.Context, userID uuid.UUID) (time.Duration, error) {
	start := time.Now()
	defer logSlow("time_entry.sum", start)

	query := `SELECT COALESCE(EXTRACT(EPOCH FROM SUM(ended_at - started_at)), 0)::float8
				FROM time_entries
				WHERE user_id = $1 AND ended_at IS NOT NULL`

	var seconds float64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&seconds); err != nil {
		logger.Error("Repository: Не удалось посчитать время", err)
		return 0, fmt.Errorf("подсчёт времени: %w", err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
