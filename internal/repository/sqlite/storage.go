package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskManager/internal/logger"
	repo "taskManager/internal/repository"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Storage: встраиваемое хранилище на SQLite через gorm.
// Все запросы идут через одно соединение, поэтому записи сериализуются.
type Storage struct {
	db *gorm.DB

	Tasks       *TaskRepo
	Categories  *CategoryRepo
	Tags        *TagRepo
	TimeEntries *TimeEntryRepo
	Users       *UserRepo
}

func New(dsn string) (*Storage, error) {
	if dsn == "" {
		dsn = "task_manager.db"
	}
	if err := ensureDir(dsn); err != nil {
		return nil, err
	}

	dbLogger := gormlogger.New(
		zap.NewStdLog(logger.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             100 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         dbLogger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		logger.Error("Repository: Не удалось открыть SQLite", err)
		return nil, fmt.Errorf("открытие базы: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("получение соединения: %w", err)
	}
	// :memory: живёт в пределах одного соединения
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&userRecord{}, &categoryRecord{}, &taskRecord{}, &tagRecord{}, &taskTagRecord{}, &timeEntryRecord{}); err != nil {
		logger.Error("Repository: Не удалось применить схему SQLite", err)
		return nil, fmt.Errorf("миграция базы: %w", err)
	}

	logger.Info("Repository: Успешное открытие SQLite", zap.String("dsn", dsn))

	return &Storage{
		db:          db,
		Tasks:       &TaskRepo{db: db},
		Categories:  &CategoryRepo{db: db},
		Tags:        &TagRepo{db: db},
		TimeEntries: &TimeEntryRepo{db: db},
		Users:       &UserRepo{db: db},
	}, nil
}

func (s *Storage) Close() {
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("Repository: Ошибка закрытия SQLite", zap.Error(err))
		return
	}
	logger.Info("Repository: SQLite закрыт")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("получение соединения: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

// ensureDir создаёт каталог для файла базы.
func ensureDir(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("создание каталога %q: %w", dir, err)
	}
	return nil
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repo.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", repo.ErrDuplicate, err)
	}
	return err
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
