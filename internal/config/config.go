package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "config.yml"
	EnvPrefix   = "TASKMANAGER"

	RepositoryPostgres = "postgres"
	RepositorySQLite   = "sqlite"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	Repository RepositoryConfig `yaml:"repository"`
	Logging    LoggingConfig    `yaml:"logging"`
	Pagination PaginationConfig `yaml:"pagination"`
	Worker     WorkerConfig     `yaml:"worker"`
	App        AppConfig        `yaml:"app"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimit       int           `yaml:"rate_limit"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	// TrustProxy включает разбор X-Forwarded-For/X-Real-IP; только за доверенным прокси.
	TrustProxy      bool          `yaml:"trust_proxy"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	MaxConnections int           `yaml:"max_connections"`
	MinConnections int           `yaml:"min_connections"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	AutoMigrate    bool          `yaml:"auto_migrate"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Development bool `yaml:"development"`
}

type RepositoryConfig struct {
	Type string `yaml:"type"` // "postgres" или "sqlite"
}

type PaginationConfig struct {
	PerPage    int `yaml:"per_page"`
	MaxPerPage int `yaml:"max_per_page"`
}

type WorkerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Schedule  string `yaml:"schedule"`
	BatchSize int    `yaml:"batch_size"`
}

type AppConfig struct {
	Timezone string `yaml:"timezone"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       100,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			MaxConnections: 10,
			MinConnections: 2,
			IdleTimeout:    5 * time.Minute,
			AutoMigrate:    true,
		},
		SQLite:     SQLiteConfig{Path: "task_manager.db"},
		Repository: RepositoryConfig{Type: RepositorySQLite},
		Pagination: PaginationConfig{PerPage: 10, MaxPerPage: 100},
		Worker:     WorkerConfig{Enabled: true, Schedule: "@every 5m", BatchSize: 500},
		App:        AppConfig{Timezone: "UTC"},
	}
}

// Load читает .env (если есть), затем YAML поверх значений по умолчанию,
// затем переменные окружения TASKMANAGER_* поверх YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if path == "" {
		path = DefaultPath
	}

	cfg := Default()

	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("ошибка парсинга %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// без файла работаем на умолчаниях и окружении
	default:
		return nil, fmt.Errorf("не могу открыть %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv переопределяет поля из окружения: server.port -> TASKMANAGER_SERVER_PORT.
func applyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	stringKeys := map[string]*string{
		"server.port":     &cfg.Server.Port,
		"server.host":     &cfg.Server.Host,
		"database.url":    &cfg.Database.URL,
		"sqlite.path":     &cfg.SQLite.Path,
		"repository.type": &cfg.Repository.Type,
		"worker.schedule": &cfg.Worker.Schedule,
		"app.timezone":    &cfg.App.Timezone,
	}
	ints := map[string]*int{
		"server.rate_limit":        &cfg.Server.RateLimit,
		"database.max_connections": &cfg.Database.MaxConnections,
		"database.min_connections": &cfg.Database.MinConnections,
		"pagination.per_page":      &cfg.Pagination.PerPage,
		"pagination.max_per_page":  &cfg.Pagination.MaxPerPage,
		"worker.batch_size":        &cfg.Worker.BatchSize,
	}
	bools := map[string]*bool{
		"logging.development":   &cfg.Logging.Development,
		"server.trust_proxy":    &cfg.Server.TrustProxy,
		"database.auto_migrate": &cfg.Database.AutoMigrate,
		"worker.enabled":        &cfg.Worker.Enabled,
	}
	durations := map[string]*time.Duration{
		"server.request_timeout":  &cfg.Server.RequestTimeout,
		"server.shutdown_timeout": &cfg.Server.ShutdownTimeout,
		"database.idle_timeout":   &cfg.Database.IdleTimeout,
	}

	if err := override(v, stringKeys, v.GetString); err != nil {
		return err
	}
	if err := override(v, ints, v.GetInt); err != nil {
		return err
	}
	if err := override(v, bools, v.GetBool); err != nil {
		return err
	}
	if err := override(v, durations, v.GetDuration); err != nil {
		return err
	}

	if err := v.BindEnv("server.cors_origins"); err != nil {
		return fmt.Errorf("привязка server.cors_origins: %w", err)
	}
	if v.IsSet("server.cors_origins") {
		cfg.Server.CORSOrigins = strings.Split(v.GetString("server.cors_origins"), ",")
	}
	return nil
}

func override[T any](v *viper.Viper, fields map[string]*T, get func(string) T) error {
	for key, dst := range fields {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("привязка %s: %w", key, err)
		}
		if v.IsSet(key) {
			*dst = get(key)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Repository.Type {
	case RepositoryPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url обязателен для repository.type=postgres"))
		}
	case RepositorySQLite:
		if c.SQLite.Path == "" {
			errs = append(errs, errors.New("sqlite.path обязателен для repository.type=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("неизвестный repository.type %q", c.Repository.Type))
	}

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port обязателен"))
	}
	if c.Pagination.PerPage <= 0 || c.Pagination.MaxPerPage < c.Pagination.PerPage {
		errs = append(errs, errors.New("pagination: нужно 0 < per_page <= max_per_page"))
	}
	if c.Worker.Enabled && c.Worker.Schedule == "" {
		errs = append(errs, errors.New("worker.schedule обязателен для включённого воркера"))
	}
	if c.Worker.BatchSize <= 0 {
		errs = append(errs, errors.New("worker.batch_size должен быть положительным"))
	}
	// имя пояса передаётся в SQL (AT TIME ZONE) и должно быть IANA-идентификатором
	if c.App.Timezone == "Local" {
		errs = append(errs, errors.New(`app.timezone: "Local" не поддерживается, укажите IANA-имя, например Europe/Moscow`))
	} else if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("app.timezone: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("некорректная конфигурация: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// Location: часовой пояс, в котором считаются "сегодня", неделя и месяц.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
