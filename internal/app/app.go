package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taskManager/internal/config"
	"taskManager/internal/events"
	"taskManager/internal/handlers"
	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/repository/postgres"
	"taskManager/internal/repository/sqlite"
	"taskManager/internal/service"
	"taskManager/internal/worker"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// repositories: общий срез обоих хранилищ, с которым работает приложение.
type repositories struct {
	tasks       service.TaskRepository
	categories  service.CategoryRepository
	tags        service.TagRepository
	timeEntries service.TimeEntryRepository
	users       service.UserRepository
	health      service.HealthChecker
}

type App struct {
	config *config.Config
	server *http.Server
	router *chi.Mux
	repos  repositories
	worker *worker.OverdueWorker

	shutdowns []func() // выполняются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}

	clock := service.SystemClock(a.config.Location())
	opts := []service.Option{
		service.WithClock(clock),
		service.WithPagination(a.config.Pagination.PerPage, a.config.Pagination.MaxPerPage),
	}

	dispatcher := events.NewDispatcher()
	dispatcher.Subscribe(events.LogHandler)

	users := service.NewUserService(a.repos.users, opts...)
	tasks := service.NewTaskService(a.repos.tasks, a.repos.categories, a.repos.tags, dispatcher, opts...)
	categories := service.NewCategoryService(a.repos.categories, a.repos.tasks, opts...)
	tags := service.NewTagService(a.repos.tags, dispatcher, opts...)
	entries := service.NewTimeEntryService(a.repos.timeEntries, a.repos.tasks, dispatcher, opts...)
	statistics := service.NewStatisticsService(a.repos.tasks, a.repos.categories, a.repos.tags, a.repos.timeEntries, opts...)

	a.router = a.newRouter(handlers.Handlers{
		Health:     handlers.NewHealthHandler(a.repos.health),
		Users:      handlers.NewUserHandler(users, statistics, clock),
		Tasks:      handlers.NewTaskHandler(tasks, statistics, clock),
		Categories: handlers.NewCategoryHandler(categories, clock),
		Tags:       handlers.NewTagHandler(tags),
		TimeEntry:  handlers.NewTimeEntryHandler(entries, clock),
	}, middleware.Authenticate(users))

	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           otelhttp.NewHandler(a.router, "task-manager"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if a.config.Worker.Enabled {
		a.worker = worker.NewOverdueWorker(a.repos.tasks, dispatcher, clock, a.config.Worker.Schedule, a.config.Worker.BatchSize)
	}

	return a, nil
}

func (a *App) initStorage(ctx context.Context) error {
	switch a.config.Repository.Type {
	case config.RepositoryPostgres:
		storage, err := postgres.New(ctx, a.config.Database.URL, postgres.Options{
			MaxConns:        int32(a.config.Database.MaxConnections),
			MinConns:        int32(a.config.Database.MinConnections),
			MaxConnIdleTime: a.config.Database.IdleTimeout,
		})
		if err != nil {
			return fmt.Errorf("подключение к PostgreSQL: %w", err)
		}
		a.shutdowns = append(a.shutdowns, storage.Close)

		if a.config.Database.AutoMigrate {
			if err := storage.Migrate(); err != nil {
				return err
			}
		}
		a.repos = repositories{
			tasks:       storage.Tasks,
			categories:  storage.Categories,
			tags:        storage.Tags,
			timeEntries: storage.TimeEntries,
			users:       storage.Users,
			health:      storage,
		}
	case config.RepositorySQLite:
		storage, err := sqlite.New(a.config.SQLite.Path)
		if err != nil {
			return fmt.Errorf("открытие SQLite: %w", err)
		}
		a.shutdowns = append(a.shutdowns, storage.Close)
		a.repos = repositories{
			tasks:       storage.Tasks,
			categories:  storage.Categories,
			tags:        storage.Tags,
			timeEntries: storage.TimeEntries,
			users:       storage.Users,
			health:      storage,
		}
	default:
		return fmt.Errorf("неизвестный тип хранилища %q", a.config.Repository.Type)
	}

	logger.Info("App: Хранилище готово", zap.String("type", a.config.Repository.Type))
	return nil
}

func (a *App) newRouter(h handlers.Handlers, authenticate func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if a.config.Server.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(a.config.Server.RequestTimeout))
	r.Use(middleware.RateLimit(a.config.Server.RateLimit))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.UserHeader, "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))

	h.Register(r, authenticate)
	return r
}

// Handler нужен тестам и встраиванию без запуска сервера.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run блокируется до отмены ctx или падения сервера, затем останавливает всё по порядку.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server started", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})

	if a.worker != nil {
		g.Go(func() error {
			return a.worker.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Остановка HTTP сервера...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("остановка сервера: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) Close() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}
