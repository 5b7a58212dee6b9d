package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"taskManager/internal/models/category"
	"taskManager/internal/models/tag"
	"taskManager/internal/models/task"
	"taskManager/internal/models/timeentry"
	"taskManager/internal/models/user"
	repo "taskManager/internal/repository"
	"taskManager/internal/repository/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestSuite: интеграционные тесты репозиториев на настоящем PostgreSQL
type PostgresTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	storage    *postgres.Storage
	connString string
	ctx        context.Context
}

func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	s.storage, err = postgres.New(s.ctx, s.connString, postgres.Options{MaxConns: 5})
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.storage.Migrate())
}

func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresTestSuite) SetupTest() {
	conn, err := pgx.Connect(s.ctx, s.connString)
	require.NoError(s.T(), err)
	defer conn.Close(s.ctx)

	_, err = conn.Exec(s.ctx, "TRUNCATE users, categories, tasks, tags, task_tags, time_entries CASCADE")
	require.NoError(s.T(), err)
}

func TestPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционные тесты в коротком режиме")
	}
	suite.Run(t, new(PostgresTestSuite))
}

func (s *PostgresTestSuite) newUser(email string) *user.User {
	u := &user.User{
		UUID:         uuid.New(),
		Name:         "Test",
		Email:        email,
		PasswordHash: "hash",
		Role:         user.RoleUser,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(s.T(), s.storage.Users.Create(s.ctx, u))
	return u
}

func (s *PostgresTestSuite) newTask(userID uuid.UUID, title string, opts ...task.TaskOption) *task.Task {
	t := &task.Task{
		UUID:      uuid.New(),
		UserID:    userID,
		Title:     title,
		Priority:  task.PriorityMedium,
		CreatedAt: time.Now().UTC(),
		Version:   1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	require.NoError(s.T(), s.storage.Tasks.Create(s.ctx, t))
	return t
}

func (s *PostgresTestSuite) newTag(userID uuid.UUID, name string) *tag.Tag {
	t := &tag.Tag{UUID: uuid.New(), UserID: userID, Name: name, Color: tag.DefaultColor, CreatedAt: time.Now().UTC()}
	require.NoError(s.T(), s.storage.Tags.Create(s.ctx, t))
	return t
}

func (s *PostgresTestSuite) TestUsers_DuplicateEmail() {
	s.newUser("a@example.com")

	dup := &user.User{UUID: uuid.New(), Name: "B", Email: "a@example.com", PasswordHash: "x", Role: user.RoleUser, Active: true, CreatedAt: time.Now()}
	err := s.storage.Users.Create(s.ctx, dup)
	assert.ErrorIs(s.T(), err, repo.ErrDuplicate)

	found, err := s.storage.Users.GetByEmail(s.ctx, "A@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "a@example.com", found.Email)
}

func (s *PostgresTestSuite) TestTasks_CreateGetWithTags() {
	u := s.newUser("tags@example.com")
	work := s.newTag(u.UUID, "work")
	home := s.newTag(u.UUID, "home")

	created := s.newTask(u.UUID, "Report", task.WithTags([]uuid.UUID{work.UUID, home.UUID}))
	assert.Equal(s.T(), 1, created.Version)

	got, err := s.storage.Tasks.GetByID(s.ctx, created.UUID)
	require.NoError(s.T(), err)
	assert.ElementsMatch(s.T(), []uuid.UUID{work.UUID, home.UUID}, got.TagIDs)
	assert.Equal(s.T(), task.PriorityMedium, got.Priority)

	w, err := s.storage.Tags.GetByID(s.ctx, work.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, w.UsageCount)
}

func (s *PostgresTestSuite) TestTasks_UpdateVersionConflict() {
	u := s.newUser("version@example.com")
	t := s.newTask(u.UUID, "Versioned")

	stale := *t
	t.Title = "Fresh"
	require.NoError(s.T(), s.storage.Tasks.Update(s.ctx, t))
	assert.Equal(s.T(), 2, t.Version)
	assert.NotNil(s.T(), t.UpdatedAt)

	stale.Title = "Stale"
	err := s.storage.Tasks.Update(s.ctx, &stale)
	assert.ErrorIs(s.T(), err, repo.ErrVersionConflict)

	missing := &task.Task{UUID: uuid.New(), Title: "x", Priority: task.PriorityLow, Version: 1}
	assert.ErrorIs(s.T(), s.storage.Tasks.Update(s.ctx, missing), repo.ErrNotFound)
}

func (s *PostgresTestSuite) TestTasks_UpdateSyncsTagUsage() {
	u := s.newUser("sync@example.com")
	a := s.newTag(u.UUID, "a")
	b := s.newTag(u.UUID, "b")
	t := s.newTask(u.UUID, "Sync", task.WithTags([]uuid.UUID{a.UUID}))

	t.TagIDs = []uuid.UUID{b.UUID}
	require.NoError(s.T(), s.storage.Tasks.Update(s.ctx, t))

	gotA, _ := s.storage.Tags.GetByID(s.ctx, a.UUID)
	gotB, _ := s.storage.Tags.GetByID(s.ctx, b.UUID)
	assert.Equal(s.T(), 0, gotA.UsageCount)
	assert.Equal(s.T(), 1, gotB.UsageCount)

	require.NoError(s.T(), s.storage.Tasks.Delete(s.ctx, t.UUID))
	gotB, _ = s.storage.Tags.GetByID(s.ctx, b.UUID)
	assert.Equal(s.T(), 0, gotB.UsageCount)

	assert.ErrorIs(s.T(), s.storage.Tasks.Delete(s.ctx, t.UUID), repo.ErrNotFound)
}

func (s *PostgresTestSuite) TestTasks_FilterDoesNotLeakOtherUsers() {
	alice := s.newUser("alice@example.com")
	bob := s.newUser("bob@example.com")

	s.newTask(alice.UUID, "Buy milk")
	s.newTask(bob.UUID, "Buy bread")

	tasks, err := s.storage.Tasks.List(s.ctx, alice.UUID, task.Filter{Search: "buy", PerPage: 10, Page: 1})
	require.NoError(s.T(), err)
	require.Len(s.T(), tasks, 1)
	assert.Equal(s.T(), "Buy milk", tasks[0].Title)

	n, err := s.storage.Tasks.Count(s.ctx, alice.UUID, task.Filter{Search: "buy"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, n)
}

func (s *PostgresTestSuite) TestTasks_SearchEscapesWildcards() {
	u := s.newUser("like@example.com")
	s.newTask(u.UUID, "100% done")
	s.newTask(u.UUID, "1000 things")

	n, err := s.storage.Tasks.Count(s.ctx, u.UUID, task.Filter{Search: "0%"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, n)
}

func (s *PostgresTestSuite) TestTasks_FilterCombination() {
	u := s.newUser("combo@example.com")
	cat := &category.Category{UUID: uuid.New(), UserID: u.UUID, Name: "Work", Color: category.DefaultColor, CreatedAt: time.Now()}
	require.NoError(s.T(), s.storage.Categories.Create(s.ctx, cat))
	urgent := s.newTag(u.UUID, "urgent")

	now := time.Now().UTC()
	tomorrow := now.Add(24 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)

	match := s.newTask(u.UUID, "Match",
		task.WithCategory(cat.UUID),
		task.WithPriority(task.PriorityHigh),
		task.WithDueDate(tomorrow),
		task.WithTags([]uuid.UUID{urgent.UUID}))
	s.newTask(u.UUID, "Wrong priority", task.WithCategory(cat.UUID), task.WithDueDate(tomorrow), task.WithTags([]uuid.UUID{urgent.UUID}))
	s.newTask(u.UUID, "No category", task.WithPriority(task.PriorityHigh), task.WithDueDate(tomorrow))
	s.newTask(u.UUID, "Done", task.WithCategory(cat.UUID), task.WithPriority(task.PriorityHigh), task.WithCompleted(true, now))

	filter := task.Filter{
		Status:     task.StatusIncomplete,
		CategoryID: &cat.UUID,
		Priority:   task.PriorityHigh,
		TagID:      &urgent.UUID,
		DueFrom:    &now,
		PerPage:    10,
		Page:       1,
	}
	tasks, err := s.storage.Tasks.List(s.ctx, u.UUID, filter)
	require.NoError(s.T(), err)
	require.Len(s.T(), tasks, 1)
	assert.Equal(s.T(), match.UUID, tasks[0].UUID)

	uncategorized, err := s.storage.Tasks.Count(s.ctx, u.UUID, task.Filter{NoCategory: true})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, uncategorized)

	overdue, err := s.storage.Tasks.Count(s.ctx, u.UUID, task.Filter{Status: task.StatusIncomplete, DueBefore: &yesterday})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 0, overdue)
}

func (s *PostgresTestSuite) TestTasks_SortNullsLastAndPagination() {
	u := s.newUser("sort@example.com")
	base := time.Now().UTC().Add(time.Hour)

	s.newTask(u.UUID, "No due")
	s.newTask(u.UUID, "Later", task.WithDueDate(base.Add(2*time.Hour)))
	s.newTask(u.UUID, "Sooner", task.WithDueDate(base))

	page1, err := s.storage.Tasks.List(s.ctx, u.UUID, task.Filter{SortField: "due_date", SortDirection: task.SortAsc, Page: 1, PerPage: 2})
	require.NoError(s.T(), err)
	require.Len(s.T(), page1, 2)
	assert.Equal(s.T(), "Sooner", page1[0].Title)
	assert.Equal(s.T(), "Later", page1[1].Title)

	page2, err := s.storage.Tasks.List(s.ctx, u.UUID, task.Filter{SortField: "due_date", SortDirection: task.SortDesc, Page: 2, PerPage: 2})
	require.NoError(s.T(), err)
	require.Len(s.T(), page2, 1)
	assert.Equal(s.T(), "No due", page2[0].Title)
}

func (s *PostgresTestSuite) TestTasks_CountCreatedByMonth() {
	u := s.newUser("months@example.com")
	year := time.Now().UTC().Year()

	for _, m := range []time.Month{time.January, time.January, time.March} {
		t := &task.Task{UUID: uuid.New(), UserID: u.UUID, Title: "m", Priority: task.PriorityLow,
			CreatedAt: time.Date(year, m, 15, 12, 0, 0, 0, time.UTC), Version: 1}
		require.NoError(s.T(), s.storage.Tasks.Create(s.ctx, t))
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	months, err := s.storage.Tasks.CountCreatedByMonth(s.ctx, u.UUID, from, from.AddDate(1, 0, 0))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), map[int]int{1: 2, 3: 1}, months)
}

func (s *PostgresTestSuite) TestTasks_GetTasksDueBetween() {
	u := s.newUser("due@example.com")
	now := time.Now().UTC()

	due := s.newTask(u.UUID, "Due", task.WithDueDate(now.Add(-time.Minute)))
	s.newTask(u.UUID, "Old", task.WithDueDate(now.Add(-time.Hour)))
	s.newTask(u.UUID, "Closed", task.WithDueDate(now.Add(-time.Minute)), task.WithCompleted(true, now))

	tasks, err := s.storage.Tasks.GetTasksDueBetween(s.ctx, task.CursorAt(now.Add(-5*time.Minute)), now, 100)
	require.NoError(s.T(), err)
	require.Len(s.T(), tasks, 1)
	assert.Equal(s.T(), due.UUID, tasks[0].UUID)
}

func (s *PostgresTestSuite) TestTasks_GetTasksDueBetweenResumesOnTies() {
	u := s.newUser("ties@example.com")
	now := time.Now().UTC().Truncate(time.Second)
	due := now.Add(-time.Minute)

	for i := 0; i < 3; i++ {
		s.newTask(u.UUID, fmt.Sprintf("tied %d", i), task.WithDueDate(due))
	}

	first, err := s.storage.Tasks.GetTasksDueBetween(s.ctx, task.CursorAt(now.Add(-time.Hour)), now, 2)
	require.NoError(s.T(), err)
	require.Len(s.T(), first, 2)
	assert.True(s.T(), first[0].UUID.String() < first[1].UUID.String())

	rest, err := s.storage.Tasks.GetTasksDueBetween(s.ctx, task.CursorAfter(first[1]), now, 2)
	require.NoError(s.T(), err)
	require.Len(s.T(), rest, 1)
	assert.NotContains(s.T(), []uuid.UUID{first[0].UUID, first[1].UUID}, rest[0].UUID)

	// граница только по времени исключает задачи ровно на ней
	none, err := s.storage.Tasks.GetTasksDueBetween(s.ctx, task.CursorAt(due), now, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), none)
}

func (s *PostgresTestSuite) TestTasks_CategoryPresenceFilters() {
	u := s.newUser("presence@example.com")
	c := &category.Category{UUID: uuid.New(), UserID: u.UUID, Name: "Errands", Color: category.DefaultColor, CreatedAt: time.Now()}
	require.NoError(s.T(), s.storage.Categories.Create(s.ctx, c))

	filed := s.newTask(u.UUID, "filed", task.WithCategory(c.UUID))
	loose := s.newTask(u.UUID, "loose")

	withCategory, err := s.storage.Tasks.List(s.ctx, u.UUID, task.Filter{Categorized: true}.Normalize(10, 100))
	require.NoError(s.T(), err)
	require.Len(s.T(), withCategory, 1)
	assert.Equal(s.T(), filed.UUID, withCategory[0].UUID)

	withoutCategory, err := s.storage.Tasks.List(s.ctx, u.UUID, task.Filter{NoCategory: true}.Normalize(10, 100))
	require.NoError(s.T(), err)
	require.Len(s.T(), withoutCategory, 1)
	assert.Equal(s.T(), loose.UUID, withoutCategory[0].UUID)

	n, err := s.storage.Tasks.Count(s.ctx, u.UUID, task.Filter{Categorized: true})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, n)
}

func (s *PostgresTestSuite) TestCategories_CountsAndDelete() {
	u := s.newUser("cat@example.com")
	cat := &category.Category{UUID: uuid.New(), UserID: u.UUID, Name: "Home", Color: category.DefaultColor, CreatedAt: time.Now()}
	require.NoError(s.T(), s.storage.Categories.Create(s.ctx, cat))

	s.newTask(u.UUID, "one", task.WithCategory(cat.UUID))
	done := s.newTask(u.UUID, "two", task.WithCategory(cat.UUID), task.WithCompleted(true, time.Now()))

	got, err := s.storage.Categories.GetByID(s.ctx, cat.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, got.TaskCount)
	assert.Equal(s.T(), 1, got.CompletedTaskCount)
	assert.Equal(s.T(), 50.0, got.CompletionPercentage())

	dup := &category.Category{UUID: uuid.New(), UserID: u.UUID, Name: "Home", Color: category.DefaultColor, CreatedAt: time.Now()}
	assert.ErrorIs(s.T(), s.storage.Categories.Create(s.ctx, dup), repo.ErrDuplicate)

	require.NoError(s.T(), s.storage.Categories.Delete(s.ctx, cat.UUID))
	orphan, err := s.storage.Tasks.GetByID(s.ctx, done.UUID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), orphan.CategoryID)
}

func (s *PostgresTestSuite) TestTags_UsageCountsOnlyChangedLinks() {
	u := s.newUser("usage@example.com")
	a := s.newTag(u.UUID, "a")
	b := s.newTag(u.UUID, "b")
	t := s.newTask(u.UUID, "linked", task.WithTags([]uuid.UUID{a.UUID}))

	usage := func(id uuid.UUID) int {
		got, err := s.storage.Tags.GetByID(s.ctx, id)
		require.NoError(s.T(), err)
		return got.UsageCount
	}

	// связь с a уже есть, счётчик a не растёт
	require.NoError(s.T(), s.storage.AttachTags(s.ctx, t.UUID, []uuid.UUID{a.UUID, b.UUID}))
	assert.Equal(s.T(), 1, usage(a.UUID))
	assert.Equal(s.T(), 1, usage(b.UUID))

	require.NoError(s.T(), s.storage.DetachTags(s.ctx, t.UUID, []uuid.UUID{b.UUID}))
	require.NoError(s.T(), s.storage.DetachTags(s.ctx, t.UUID, []uuid.UUID{b.UUID}))
	assert.Equal(s.T(), 1, usage(a.UUID))
	assert.Equal(s.T(), 0, usage(b.UUID))
}

func (s *PostgresTestSuite) TestTags_Merge() {
	u := s.newUser("merge@example.com")
	src := s.newTag(u.UUID, "src")
	tgt := s.newTag(u.UUID, "tgt")

	both := s.newTask(u.UUID, "both", task.WithTags([]uuid.UUID{src.UUID, tgt.UUID}))
	onlySrc := s.newTask(u.UUID, "only src", task.WithTags([]uuid.UUID{src.UUID}))

	merged, err := s.storage.Tags.Merge(s.ctx, src.UUID, tgt.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), tgt.UUID, merged.UUID)
	assert.Equal(s.T(), 3, merged.UsageCount)

	_, err = s.storage.Tags.GetByID(s.ctx, src.UUID)
	assert.ErrorIs(s.T(), err, repo.ErrNotFound)

	for _, id := range []uuid.UUID{both.UUID, onlySrc.UUID} {
		got, err := s.storage.Tasks.GetByID(s.ctx, id)
		require.NoError(s.T(), err)
		assert.Equal(s.T(), []uuid.UUID{tgt.UUID}, got.TagIDs)
	}

	_, err = s.storage.Tags.Merge(s.ctx, src.UUID, tgt.UUID)
	assert.ErrorIs(s.T(), err, repo.ErrNotFound)
}

func (s *PostgresTestSuite) TestTimeEntries_SingleActivePerUser() {
	u := s.newUser("timer@example.com")
	t := s.newTask(u.UUID, "Tracked")
	now := time.Now().UTC()

	first := &timeentry.Entry{UUID: uuid.New(), TaskID: t.UUID, UserID: u.UUID, StartedAt: now.Add(-time.Hour), CreatedAt: now}
	require.NoError(s.T(), s.storage.TimeEntries.Start(s.ctx, first))

	second := &timeentry.Entry{UUID: uuid.New(), TaskID: t.UUID, UserID: u.UUID, StartedAt: now, CreatedAt: now}
	assert.ErrorIs(s.T(), s.storage.TimeEntries.Start(s.ctx, second), repo.ErrActiveEntryExists)
	assert.ErrorIs(s.T(), s.storage.TimeEntries.Create(s.ctx, second), repo.ErrActiveEntryExists)

	active, err := s.storage.TimeEntries.GetActive(s.ctx, u.UUID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), first.UUID, active.UUID)

	stopped, err := s.storage.TimeEntries.Stop(s.ctx, first.UUID, now)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), stopped.EndedAt)

	_, err = s.storage.TimeEntries.Stop(s.ctx, first.UUID, now)
	assert.ErrorIs(s.T(), err, repo.ErrEntryStopped)
	_, err = s.storage.TimeEntries.Stop(s.ctx, uuid.New(), now)
	assert.ErrorIs(s.T(), err, repo.ErrNotFound)

	total, err := s.storage.TimeEntries.SumClosed(s.ctx, u.UUID)
	require.NoError(s.T(), err)
	assert.InDelta(s.T(), time.Hour.Seconds(), total.Seconds(), 1)

	_, err = s.storage.TimeEntries.GetActive(s.ctx, u.UUID)
	assert.ErrorIs(s.T(), err, repo.ErrNotFound)
}
