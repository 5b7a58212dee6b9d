package task

import (
	"time"

	"github.com/google/uuid"
)

type StatusFilter string

const (
	StatusAny        StatusFilter = ""
	StatusCompleted  StatusFilter = "completed"
	StatusIncomplete StatusFilter = "incomplete"
)

type DateFilter string

const (
	DateAny   DateFilter = ""
	DateToday DateFilter = "today"
	DateWeek  DateFilter = "week"
	DateMonth DateFilter = "month"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

const (
	DefaultSortField = "due_date"
	DefaultPerPage   = 10
)

// сортировать можно только по этим полям
var sortableFields = map[string]struct{}{
	"due_date":     {},
	"title":        {},
	"priority":     {},
	"created_at":   {},
	"updated_at":   {},
	"completed_at": {},
}

func SortableField(field string) bool {
	_, ok := sortableFields[field]
	return ok
}

// Filter описывает выборку задач одного пользователя.
// Нулевое значение поля означает "без ограничения", условия объединяются через AND.
type Filter struct {
	Search      string
	Status      StatusFilter
	CategoryID  *uuid.UUID
	NoCategory  bool
	Categorized bool
	Priority    Priority
	DateFilter  DateFilter
	TagID       *uuid.UUID

	// вычисляются из DateFilter или выставляются напрямую агрегатором
	DueFrom   *time.Time
	DueTo     *time.Time
	DueBefore *time.Time

	SortField     string
	SortDirection SortDirection
	Page          int
	PerPage       int
}

// Normalize подставляет значения по умолчанию и отбрасывает неизвестные status/date_filter.
// Неизвестное поле или направление сортировки не исправляется, это ошибка валидации.
func (f Filter) Normalize(perPage, maxPerPage int) Filter {
	switch f.Status {
	case StatusCompleted, StatusIncomplete:
	default:
		f.Status = StatusAny
	}
	switch f.DateFilter {
	case DateToday, DateWeek, DateMonth:
	default:
		f.DateFilter = DateAny
	}
	if !f.Priority.Valid() {
		f.Priority = 0
	}
	if f.SortField == "" {
		f.SortField = DefaultSortField
	}
	if f.SortDirection == "" {
		f.SortDirection = SortAsc
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if f.PerPage <= 0 {
		f.PerPage = perPage
	}
	if maxPerPage > 0 && f.PerPage > maxPerPage {
		f.PerPage = maxPerPage
	}
	return f
}

// Validate возвращает ошибки по полям: field -> причина.
func (f Filter) Validate() map[string]string {
	errs := map[string]string{}
	if f.SortField != "" && !SortableField(f.SortField) {
		errs["sort"] = "сортировка по этому полю не поддерживается"
	}
	if f.SortDirection != "" && f.SortDirection != SortAsc && f.SortDirection != SortDesc {
		errs["direction"] = "допустимо только asc или desc"
	}
	if f.NoCategory && (f.CategoryID != nil || f.Categorized) {
		errs["no_category"] = "нельзя сочетать с фильтром по категории"
	}
	return errs
}

// ResolveDates переводит DateFilter в полуинтервал [DueFrom, DueTo) в часовом поясе now.
func (f Filter) ResolveDates(now time.Time) Filter {
	var from, to time.Time
	switch f.DateFilter {
	case DateToday:
		from, to = DayRange(now)
	case DateWeek:
		from, to = WeekRange(now)
	case DateMonth:
		from, to = MonthRange(now)
	default:
		return f
	}
	f.DueFrom, f.DueTo = &from, &to
	return f
}

func (f Filter) Offset() int {
	if f.Page < 1 || f.PerPage < 1 {
		return 0
	}
	return (f.Page - 1) * f.PerPage
}

func DayRange(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

// WeekRange: ISO-неделя, начинается с понедельника.
func WeekRange(now time.Time) (time.Time, time.Time) {
	start, _ := DayRange(now)
	offset := (int(start.Weekday()) + 6) % 7
	start = start.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

func MonthRange(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}

func YearRange(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(1, 0, 0)
}
