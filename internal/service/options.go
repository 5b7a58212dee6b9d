package service

import (
	"taskManager/internal/models/task"
	"taskManager/internal/models/user"

	"github.com/google/uuid"
)

type settings struct {
	now        Clock
	perPage    int
	maxPerPage int
}

func defaultSettings() settings {
	return settings{
		now:        SystemClock(nil),
		perPage:    task.DefaultPerPage,
		maxPerPage: 100,
	}
}

// Option настраивает сервисы: часы, размер страницы.
type Option func(*settings)

func WithClock(clock Clock) Option {
	return func(s *settings) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithPagination(perPage, maxPerPage int) Option {
	return func(s *settings) {
		if perPage > 0 {
			s.perPage = perPage
		}
		if maxPerPage > 0 {
			s.maxPerPage = maxPerPage
		}
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// authorize пропускает владельца или администратора.
func authorize(actor *user.User, ownerID uuid.UUID, resource Resource, id uuid.UUID) error {
	if actor == nil || !actor.CanAccess(ownerID) {
		return NewForbidden(resource, id.String())
	}
	return nil
}
