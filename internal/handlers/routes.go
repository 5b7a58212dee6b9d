package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handlers собирает обработчики всех ресурсов для регистрации маршрутов.
type Handlers struct {
	Health     *HealthHandler
	Users      *UserHandler
	Tasks      *TaskHandler
	Categories *CategoryHandler
	Tags       *TagHandler
	TimeEntry  *TimeEntryHandler
}

// Register вешает маршруты API на r; authenticate оборачивает всё, кроме /health и регистрации.
func (h Handlers) Register(r chi.Router, authenticate func(http.Handler) http.Handler) {
	r.Get("/health", h.Health.HealthCheck)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", h.Users.Register)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", h.Users.Me)
			r.Patch("/me", h.Users.UpdateProfile)
			r.Get("/statistics", h.Users.Statistics)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.Tasks.ListTasks)
			r.Post("/", h.Tasks.PostTask)
			r.Get("/statistics", h.Tasks.GetStatistics)
			r.Get("/overdue", h.Tasks.GetOverdueTasks)
			r.Get("/due-today", h.Tasks.GetDueTodayTasks)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Tasks.GetTaskByID)
				r.Put("/", h.Tasks.UpdateTaskByID)
				r.Delete("/", h.Tasks.DeleteTaskByID)
				r.Patch("/toggle", h.Tasks.ToggleTask)
				r.Post("/start-timer", h.TimeEntry.StartTimer)
				r.Get("/time-entries", h.TimeEntry.TaskEntries)
				r.Post("/time-entries", h.TimeEntry.LogTime)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.Categories.ListCategories)
			r.Post("/", h.Categories.PostCategory)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Categories.GetCategory)
				r.Put("/", h.Categories.UpdateCategory)
				r.Delete("/", h.Categories.DeleteCategory)
				r.Get("/tasks", h.Categories.CategoryTasks)
			})
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", h.Tags.ListTags)
			r.Post("/", h.Tags.PostTag)
			r.Post("/merge", h.Tags.MergeTags)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Tags.GetTag)
				r.Put("/", h.Tags.UpdateTag)
				r.Delete("/", h.Tags.DeleteTag)
			})
		})

		r.Route("/time-entries", func(r chi.Router) {
			r.Get("/active", h.TimeEntry.ActiveTimer)
			r.Post("/{id}/stop", h.TimeEntry.StopTimer)
			r.Delete("/{id}", h.TimeEntry.DeleteEntry)
		})
	})
}
