package handlers

import (
	"net/http"
	"strings"
	"time"

	"taskManager/internal/handlers/dto"
	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"taskManager/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskHandler struct {
	base
	TaskService       TaskService
	StatisticsService StatisticsService
}

func NewTaskHandler(taskService TaskService, statistics StatisticsService, clock service.Clock) *TaskHandler {
	return &TaskHandler{
		base:              newBase(clock),
		TaskService:       taskService,
		StatisticsService: statistics,
	}
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	filter, errs := parseTaskFilter(r.URL.Query())
	if len(errs) > 0 {
		logger.Warn("HTTP: Неверные параметры фильтра",
			zap.Any("errors", errs),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusUnprocessableEntity, service.CodeValidation, "некорректные параметры фильтра", errs)
		return
	}

	page, err := h.TaskService.ListTasks(r.Context(), actor, filter)
	if err != nil {
		handleError(w, r, err, "list_tasks")
		return
	}

	logDone("HTTP_OUT: Задачи получены", start, http.StatusOK, zap.Int("total", page.Total))
	responseWithJSON(w, http.StatusOK, dto.FromTaskPage(page, h.now()))
}

func (h *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	input := service.CreateTaskInput{
		Title:       strings.TrimSpace(request.Title),
		Description: request.Description,
		CategoryID:  request.CategoryID,
		TagIDs:      request.TagIDs,
		Completed:   request.Completed,
	}

	errs := map[string]any{}
	if request.DueDate != nil && *request.DueDate != "" {
		due, err := parseOptionalTime(*request.DueDate, h.location())
		if err != nil {
			errs["due_date"] = "ожидается дата YYYY-MM-DD или RFC3339"
		} else {
			input.DueDate = &due
		}
	}
	if request.Priority != nil {
		p, err := task.ParsePriority(*request.Priority)
		if err != nil {
			errs["priority"] = "допустимо low, medium, high или urgent"
		}
		input.Priority = p
	}
	if len(errs) > 0 {
		responseWithError(w, http.StatusUnprocessableEntity, service.CodeValidation, "Переданные данные не прошли проверку", errs)
		return
	}

	logger.Info("HTTP: Вызов сервиса создания задач")
	created, err := h.TaskService.CreateTask(r.Context(), actor, input)
	if err != nil {
		handleError(w, r, err, "create_task")
		return
	}

	logDone("HTTP_OUT: Задача создана", start, http.StatusCreated, zap.String("task_id", created.UUID.String()))
	responseWithMessage(w, http.StatusCreated, "задача создана", dto.FromTask(created, h.now()))
}

func (h *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	t, err := h.TaskService.GetTaskByID(r.Context(), actor, id)
	if err != nil {
		handleError(w, r, err, "get_task")
		return
	}

	responseWithJSON(w, http.StatusOK, dto.FromTask(t, h.now()))
}

func (h *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var request dto.UpdateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	input := service.UpdateTaskInput{
		Title:       request.Title,
		Description: request.Description,
		Completed:   request.Completed,
	}
	if input.Title != nil {
		trimmed := strings.TrimSpace(*input.Title)
		input.Title = &trimmed
	}
	if request.TagIDs != nil {
		input.TagIDs = *request.TagIDs
		if input.TagIDs == nil {
			input.TagIDs = []uuid.UUID{}
		}
	}

	errs := map[string]any{}
	switch {
	case request.DueDate.Null, request.DueDate.Set && request.DueDate.Value == "":
		input.ClearDueDate = true
	case request.DueDate.Set:
		due, err := parseOptionalTime(request.DueDate.Value, h.location())
		if err != nil {
			errs["due_date"] = "ожидается дата YYYY-MM-DD или RFC3339"
		} else {
			input.DueDate = &due
		}
	}
	switch {
	case request.CategoryID.Null:
		input.ClearCategory = true
	case request.CategoryID.Set:
		input.CategoryID = &request.CategoryID.Value
	}
	if request.Priority != nil {
		p, err := task.ParsePriority(*request.Priority)
		if err != nil {
			errs["priority"] = "допустимо low, medium, high или urgent"
		} else {
			input.Priority = &p
		}
	}
	if len(errs) > 0 {
		responseWithError(w, http.StatusUnprocessableEntity, service.CodeValidation, "Переданные данные не прошли проверку", errs)
		return
	}

	logger.Info("HTTP: запрос к сервису обновления данных", zap.String("task_id", id.String()))
	updated, err := h.TaskService.UpdateTask(r.Context(), actor, id, input)
	if err != nil {
		handleError(w, r, err, "update_task")
		return
	}

	logDone("HTTP_OUT: Задача обновлена", start, http.StatusOK, zap.String("task_id", id.String()))
	responseWithMessage(w, http.StatusOK, "задача обновлена", dto.FromTask(updated, h.now()))
}

func (h *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	toggled, err := h.TaskService.ToggleTask(r.Context(), actor, id)
	if err != nil {
		handleError(w, r, err, "toggle_task")
		return
	}

	message := "задача снова в работе"
	if toggled.Completed {
		message = "задача выполнена"
	}
	responseWithMessage(w, http.StatusOK, message, dto.FromTask(toggled, h.now()))
}

func (h *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	logger.Info("HTTP: Обращение к сервису для удаления задачи")
	if err := h.TaskService.DeleteTask(r.Context(), actor, id); err != nil {
		handleError(w, r, err, "delete_task")
		return
	}

	logDone("HTTP_OUT: Задача удалена", start, http.StatusOK, zap.String("task_id", id.String()))
	responseWithMessage(w, http.StatusOK, "задача удалена", nil)
}

func (h *TaskHandler) GetOverdueTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, perPage, ok := parsePaging(w, r)
	if !ok {
		return
	}

	res, err := h.TaskService.OverdueTasks(r.Context(), actor, page, perPage)
	if err != nil {
		handleError(w, r, err, "overdue_tasks")
		return
	}
	responseWithJSON(w, http.StatusOK, dto.FromTaskPage(res, h.now()))
}

func (h *TaskHandler) GetDueTodayTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, perPage, ok := parsePaging(w, r)
	if !ok {
		return
	}

	res, err := h.TaskService.DueTodayTasks(r.Context(), actor, page, perPage)
	if err != nil {
		handleError(w, r, err, "due_today_tasks")
		return
	}
	responseWithJSON(w, http.StatusOK, dto.FromTaskPage(res, h.now()))
}

func (h *TaskHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	stats, err := h.StatisticsService.TaskStatistics(r.Context(), actor)
	if err != nil {
		handleError(w, r, err, "task_statistics")
		return
	}
	responseWithJSON(w, http.StatusOK, stats)
}
