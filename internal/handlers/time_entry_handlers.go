package handlers

import (
	"net/http"
	"time"

	"taskManager/internal/handlers/dto"
	"taskManager/internal/logger"
	"taskManager/internal/service"

	"go.uber.org/zap"
)

type TimeEntryHandler struct {
	base
	TimeEntryService TimeEntryService
}

func NewTimeEntryHandler(entries TimeEntryService, clock service.Clock) *TimeEntryHandler {
	return &TimeEntryHandler{base: newBase(clock), TimeEntryService: entries}
}

// StartTimer: POST /tasks/{id}/start-timer; тело необязательно.
func (h *TimeEntryHandler) StartTimer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := parseID(w, r)
	if !ok {
		return
	}

	var request dto.StartTimerRequest
	if r.ContentLength != 0 && r.Header.Get("Content-Type") != "" {
		if !decodeJSON(w, r, &request) {
			return
		}
	}

	entry, err := h.TimeEntryService.StartTimer(r.Context(), actor, taskID, request.Description)
	if err != nil {
		handleError(w, r, err, "start_timer")
		return
	}

	logDone("HTTP_OUT: Таймер запущен", start, http.StatusCreated,
		zap.String("entry_id", entry.UUID.String()),
		zap.String("task_id", taskID.String()))
	responseWithMessage(w, http.StatusCreated, "таймер запущен", dto.FromTimeEntry(entry, h.now()))
}

func (h *TimeEntryHandler) StopTimer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	entry, err := h.TimeEntryService.StopTimer(r.Context(), actor, id)
	if err != nil {
		handleError(w, r, err, "stop_timer")
		return
	}

	logDone("HTTP_OUT: Таймер остановлен", start, http.StatusOK, zap.String("entry_id", id.String()))
	responseWithMessage(w, http.StatusOK, "таймер остановлен", dto.FromTimeEntry(entry, h.now()))
}

// ActiveTimer отдаёт data: null, если таймер не запущен.
func (h *TimeEntryHandler) ActiveTimer(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	entry, err := h.TimeEntryService.ActiveTimer(r.Context(), actor)
	if err != nil {
		if busErr, ok := service.AsBusinessError(err); ok && busErr.Code == service.CodeNotFound {
			responseWithJSON(w, http.StatusOK, nil)
			return
		}
		handleError(w, r, err, "active_timer")
		return
	}
	responseWithJSON(w, http.StatusOK, dto.FromTimeEntry(entry, h.now()))
}

func (h *TimeEntryHandler) LogTime(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := parseID(w, r)
	if !ok {
		return
	}

	var request dto.LogTimeRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	logger.Info("HTTP: Вызов сервиса ручного учёта времени", zap.String("task_id", taskID.String()))
	entry, err := h.TimeEntryService.LogTime(r.Context(), actor, taskID, request.StartedAt, request.EndedAt, request.Description)
	if err != nil {
		handleError(w, r, err, "log_time")
		return
	}
	responseWithMessage(w, http.StatusCreated, "время добавлено", dto.FromTimeEntry(entry, h.now()))
}

func (h *TimeEntryHandler) TaskEntries(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := parseID(w, r)
	if !ok {
		return
	}

	res, err := h.TimeEntryService.TaskEntries(r.Context(), actor, taskID)
	if err != nil {
		handleError(w, r, err, "task_entries")
		return
	}

	now := h.now()
	entries := make([]dto.TimeEntryResponse, len(res.Entries))
	for i, e := range res.Entries {
		entries[i] = dto.FromTimeEntry(e, now)
	}
	responseWithJSON(w, http.StatusOK, dto.TaskTimeResponse{Entries: entries, TotalSeconds: res.TotalSeconds})
}

func (h *TimeEntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.TimeEntryService.DeleteEntry(r.Context(), actor, id); err != nil {
		handleError(w, r, err, "delete_entry")
		return
	}
	responseWithMessage(w, http.StatusOK, "запись удалена", nil)
}
