package handlers

import (
	"context"
	"net/http"
	"time"

	"taskManager/internal/logger"
)

const serviceName = "task-manager"

type HealthHandler struct {
	checker HealthChecker
	timeout time.Duration
}

func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker, timeout: 2 * time.Second}
}

func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := map[string]any{
		"service": serviceName,
		"time":    time.Now().UTC(),
	}

	if err := h.checker.HealthCheck(ctx); err != nil {
		logger.Error("HTTP: Хранилище недоступно", err)
		status["status"] = "unhealthy"
		writeEnvelope(w, http.StatusServiceUnavailable, envelope{
			Success: false,
			Data:    status,
			Message: "хранилище недоступно",
			Code:    codeUnavailable,
		})
		return
	}

	status["status"] = "healthy"
	responseWithJSON(w, http.StatusOK, status)
}
