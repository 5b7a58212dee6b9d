package handlers

import (
	"context"
	"errors"
	"net/http"

	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/service"

	"go.uber.org/zap"
)

const (
	codeBadRequest    = "BAD_REQUEST"
	codeMediaType     = "UNSUPPORTED_MEDIA_TYPE"
	codeInternal      = "INTERNAL_ERROR"
	codeUnavailable   = "SERVICE_UNAVAILABLE"
	codeTimeout       = "TIMEOUT"
	internalErrorText = "внутренняя ошибка сервера"
)

// handleError пишет ответ для любой ошибки сервиса: бизнес-ошибки по коду, остальное 500.
func handleError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	requestID := middleware.GetRequestID(r.Context())

	if businessErr, ok := service.AsBusinessError(err); ok {
		statusCode := mapBusinessErrorToHTTP(businessErr.Code)

		logger.Warn("HTTP: Бизнес-ошибка",
			zap.String("request_id", requestID),
			zap.String("operation", operation),
			zap.String("error_code", businessErr.Code),
			zap.Int("http_status", statusCode))

		var details map[string]any
		if businessErr.Code == service.CodeValidation || len(businessErr.Details) > 0 {
			details = businessErr.Details
		}
		responseWithError(w, statusCode, businessErr.Code, businessErr.Message, details)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("HTTP: Таймаут запроса",
			zap.String("request_id", requestID),
			zap.String("operation", operation))
		responseWithError(w, http.StatusGatewayTimeout, codeTimeout, "запрос выполнялся слишком долго", nil)
		return
	}

	logger.Error("HTTP: Ошибка Service", err,
		zap.String("request_id", requestID),
		zap.String("operation", operation),
		zap.String("client_ip", r.RemoteAddr))
	responseWithError(w, http.StatusInternalServerError, codeInternal, internalErrorText, nil)
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusUnprocessableEntity
	case service.CodeForbidden, service.CodeUserInactive:
		return http.StatusForbidden
	case service.CodeVersionConflict, service.CodeTimerRunning, service.CodeTimerStopped:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
