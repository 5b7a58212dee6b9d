package handlers

import (
	"net/http"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/models/user"
	"taskManager/internal/service"

	"go.uber.org/zap"
)

// base хранит общие для всех обработчиков часы для вычисляемых полей ответа.
type base struct {
	now service.Clock
}

func newBase(clock service.Clock) base {
	if clock == nil {
		clock = service.SystemClock(nil)
	}
	return base{now: clock}
}

func (b base) location() *time.Location {
	return b.now().Location()
}

// currentUser достаёт пользователя, положенного в контекст middleware.Authenticate.
func currentUser(w http.ResponseWriter, r *http.Request) (*user.User, bool) {
	actor := middleware.UserFromContext(r.Context())
	if actor == nil {
		logger.Warn("HTTP: Запрос без пользователя",
			zap.String("path", r.URL.Path),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, http.StatusUnauthorized, middleware.CodeUnauthorized, "требуется идентификация пользователя", nil)
		return nil, false
	}
	return actor, true
}

func logDone(msg string, start time.Time, status int, fields ...zap.Field) {
	fields = append(fields,
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", status))
	logger.Info(msg, fields...)
}
