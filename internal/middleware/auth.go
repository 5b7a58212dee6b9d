package middleware

import (
	"context"
	"net/http"

	"taskManager/internal/logger"
	"taskManager/internal/models/user"
	"taskManager/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userKey contextKey = "user"

// UserHeader выставляет шлюз аутентификации перед сервисом.
const UserHeader = "X-User-ID"

type UserLookup interface {
	GetActiveUser(ctx context.Context, id uuid.UUID) (*user.User, error)
}

func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func UserFromContext(ctx context.Context) *user.User {
	u, _ := ctx.Value(userKey).(*user.User)
	return u
}

// Authenticate определяет пользователя по X-User-ID: неизвестный 401, деактивированный 403.
func Authenticate(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestId := GetRequestID(r.Context())

			id, err := uuid.Parse(r.Header.Get(UserHeader))
			if err != nil || id == uuid.Nil {
				logger.Warn("HTTP: Нет идентификатора пользователя",
					zap.String("request_id", requestId),
					zap.String("client_ip", r.RemoteAddr))
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "требуется идентификация пользователя")
				return
			}

			u, err := users.GetActiveUser(r.Context(), id)
			if err != nil {
				busErr, ok := service.AsBusinessError(err)
				switch {
				case ok && busErr.Code == service.CodeUserInactive:
					logger.Warn("HTTP: Пользователь деактивирован",
						zap.String("request_id", requestId),
						zap.String("user_id", id.String()))
					writeError(w, http.StatusForbidden, service.CodeUserInactive, "пользователь деактивирован")
				case ok && busErr.Code == service.CodeNotFound:
					logger.Warn("HTTP: Неизвестный пользователь",
						zap.String("request_id", requestId),
						zap.String("user_id", id.String()))
					writeError(w, http.StatusUnauthorized, CodeUnauthorized, "пользователь не найден")
				default:
					logger.Error("HTTP: Не удалось загрузить пользователя", err,
						zap.String("request_id", requestId))
					writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "внутренняя ошибка сервера")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}
