package handlers

import (
	"net/http"
	"time"

	"taskManager/internal/handlers/dto"
	"taskManager/internal/service"

	"go.uber.org/zap"
)

type UserHandler struct {
	base
	UserService       UserService
	StatisticsService StatisticsService
}

func NewUserHandler(users UserService, statistics StatisticsService, clock service.Clock) *UserHandler {
	return &UserHandler{base: newBase(clock), UserService: users, StatisticsService: statistics}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var request dto.RegisterRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	u, err := h.UserService.Register(r.Context(), service.RegisterInput{
		Name:     request.Name,
		Email:    request.Email,
		Password: request.Password,
	})
	if err != nil {
		handleError(w, r, err, "register_user")
		return
	}

	logDone("HTTP_OUT: Пользователь зарегистрирован", start, http.StatusCreated, zap.String("user_id", u.UUID.String()))
	responseWithMessage(w, http.StatusCreated, "пользователь зарегистрирован", dto.FromUser(u))
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	responseWithJSON(w, http.StatusOK, dto.FromUser(actor))
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request dto.UpdateProfileRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	updated, err := h.UserService.UpdateProfile(r.Context(), actor, service.UpdateProfileInput{
		Name:            request.Name,
		Password:        request.Password,
		CurrentPassword: request.CurrentPassword,
	})
	if err != nil {
		handleError(w, r, err, "update_profile")
		return
	}
	responseWithMessage(w, http.StatusOK, "профиль обновлён", dto.FromUser(updated))
}

func (h *UserHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	stats, err := h.StatisticsService.UserStatistics(r.Context(), actor)
	if err != nil {
		handleError(w, r, err, "user_statistics")
		return
	}
	responseWithJSON(w, http.StatusOK, dto.FromUserStatistics(stats, h.now()))
}
