package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	"taskManager/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

// decodeJSON проверяет Content-Type и читает тело; при ошибке ответ уже записан.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, codeMediaType, "Content-Type должен быть application/json", nil)
		return false
	}

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()

	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, codeBadRequest, "неверное тело запроса", nil)
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil || id == uuid.Nil {
		logger.Warn("HTTP: Неверное значение id",
			zap.String("id", idParam),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, codeBadRequest, "некорректный id", map[string]any{"id": "ожидается UUID"})
		return uuid.Nil, false
	}
	return id, true
}

// parseTaskFilter собирает фильтр из query-параметров.
// Нераспознанные status и date_filter игнорируются; неверные id, приоритет, флаги и числа дают ошибку поля.
func parseTaskFilter(query url.Values) (task.Filter, map[string]any) {
	errs := map[string]any{}
	filter := task.Filter{
		Search:        strings.TrimSpace(query.Get("search")),
		Status:        task.StatusFilter(query.Get("status")),
		DateFilter:    task.DateFilter(query.Get("date_filter")),
		SortField:     query.Get("sort"),
		SortDirection: task.SortDirection(strings.ToLower(query.Get("direction"))),
	}

	if raw := query.Get("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			errs["category"] = "ожидается UUID"
		} else {
			filter.CategoryID = &id
		}
	}
	filter.NoCategory = parseBool(query.Get("no_category"), "no_category", errs)
	filter.Categorized = parseBool(query.Get("categorized"), "categorized", errs)
	if raw := query.Get("priority"); raw != "" {
		p, err := task.ParsePriority(raw)
		if err != nil {
			errs["priority"] = "допустимо low, medium, high, urgent или 1..4"
		} else {
			filter.Priority = p
		}
	}
	if raw := query.Get("tag"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			errs["tag"] = "ожидается UUID"
		} else {
			filter.TagID = &id
		}
	}

	filter.Page = parseInt(query.Get("page"), "page", errs)
	filter.PerPage = parseInt(query.Get("per_page"), "per_page", errs)

	return filter, errs
}

func parseBool(raw, field string, errs map[string]any) bool {
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		errs[field] = "ожидается true или false"
		return false
	}
	return v
}

func parseInt(raw, field string, errs map[string]any) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		errs[field] = "ожидается неотрицательное число"
		return 0
	}
	return n
}

func parsePaging(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	errs := map[string]any{}
	page := parseInt(r.URL.Query().Get("page"), "page", errs)
	perPage := parseInt(r.URL.Query().Get("per_page"), "per_page", errs)
	if len(errs) > 0 {
		responseWithError(w, http.StatusUnprocessableEntity, service.CodeValidation, "некорректные параметры страницы", errs)
		return 0, 0, false
	}
	return page, perPage, true
}

// parseOptionalTime принимает RFC3339 или дату YYYY-MM-DD (полночь в loc).
func parseOptionalTime(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, raw, loc)
}
