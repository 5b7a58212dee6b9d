package handlers

import (
	"net/http"

	"taskManager/internal/handlers/dto"
	"taskManager/internal/service"
)

type CategoryHandler struct {
	base
	CategoryService CategoryService
}

func NewCategoryHandler(categories CategoryService, clock service.Clock) *CategoryHandler {
	return &CategoryHandler{base: newBase(clock), CategoryService: categories}
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	categories, err := h.CategoryService.ListCategories(r.Context(), actor)
	if err != nil {
		handleError(w, r, err, "list_categories")
		return
	}

	items := make([]dto.CategoryResponse, len(categories))
	for i, c := range categories {
		items[i] = dto.FromCategory(c)
	}
	responseWithJSON(w, http.StatusOK, items)
}

func (h *CategoryHandler) PostCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request dto.CategoryRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	created, err := h.CategoryService.CreateCategory(r.Context(), actor, categoryInput(request))
	if err != nil {
		handleError(w, r, err, "create_category")
		return
	}
	responseWithMessage(w, http.StatusCreated, "категория создана", dto.FromCategory(created))
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	c, err := h.CategoryService.GetCategory(r.Context(), actor, id)
	if err != nil {
		handleError(w, r, err, "get_category")
		return
	}
	responseWithJSON(w, http.StatusOK, dto.FromCategory(c))
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var request dto.CategoryRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	updated, err := h.CategoryService.UpdateCategory(r.Context(), actor, id, categoryInput(request))
	if err != nil {
		handleError(w, r, err, "update_category")
		return
	}
	responseWithMessage(w, http.StatusOK, "категория обновлена", dto.FromCategory(updated))
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.CategoryService.DeleteCategory(r.Context(), actor, id); err != nil {
		handleError(w, r, err, "delete_category")
		return
	}
	responseWithMessage(w, http.StatusOK, "категория удалена", nil)
}

// CategoryTasks поддерживает те же параметры фильтра, что и GET /tasks.
func (h *CategoryHandler) CategoryTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	filter, errs := parseTaskFilter(r.URL.Query())
	if len(errs) > 0 {
		responseWithError(w, http.StatusUnprocessableEntity, service.CodeValidation, "некорректные параметры фильтра", errs)
		return
	}

	page, err := h.CategoryService.CategoryTasks(r.Context(), actor, id, filter)
	if err != nil {
		handleError(w, r, err, "category_tasks")
		return
	}
	responseWithJSON(w, http.StatusOK, dto.FromTaskPage(page, h.now()))
}

func categoryInput(request dto.CategoryRequest) service.CategoryInput {
	return service.CategoryInput{
		Name:  request.Name,
		Color: request.Color,
		Icon:  request.Icon,
		Type:  request.Type,
	}
}

