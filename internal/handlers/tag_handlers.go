package handlers

import (
	"net/http"
	"time"

	"taskManager/internal/handlers/dto"
	"taskManager/internal/models/tag"
	"taskManager/internal/service"

	"go.uber.org/zap"
)

type TagHandler struct {
	TagService TagService
}

func NewTagHandler(tags TagService) *TagHandler {
	return &TagHandler{TagService: tags}
}

func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	tags, err := h.TagService.ListTags(r.Context(), actor)
	if err != nil {
		handleError(w, r, err, "list_tags")
		return
	}
	responseWithJSON(w, http.StatusOK, tagList(tags))
}

func (h *TagHandler) PostTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request dto.TagRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	created, err := h.TagService.CreateTag(r.Context(), actor, service.TagInput{Name: request.Name, Color: request.Color})
	if err != nil {
		handleError(w, r, err, "create_tag")
		return
	}
	responseWithMessage(w, http.StatusCreated, "тег создан", dto.FromTag(created))
}

func (h *TagHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	t, err := h.TagService.GetTag(r.Context(), actor, id)
	if err != nil {
		handleError(w, r, err, "get_tag")
		return
	}
	responseWithJSON(w, http.StatusOK, dto.FromTag(t))
}

func (h *TagHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var request dto.TagRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	updated, err := h.TagService.UpdateTag(r.Context(), actor, id, service.TagInput{Name: request.Name, Color: request.Color})
	if err != nil {
		handleError(w, r, err, "update_tag")
		return
	}
	responseWithMessage(w, http.StatusOK, "тег обновлён", dto.FromTag(updated))
}

func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.TagService.DeleteTag(r.Context(), actor, id); err != nil {
		handleError(w, r, err, "delete_tag")
		return
	}
	responseWithMessage(w, http.StatusOK, "тег удалён", nil)
}

func (h *TagHandler) MergeTags(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request dto.MergeTagsRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	merged, err := h.TagService.MergeTags(r.Context(), actor, request.SourceID, request.TargetID)
	if err != nil {
		handleError(w, r, err, "merge_tags")
		return
	}

	logDone("HTTP_OUT: Теги объединены", start, http.StatusOK,
		zap.String("source_id", request.SourceID.String()),
		zap.String("target_id", request.TargetID.String()))
	responseWithMessage(w, http.StatusOK, "теги объединены", dto.FromTag(merged))
}

func tagList(tags []*tag.Tag) []dto.TagResponse {
	items := make([]dto.TagResponse, len(tags))
	for i, t := range tags {
		items[i] = dto.FromTag(t)
	}
	return items
}
