package handlers

import (
	"net/http"

	"todo-backend/application/services"
	"todo-backend/domain/core/entities"
	pkgerrors "todo-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TagHandler handles tag-related HTTP requests
type TagHandler struct {
	tags   *services.TagService
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewTagHandler creates a new tag handler
func NewTagHandler(tags *services.TagService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *TagHandler {
	return &TagHandler{
		tags:   tags,
		errors: errorHandler,
		logger: logger,
	}
}

// CreateTagRequest represents the request body for creating a tag
type CreateTagRequest struct {
	Name string `json:"name" validate:"required,min=1"`
}

// UpdateTagRequest represents the request body for a partial tag update
type UpdateTagRequest struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1"`
}

// ListTags handles GET /tags
// @Summary List tags
// @Tags tags
// @Produce json
// @Success 200 {array} handlers.TagResponse
// @Router /tags [get]
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.ListTags(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toTagResponses(tags))
}

// CreateTag handles POST /tags
// @Summary Create a tag
// @Tags tags
// @Accept json
// @Produce json
// @Param request body handlers.CreateTagRequest true "Tag to create"
// @Success 200 {object} handlers.TagResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /tags [post]
func (h *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req CreateTagRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	tag, err := h.tags.CreateTag(r.Context(), req.Name)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toTagResponse(tag))
}

// GetTag handles GET /tags/{id}
// @Summary Get a tag
// @Tags tags
// @Produce json
// @Param id path string true "Tag id"
// @Success 200 {object} handlers.TagResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tags/{id} [get]
func (h *TagHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	tag, err := h.tags.GetTag(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toTagResponse(tag))
}

// UpdateTag handles PATCH /tags/{id}
// @Summary Update a tag
// @Tags tags
// @Accept json
// @Produce json
// @Param id path string true "Tag id"
// @Param request body handlers.UpdateTagRequest true "Fields to change"
// @Success 200 {object} handlers.TagResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tags/{id} [patch]
func (h *TagHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	var req UpdateTagRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	tag, err := h.tags.UpdateTag(r.Context(), chi.URLParam(r, "id"), entities.TagPatch{Name: req.Name})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toTagResponse(tag))
}
