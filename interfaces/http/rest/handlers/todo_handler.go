package handlers

import (
	"net/http"

	"todo-backend/application/services"
	"todo-backend/domain/core/entities"
	pkgerrors "todo-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TodoHandler handles todo-related HTTP requests
type TodoHandler struct {
	todos  *services.TodoService
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewTodoHandler creates a new todo handler
func NewTodoHandler(todos *services.TodoService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *TodoHandler {
	return &TodoHandler{
		todos:  todos,
		errors: errorHandler,
		logger: logger,
	}
}

// CreateTodoRequest represents the request body for creating a todo
type CreateTodoRequest struct {
	Title     string `json:"title" validate:"required,min=1"`
	Order     *int   `json:"order,omitempty"`
	Completed *bool  `json:"completed,omitempty"`
}

// UpdateTodoRequest represents the request body for a partial todo update.
// Absent fields are left untouched.
type UpdateTodoRequest struct {
	Title     *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Order     *int    `json:"order,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// AddTagRequest represents the request body for attaching a tag
type AddTagRequest struct {
	ID string `json:"id" validate:"required"`
}

// ListTodos handles GET /todos
// @Summary List todos
// @Description Lists every todo, or only those carrying the given tag
// @Tags todos
// @Produce json
// @Param tag query string false "Tag id filter"
// @Success 200 {array} handlers.TodoResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /todos [get]
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.todos.ListTodos(r.Context(), r.URL.Query().Get("tag"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toTodoResponses(todos))
}

// CreateTodo handles POST /todos
// @Summary Create a todo
// @Tags todos
// @Accept json
// @Produce json
// @Param request body handlers.CreateTodoRequest true "Todo to create"
// @Success 200 {object} handlers.TodoResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /todos [post]
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req CreateTodoRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	todo, err := h.todos.CreateTodo(r.Context(), services.CreateTodoParams{
		Title:     req.Title,
		Order:     req.Order,
		Completed: req.Completed,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toTodoResponse(todo))
}

// DeleteAllTodos handles DELETE /todos
// @Summary Delete every todo
// @Description Removes all todos and clears every tag's todo list. Responds once the removal has completed.
// @Tags todos
// @Success 200
// @Router /todos [delete]
func (h *TodoHandler) DeleteAllTodos(w http.ResponseWriter, r *http.Request) {
	if _, err := h.todos.DeleteAllTodos(r.Context()); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetTodo handles GET /todos/{id}
// @Summary Get a todo
// @Tags todos
// @Produce json
// @Param id path string true "Todo id"
// @Success 200 {object} handlers.TodoResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /todos/{id} [get]
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	todo, err := h.todos.GetTodo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toTodoResponse(todo))
}

// UpdateTodo handles PATCH /todos/{id}
// @Summary Update a todo
// @Description Replaces only the fields present in the body
// @Tags todos
// @Accept json
// @Produce json
// @Param id path string true "Todo id"
// @Param request body handlers.UpdateTodoRequest true "Fields to change"
// @Success 200 {object} handlers.TodoResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /todos/{id} [patch]
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	var req UpdateTodoRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	todo, err := h.todos.UpdateTodo(r.Context(), chi.URLParam(r, "id"), entities.TodoPatch{
		Title:     req.Title,
		Order:     req.Order,
		Completed: req.Completed,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toTodoResponse(todo))
}

// DeleteTodo handles DELETE /todos/{id}
// @Summary Delete a todo
// @Tags todos
// @Param id path string true "Todo id"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /todos/{id} [delete]
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := h.todos.DeleteTodo(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTodoTags handles GET /todos/{id}/tags
// @Summary List the tag ids of a todo
// @Tags todos
// @Produce json
// @Param id path string true "Todo id"
// @Success 200 {array} string
// @Failure 404 {object} errors.ErrorResponse
// @Router /todos/{id}/tags [get]
func (h *TodoHandler) ListTodoTags(w http.ResponseWriter, r *http.Request) {
	ids, err := h.todos.ListTodoTags(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, nonNil(ids))
}

// AddTag handles POST /todos/{id}/tags
// @Summary Attach a tag to a todo
// @Tags todos
// @Accept json
// @Produce json
// @Param id path string true "Todo id"
// @Param request body handlers.AddTagRequest true "Tag to attach"
// @Success 200 {object} handlers.TodoDocument
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /todos/{id}/tags [post]
func (h *TodoHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	var req AddTagRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	todo, err := h.todos.AddTag(r.Context(), chi.URLParam(r, "id"), req.ID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toTodoDocument(todo))
}

// RemoveTag handles DELETE /todos/{id}/tags/{tagID}
// @Summary Detach a tag from a todo
// @Description Removes the first occurrence of the tag. Removing a tag the todo does not carry succeeds.
// @Tags todos
// @Produce json
// @Param id path string true "Todo id"
// @Param tag_id path string true "Tag id"
// @Success 200 {object} handlers.TodoDocument
// @Failure 404 {object} errors.ErrorResponse
// @Router /todos/{id}/tags/{tag_id} [delete]
func (h *TodoHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	todo, err := h.todos.RemoveTag(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "tagID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, toTodoDocument(todo))
}
