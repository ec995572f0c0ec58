package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"todo-backend/domain/core/entities"
	pkgerrors "todo-backend/pkg/errors"
	"todo-backend/pkg/utils"

	"go.uber.org/zap"
)

// maxBodyBytes caps request payloads; todos and tags are small documents.
const maxBodyBytes = 1 << 20

// TodoResponse is the public projection of a todo
type TodoResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Order     *int   `json:"order,omitempty"`
	Completed *bool  `json:"completed,omitempty"`
}

// TodoDocument is a todo together with its tag ids, returned by the tag routes
type TodoDocument struct {
	TodoResponse
	Tags []string `json:"tags"`
}

// TagResponse is the public projection of a tag
type TagResponse struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Todos []string `json:"todos"`
}

func toTodoResponse(todo *entities.Todo) TodoResponse {
	return TodoResponse{
		ID:        todo.ID,
		Title:     todo.Title,
		Order:     todo.Order,
		Completed: todo.Completed,
	}
}

func toTodoResponses(todos []*entities.Todo) []TodoResponse {
	out := make([]TodoResponse, 0, len(todos))
	for _, todo := range todos {
		out = append(out, toTodoResponse(todo))
	}
	return out
}

func toTodoDocument(todo *entities.Todo) TodoDocument {
	return TodoDocument{TodoResponse: toTodoResponse(todo), Tags: nonNil(todo.Tags)}
}

func toTagResponse(tag *entities.Tag) TagResponse {
	return TagResponse{ID: tag.ID, Name: tag.Name, Todos: nonNil(tag.Todos)}
}

func toTagResponses(tags []*entities.Tag) []TagResponse {
	out := make([]TagResponse, 0, len(tags))
	for _, tag := range tags {
		out = append(out, toTagResponse(tag))
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// decodeAndValidate reads a JSON body into dst, rejecting unknown fields,
// trailing data and anything the validate tags refuse.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return pkgerrors.NewValidationError("Request body is required")
		}
		return pkgerrors.NewValidationError("Invalid request body: " + err.Error())
	}
	if dec.More() {
		return pkgerrors.NewValidationError("Invalid request body: unexpected data after JSON object")
	}

	if err := utils.ValidateStruct(dst); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
