package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func render(t *testing.T, h *ErrorHandler, err error) (int, ErrorResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/todos", nil), err)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorHandler_Handle(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   ErrorType
		wantMsg    string
	}{
		{"validation", NewValidationError("title is required"), http.StatusBadRequest, ErrorTypeValidation, "title is required"},
		{"not found", NewNotFoundError("Todo id not found"), http.StatusNotFound, ErrorTypeNotFound, "Todo id not found"},
		{"conflict", NewConflictError("todo was modified concurrently"), http.StatusConflict, ErrorTypeConflict, "todo was modified concurrently"},
		{"unavailable", NewUnavailableError("record store", errors.New("dial tcp")), http.StatusServiceUnavailable, ErrorTypeUnavailable, "service 'record store' is unavailable"},
		{"database", NewDatabaseError("insert todo", errors.New("disk full")), http.StatusInternalServerError, ErrorTypeDatabase, "database operation 'insert todo' failed"},
		{"wrapped", fmt.Errorf("service: %w", NewNotFoundError("Tag id not found")), http.StatusNotFound, ErrorTypeNotFound, "Tag id not found"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, ErrorTypeInternal, "An internal error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := render(t, h, tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, string(tt.wantType), body.Type)
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}

func TestErrorHandler_DebugExposesCause(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), true)

	_, body := render(t, h, NewDatabaseError("insert todo", errors.New("disk full")))
	assert.Equal(t, "database operation 'insert todo' failed: disk full", body.Error)

	_, body = render(t, h, errors.New("boom"))
	assert.Equal(t, "boom", body.Error)
}

func TestErrorHandler_NilIsNoop(t *testing.T) {
	rec := httptest.NewRecorder()
	NewErrorHandler(zap.NewNop(), false).Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Empty(t, rec.Body.String())
}

func TestErrorHandler_HandleStatus(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)

	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodPut, "/todos", nil), http.StatusMethodNotAllowed, "Method Not Allowed")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Method Not Allowed", body.Error)
	assert.Equal(t, string(ErrorTypeNotFound), body.Type)
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(NewValidationError("bad")))
	assert.True(t, IsClientError(NewNotFoundError("missing")))
	assert.True(t, IsClientError(fmt.Errorf("wrapped: %w", NewConflictError("stale"))))
	assert.False(t, IsClientError(NewUnavailableError("store", nil)))
	assert.False(t, IsClientError(errors.New("boom")))
	assert.False(t, IsClientError(nil))
}

func TestNewInternalError(t *testing.T) {
	err := NewInternalError("An internal error occurred")
	assert.Equal(t, ErrorTypeInternal, err.Type)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	assert.False(t, IsClientError(err))
}
