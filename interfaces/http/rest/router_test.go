package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"todo-backend/application/ports"
	"todo-backend/application/services"
	"todo-backend/infrastructure/persistence/decorators"
	"todo-backend/infrastructure/persistence/memory"
	"todo-backend/interfaces/http/rest/handlers"
	pkgerrors "todo-backend/pkg/errors"
	"todo-backend/pkg/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

type testServer struct {
	handler http.Handler
	store   *memory.Store
	metrics *observability.Collector
}

func newTestServer(t *testing.T, breaker decorators.Config) *testServer {
	t.Helper()

	logger := zap.NewNop()
	inner := memory.NewStore()
	metrics := observability.NewCollector("todo_test")
	var store ports.Store = decorators.NewResilientStore(inner, breaker, noop.NewTracerProvider().Tracer("test"), metrics, logger)

	errorHandler := pkgerrors.NewErrorHandler(logger, false)
	router := NewRouter(
		handlers.NewTodoHandler(services.NewTodoService(store, metrics, logger), errorHandler, logger),
		handlers.NewTagHandler(services.NewTagService(store, metrics, logger), errorHandler, logger),
		store,
		metrics,
		errorHandler,
		RouterConfig{EnableCORS: true},
		logger,
	)

	return &testServer{handler: router.Setup(), store: inner, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) createTodo(t *testing.T, body string) handlers.TodoResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/todos", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[handlers.TodoResponse](t, rec)
}

func (s *testServer) createTag(t *testing.T, name string) handlers.TagResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/tags", `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[handlers.TagResponse](t, rec)
}

func TestTodos_CreateWithTitleOnly(t *testing.T) {
	srv := newTestServer(t, decorators.DefaultConfig())

	rec := srv.do(t, http.MethodPost, "/todos", `{"title":"walk the dog"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, "walk the dog", raw["title"])
	assert.NotEmpty(t, raw["id"])
	assert.NotContains(t, raw, "order")
	assert.NotContains(t, raw, "completed")
	assert.NotContains(t, raw, "tags")

	got := srv.do(t, http.MethodGet, "/todos/"+raw["id"].(string), "")
	require.Equal(t, http.StatusOK, got.Code)
	assert.JSONEq(t, rec.Body.String(), got.Body.String())
}

func TestTodos_CreateValidation(t *testing.T) {
	srv := newTestServer(t, decorators.DefaultConfig())

	tests := []struct {
		name string
		body string
	}{
		{name: "missing title", body: `{"order":1}`},
		{name: "empty title", body: `{"title":""}`},
		{name: "unknown field", body: `{"title":"x","priority":3}`},
		{name: "wrong type", body: `{"title":5}`},
		{name: "malformed", body: `{"title":`},
		{name: "empty body", body: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, http.MethodPost, "/todos", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode[pkgerrors.ErrorResponse](t, rec)
			assert.Equal(t, "VALIDATION", body.Type)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestTodos_ListAndDeleteAll(t *testing.T) {
	srv := newTestServer(t, decorators.DefaultConfig())

	rec := srv.do(t, http.MethodGet, "/todos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	first := srv.createTodo(t, `{"title":"one","order":1}`)
	second := srv.createTodo(t, `{"title":"two","order":2}`)

	list := decode[[]handlers.TodoResponse](t, srv.do(t, http.MethodGet, "/todos/", ""))
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	rec = srv.do(t, http.MethodDelete, "/todos", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/todos", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestTodos_GetMissing(t *testing.T) {
	srv := newTestServer(t, decorators.DefaultConfig())

	rec := srv.do(t, http.MethodGet, "/todos/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[pkgerrors.ErrorResponse](t, rec)
	assert.Equal(t, "Todo id not found", body.Error)
	assert.Equal(t, "NOT_FOUND", body.Type)
	assert.NotEmpty(t, body.RequestID)
}

func TestTodos_PatchChangesOnlyGivenFields(t *testing.T) {
	srv := newTestServer(t, decorators.DefaultConfig())
	todo := srv.createTodo(t, `{"title":"draft","order":4}`)

	rec := srv.do(t, http.MethodPatch, "/todos/"+todo.ID, `{"completed":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[handlers.TodoResponse](t, rec)
	assert.Equal(t, "draft", got.Title)
	require.NotNil(t, got.Order)
	assert.Equal(t, 4, *got.Order)
	require.NotNil(t, got.Completed)
	assert.True(t, *got.Completed)

	rec = srv.do(t, http.MethodPatch, "/todos/"+todo.ID, `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPatch, "/todos/missing", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTodos_DeleteOne(t *testing.T) {
	srv := newTestServer(t, decorators.DefaultConfig())
	todo := srv.createTodo(t, `{"title":"gone soon"}`)

	rec := srv.do(t, http.MethodDelete, "/todos/"+todo.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/todos/"+todo.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodDelete, "/todos/"+todo.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTodoTags_AttachListDetach(t *testing.T) {
	srv := newTestServer(t, decorators.DefaultConfig())
	todo := srv.createTodo(t, `{"title":"shop"}`)
	tag := srv.createTag(t, "errands")

	rec := srv.do(t, http.MethodPost, "/todos/"+todo.ID+"/tags", `{"id":"`+tag.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := decode[handlers.TodoDocument](t, rec)
	assert.Equal(t, []string{tag.ID}, doc.Tags)

	ids := decode[[]string](t, srv.do(t, http.MethodGet, "/todos/"+todo.ID+"/tags", ""))
	assert.Equal(t, []string{tag.ID}, ids)

	gotTag := decode[handlers.TagResponse](t, srv.do(t, http.MethodGet, "/tags/"+tag.ID, ""))
	assert.Equal(t, []string{todo.ID}, gotTag.Todos)

	filtered := decode[[]handlers.TodoResponse](t, srv.do(t, http.MethodGet, "/todos?tag="+tag.ID, ""))
	require.Len(t, filtered, 1)
	assert.Equal(t, todo.ID, filtered[0].ID)

	rec = srv.do(t, http.MethodDelete, "/todos/"+todo.ID+"/tags/"+tag.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc = decode[handlers.TodoDocument](t, rec)
	assert.Empty(t, doc.Tags)

	gotTag = decode[handlers.TagResponse](t, srv.do(t, http.MethodGet, "/tags/"+tag.ID, ""))
	assert.Empty(t, gotTag.Todos)
}

func TestTodoTags_DetachAbsentIsNoop(t *testing.T) {
	srv := newTestServer(t, decorators.DefaultConfig())
	todo := srv.createTodo(t, `{"title":"read"}`)

	rec := srv.do(t, http.MethodDelete, "/todos/"+todo.ID+"/tags/not-attached", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[handlers.TodoDocument](t, rec)
	assert.Equal(t, todo.ID, doc.ID)
	assert.Equal(t, []string{}, doc.Tags)
}

func TestTodoTags_AttachMissingTag(t *testing.T) {
	srv := newTestServer(t, decorators.DefaultConfig())
	todo := srv.createTodo(t, `{"title":"read"}`)

	rec := srv.do(t, http.MethodPost, "/todos/"+todo.ID+"/tags", `{"id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Tag id not found", decode[pkgerrors.ErrorResponse](t, rec).Error)

	rec = srv.do(t, http.MethodPost, "/todos/"+todo.ID+"/tags", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTodos_FilterWithoutMatches(t *testing.T) {
	srv := newTestServer(t, decorators.DefaultConfig())
	srv.createTodo(t, `{"title":"untagged"}`)

	rec := srv.do(t, http.MethodGet, "/todos?tag=nothing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestTags_RoundTrip(t *testing.T) {
	srv := newTestServer(t, decorators.DefaultConfig())
	tag := srv.createTag(t, "work")
	assert.Equal(t, "work", tag.Name)
	assert.Equal(t, []string{}, tag.Todos)

	rec := srv.do(t, http.MethodPatch, "/tags/"+tag.ID, `{"name":"office"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "office", decode[handlers.TagResponse](t, rec).Name)

	tags := decode[[]handlers.TagResponse](t, srv.do(t, http.MethodGet, "/tags", ""))
	require.Len(t, tags, 1)
	assert.Equal(t, "office", tags[0].Name)

	rec = srv.do(t, http.MethodGet, "/tags/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Tag id not found", decode[pkgerrors.ErrorResponse](t, rec).Error)

	rec = srv.do(t, http.MethodPost, "/tags", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_UnknownRouteAndMethod(t *testing.T) {
	srv := newTestServer(t, decorators.DefaultConfig())

	rec := srv.do(t, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = srv.do(t, http.MethodPut, "/todos", `{"title":"x"}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_StoreUnavailable(t *testing.T) {
	cfg := decorators.DefaultConfig()
	cfg.MinRequests = 2
	cfg.FailureRatio = 0.5
	cfg.OpenTimeout = time.Minute
	srv := newTestServer(t, cfg)
	require.NoError(t, srv.store.Close())

	for i := 0; i < 3; i++ {
		rec := srv.do(t, http.MethodGet, "/todos", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "UNAVAILABLE", decode[pkgerrors.ErrorResponse](t, rec).Type)
	}

	rec := srv.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = srv.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	srv := newTestServer(t, decorators.DefaultConfig())

	rec := srv.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())

	rec = srv.do(t, http.MethodGet, "/doc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[map[string]any](t, rec)
	assert.Equal(t, "2.0", doc["swagger"])
	assert.Contains(t, doc["paths"], "/todos/{id}/tags")

	srv.createTodo(t, `{"title":"counted"}`)
	rec = srv.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "todo_test_todos_created_total 1"), rec.Body.String())
}

func TestRouter_CORSPreflight(t *testing.T) {
	srv := newTestServer(t, decorators.DefaultConfig())

	req := httptest.NewRequest(http.MethodOptions, "/todos", nil)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
}
