package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_RoutePatternAndLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	router := chi.NewRouter()
	router.Use(Logger(zap.New(core)))
	router.Get("/todos/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	router.Get("/tags/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Get("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	tests := []struct {
		path      string
		wantRoute string
		wantLevel zapcore.Level
		wantCode  int64
	}{
		{path: "/todos/abc", wantRoute: "/todos/{id}", wantLevel: zapcore.InfoLevel, wantCode: http.StatusOK},
		{path: "/tags/missing", wantRoute: "/tags/{id}", wantLevel: zapcore.WarnLevel, wantCode: http.StatusNotFound},
		{path: "/broken", wantRoute: "/broken", wantLevel: zapcore.ErrorLevel, wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			logs.TakeAll()
			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			entries := logs.TakeAll()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0].Level)

			fields := entries[0].ContextMap()
			assert.Equal(t, tt.wantRoute, fields["route"])
			assert.Equal(t, tt.path, fields["path"])
			assert.Equal(t, tt.wantCode, fields["status"])
		})
	}
}

func TestLogger_TagFilter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	router := chi.NewRouter()
	router.Use(Logger(zap.New(core)))
	router.Get("/todos", func(w http.ResponseWriter, r *http.Request) {})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/todos?tag=t1", nil))

	entries := logs.TakeAll()
	require.Len(t, entries, 1)
	assert.Equal(t, "t1", entries[0].ContextMap()["tag_filter"])
}
