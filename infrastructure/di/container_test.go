package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"todo-backend/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeContainer_Memory(t *testing.T) {
	cfg := config.Default()
	cfg.EnableMetrics = true

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "closed", container.Store.BreakerState())
	require.NotNil(t, container.Metrics)

	for _, path := range []string{"/health", "/ready", "/todos", "/tags", "/metrics"} {
		rec := httptest.NewRecorder()
		container.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestInitializeContainer_SQLite(t *testing.T) {
	cfg := config.Default()
	cfg.StoreDriver = config.DriverSQLite
	cfg.SQLitePath = t.TempDir() + "/todos.db"

	container, cleanup, err := InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, container.Metrics)
	require.NoError(t, container.Store.Ping(context.Background()))
}

func TestInitializeContainer_BadLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "chatty"

	_, _, err := InitializeContainer(context.Background(), cfg)
	assert.Error(t, err)
}
