package di

import (
	"net/http"

	"todo-backend/application/services"
	"todo-backend/infrastructure/config"
	"todo-backend/infrastructure/persistence/decorators"
	"todo-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	LogLevel    zap.AtomicLevel
	Tracing     *observability.TracerProvider
	Metrics     *observability.Collector
	Store       *decorators.ResilientStore
	TodoService *services.TodoService
	TagService  *services.TagService
	Handler     http.Handler
}
