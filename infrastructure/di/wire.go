//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"todo-backend/application/ports"
	"todo-backend/application/services"
	"todo-backend/infrastructure/config"
	"todo-backend/infrastructure/persistence/decorators"
	"todo-backend/interfaces/http/rest"
	"todo-backend/interfaces/http/rest/handlers"

	"github.com/google/wire"
)

// StoreSet opens the record store and decorates it
var StoreSet = wire.NewSet(
	ProvideBackingStore,
	ProvideStore,
	wire.Bind(new(ports.Store), new(*decorators.ResilientStore)),
)

// ObservabilitySet provides logging, tracing and metrics
var ObservabilitySet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideTracerProvider,
	ProvideTracer,
	ProvideMetrics,
)

// HTTPSet provides the services, handlers and router
var HTTPSet = wire.NewSet(
	services.NewTodoService,
	services.NewTagService,
	ProvideErrorHandler,
	handlers.NewTodoHandler,
	handlers.NewTagHandler,
	ProvideRouterConfig,
	rest.NewRouter,
	ProvideHTTPHandler,
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ObservabilitySet,
	StoreSet,
	HTTPSet,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container. The returned cleanup
// closes the store and flushes traces.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil // Wire will replace this
}
