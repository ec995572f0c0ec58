package rest

import (
	"context"
	"net/http"
	"time"

	"todo-backend/application/ports"
	"todo-backend/docs"
	"todo-backend/interfaces/http/rest/handlers"
	"todo-backend/interfaces/http/rest/middleware"
	pkgerrors "todo-backend/pkg/errors"
	"todo-backend/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// readyTimeout bounds the store ping behind /ready.
const readyTimeout = 2 * time.Second

// RouterConfig holds the HTTP settings that come from configuration
type RouterConfig struct {
	EnableCORS     bool
	AllowedOrigins []string
}

// Router creates and configures the HTTP router
type Router struct {
	todoHandler  *handlers.TodoHandler
	tagHandler   *handlers.TagHandler
	store        ports.Store
	metrics      *observability.Collector
	errorHandler *pkgerrors.ErrorHandler
	config       RouterConfig
	logger       *zap.Logger
}

// NewRouter creates a new router instance. metrics may be nil, in which case
// /metrics is not served.
func NewRouter(
	todoHandler *handlers.TodoHandler,
	tagHandler *handlers.TagHandler,
	store ports.Store,
	metrics *observability.Collector,
	errorHandler *pkgerrors.ErrorHandler,
	config RouterConfig,
	logger *zap.Logger,
) *Router {
	return &Router{
		todoHandler:  todoHandler,
		tagHandler:   tagHandler,
		store:        store,
		metrics:      metrics,
		errorHandler: errorHandler,
		config:       config,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.metrics != nil {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.config.EnableCORS {
		origins := rt.config.AllowedOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.HandleStatus(w, r, http.StatusNotFound, "Not Found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.HandleStatus(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Get("/doc", rt.apiDoc)
	if rt.metrics != nil {
		router.Handle("/metrics", rt.metrics.Handler())
	}

	router.Route("/todos", func(r chi.Router) {
		r.Get("/", rt.todoHandler.ListTodos)
		r.Post("/", rt.todoHandler.CreateTodo)
		r.Delete("/", rt.todoHandler.DeleteAllTodos)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", rt.todoHandler.GetTodo)
			r.Patch("/", rt.todoHandler.UpdateTodo)
			r.Delete("/", rt.todoHandler.DeleteTodo)

			r.Route("/tags", func(r chi.Router) {
				r.Get("/", rt.todoHandler.ListTodoTags)
				r.Post("/", rt.todoHandler.AddTag)
				r.Delete("/{tagID}", rt.todoHandler.RemoveTag)
			})
		})
	})

	router.Route("/tags", func(r chi.Router) {
		r.Get("/", rt.tagHandler.ListTags)
		r.Post("/", rt.tagHandler.CreateTag)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", rt.tagHandler.GetTag)
			r.Patch("/", rt.tagHandler.UpdateTag)
		})
	})

	return router
}

// healthCheck handles liveness requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports ready only while the record store answers a ping.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), readyTimeout)
	defer cancel()

	if err := rt.store.Ping(ctx); err != nil {
		rt.logger.Warn("Readiness check failed", zap.Error(err))
		rt.errorHandler.HandleStatus(w, req, http.StatusServiceUnavailable, "Record store unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// apiDoc serves the registered OpenAPI document
func (rt *Router) apiDoc(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(docs.SwaggerInfo.ReadDoc()))
}
