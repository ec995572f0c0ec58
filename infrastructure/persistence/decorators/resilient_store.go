// Package decorators wraps a ports.Store with cross-cutting behavior: a
// per-call deadline, a circuit breaker, tracing spans and Prometheus metrics.
package decorators

import (
	"context"
	"errors"
	"strings"
	"time"

	"todo-backend/application/ports"
	"todo-backend/domain/core/entities"
	pkgerrors "todo-backend/pkg/errors"
	"todo-backend/pkg/observability"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Config holds the decorator settings. Interval is the period after which a
// closed breaker clears its counts; zero keeps them for the life of the process.
type Config struct {
	Name         string
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
	Interval     time.Duration
	OpenTimeout  time.Duration
	MaxHalfOpen  uint32
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		Name:         "store",
		Timeout:      5 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.8,
		Interval:     30 * time.Second,
		OpenTimeout:  30 * time.Second,
		MaxHalfOpen:  1,
	}
}

// ResilientStore decorates every store call. Failures that say something
// about the request (not found, validation, conflict) count as successes for
// the breaker; only store-side failures can trip it.
type ResilientStore struct {
	inner   ports.Store
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
	metrics *observability.Collector
	timeout time.Duration
	logger  *zap.Logger
}

// NewResilientStore wraps inner. metrics may be nil.
func NewResilientStore(
	inner ports.Store,
	config Config,
	tracer trace.Tracer,
	metrics *observability.Collector,
	logger *zap.Logger,
) *ResilientStore {
	s := &ResilientStore{
		inner:   inner,
		tracer:  tracer,
		metrics: metrics,
		timeout: config.Timeout,
		logger:  logger,
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxHalfOpen,
		Interval:    config.Interval,
		Timeout:     config.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if metrics != nil {
				metrics.BreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
		IsSuccessful: isSuccessful,
	})

	return s
}

// isSuccessful decides what the breaker counts as a store failure. Request
// problems and callers that went away are not the store's fault.
func isSuccessful(err error) bool {
	return err == nil || pkgerrors.IsClientError(err) || errors.Is(err, context.Canceled)
}

// BreakerState reports the current breaker state ("closed", "half-open", "open").
func (s *ResilientStore) BreakerState() string {
	return s.breaker.State().String()
}

func (s *ResilientStore) Todos() ports.TodoRepository         { return &todoRepository{s: s} }
func (s *ResilientStore) Tags() ports.TagRepository           { return &tagRepository{s: s} }
func (s *ResilientStore) Relations() ports.RelationRepository { return &relationRepository{s: s} }

func (s *ResilientStore) Ping(ctx context.Context) error {
	_, err := call(ctx, s, "ping", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.inner.Ping(ctx)
	})
	return err
}

func (s *ResilientStore) Close() error {
	return s.inner.Close()
}

// call runs fn under the deadline, breaker, span and metrics.
func call[T any](ctx context.Context, s *ResilientStore, operation string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "store."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.operation", operation)),
	)
	defer span.End()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var result T
	_, err := s.breaker.Execute(func() (interface{}, error) {
		var err error
		result, err = fn(ctx)
		return nil, err
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Warn("Store call rejected by circuit breaker",
			zap.String("operation", operation),
			zap.Error(err),
		)
		err = pkgerrors.NewUnavailableError("record store", err)
	}

	s.record(operation, start, err)
	if err != nil {
		span.RecordError(err)
		if !pkgerrors.IsClientError(err) {
			span.SetStatus(codes.Error, err.Error())
		}
		var zero T
		return zero, err
	}
	return result, nil
}

func (s *ResilientStore) record(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		status = strings.ToLower(string(appErr.Type))
	} else if err != nil {
		status = "error"
	}
	s.metrics.StoreOperations.WithLabelValues(operation, status).Inc()
	s.metrics.StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

type todoRepository struct {
	s *ResilientStore
}

func (r *todoRepository) Create(ctx context.Context, todo *entities.Todo) error {
	_, err := call(ctx, r.s, "todos.create", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.s.inner.Todos().Create(ctx, todo)
	})
	return err
}

func (r *todoRepository) GetByID(ctx context.Context, id string) (*entities.Todo, error) {
	return call(ctx, r.s, "todos.get", func(ctx context.Context) (*entities.Todo, error) {
		return r.s.inner.Todos().GetByID(ctx, id)
	})
}

func (r *todoRepository) List(ctx context.Context, filter ports.TodoFilter) ([]*entities.Todo, error) {
	return call(ctx, r.s, "todos.list", func(ctx context.Context) ([]*entities.Todo, error) {
		return r.s.inner.Todos().List(ctx, filter)
	})
}

func (r *todoRepository) Update(ctx context.Context, todo *entities.Todo) error {
	_, err := call(ctx, r.s, "todos.update", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.s.inner.Todos().Update(ctx, todo)
	})
	return err
}

func (r *todoRepository) Delete(ctx context.Context, id string) (*entities.Todo, error) {
	return call(ctx, r.s, "todos.delete", func(ctx context.Context) (*entities.Todo, error) {
		return r.s.inner.Todos().Delete(ctx, id)
	})
}

func (r *todoRepository) DeleteAll(ctx context.Context) (int, error) {
	return call(ctx, r.s, "todos.delete_all", func(ctx context.Context) (int, error) {
		return r.s.inner.Todos().DeleteAll(ctx)
	})
}

type tagRepository struct {
	s *ResilientStore
}

func (r *tagRepository) Create(ctx context.Context, tag *entities.Tag) error {
	_, err := call(ctx, r.s, "tags.create", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.s.inner.Tags().Create(ctx, tag)
	})
	return err
}

func (r *tagRepository) GetByID(ctx context.Context, id string) (*entities.Tag, error) {
	return call(ctx, r.s, "tags.get", func(ctx context.Context) (*entities.Tag, error) {
		return r.s.inner.Tags().GetByID(ctx, id)
	})
}

func (r *tagRepository) List(ctx context.Context) ([]*entities.Tag, error) {
	return call(ctx, r.s, "tags.list", func(ctx context.Context) ([]*entities.Tag, error) {
		return r.s.inner.Tags().List(ctx)
	})
}

func (r *tagRepository) Update(ctx context.Context, tag *entities.Tag) error {
	_, err := call(ctx, r.s, "tags.update", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.s.inner.Tags().Update(ctx, tag)
	})
	return err
}

type relationRepository struct {
	s *ResilientStore
}

func (r *relationRepository) AttachTag(ctx context.Context, todoID, tagID string) (*entities.Todo, error) {
	return call(ctx, r.s, "relations.attach", func(ctx context.Context) (*entities.Todo, error) {
		return r.s.inner.Relations().AttachTag(ctx, todoID, tagID)
	})
}

func (r *relationRepository) DetachTag(ctx context.Context, todoID, tagID string) (*entities.Todo, error) {
	return call(ctx, r.s, "relations.detach", func(ctx context.Context) (*entities.Todo, error) {
		return r.s.inner.Relations().DetachTag(ctx, todoID, tagID)
	})
}
