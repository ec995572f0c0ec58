package services

import (
	"context"

	"todo-backend/application/ports"
	"todo-backend/domain/core/entities"
	"todo-backend/pkg/observability"

	"go.uber.org/zap"
)

// CreateTodoParams carries the fields accepted when creating a todo
type CreateTodoParams struct {
	Title     string
	Order     *int
	Completed *bool
}

// TodoService owns todo records and the todo side of the todo/tag relation.
type TodoService struct {
	store   ports.Store
	metrics *observability.Collector
	logger  *zap.Logger
}

// NewTodoService creates a new todo service. metrics may be nil.
func NewTodoService(store ports.Store, metrics *observability.Collector, logger *zap.Logger) *TodoService {
	return &TodoService{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// ListTodos returns every todo, or only those carrying tagID when it is set.
func (s *TodoService) ListTodos(ctx context.Context, tagID string) ([]*entities.Todo, error) {
	todos, err := s.store.Todos().List(ctx, ports.TodoFilter{TagID: tagID})
	if err != nil {
		s.logger.Error("Failed to list todos", zap.String("tag", tagID), zap.Error(err))
		return nil, err
	}
	if todos == nil {
		todos = []*entities.Todo{}
	}
	return todos, nil
}

func (s *TodoService) CreateTodo(ctx context.Context, params CreateTodoParams) (*entities.Todo, error) {
	todo, err := entities.NewTodo(params.Title, params.Order, params.Completed)
	if err != nil {
		return nil, err
	}

	if err := s.store.Todos().Create(ctx, todo); err != nil {
		s.logger.Error("Failed to create todo", zap.Error(err))
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TodosCreated.Inc()
	}
	s.logger.Debug("Todo created", zap.String("todoID", todo.ID))
	return todo, nil
}

func (s *TodoService) GetTodo(ctx context.Context, id string) (*entities.Todo, error) {
	return s.store.Todos().GetByID(ctx, id)
}

// UpdateTodo merges the fields present in patch into the stored todo. The
// write is conditioned on the version that was read, so a concurrent update
// surfaces as a conflict instead of being silently overwritten.
func (s *TodoService) UpdateTodo(ctx context.Context, id string, patch entities.TodoPatch) (*entities.Todo, error) {
	todo, err := s.store.Todos().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := todo.ApplyPatch(patch); err != nil {
		return nil, err
	}

	if err := s.store.Todos().Update(ctx, todo); err != nil {
		s.logger.Error("Failed to update todo", zap.String("todoID", id), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("Todo updated", zap.String("todoID", id), zap.Int("version", todo.Version))
	return todo, nil
}

// DeleteTodo removes one todo; tags that referenced it drop the reference.
func (s *TodoService) DeleteTodo(ctx context.Context, id string) error {
	todo, err := s.store.Todos().Delete(ctx, id)
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.TodosDeleted.Inc()
	}
	s.logger.Debug("Todo deleted", zap.String("todoID", id), zap.Int("tags", len(todo.Tags)))
	return nil
}

// DeleteAllTodos removes every todo and returns how many were removed.
func (s *TodoService) DeleteAllTodos(ctx context.Context) (int, error) {
	n, err := s.store.Todos().DeleteAll(ctx)
	if err != nil {
		s.logger.Error("Failed to delete todos", zap.Error(err))
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.TodosDeleted.Add(float64(n))
	}
	s.logger.Info("All todos deleted", zap.Int("count", n))
	return n, nil
}

// ListTodoTags returns the tag ids attached to a todo, in attach order.
func (s *TodoService) ListTodoTags(ctx context.Context, id string) ([]string, error) {
	todo, err := s.store.Todos().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if todo.Tags == nil {
		return []string{}, nil
	}
	return todo.Tags, nil
}

// AddTag attaches an existing tag to a todo. Attaching the same tag twice
// records it twice.
func (s *TodoService) AddTag(ctx context.Context, todoID, tagID string) (*entities.Todo, error) {
	todo, err := s.store.Relations().AttachTag(ctx, todoID, tagID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Tag attached", zap.String("todoID", todoID), zap.String("tagID", tagID))
	return todo, nil
}

// RemoveTag detaches the first occurrence of tagID. Removing a tag the todo
// does not carry is not an error.
func (s *TodoService) RemoveTag(ctx context.Context, todoID, tagID string) (*entities.Todo, error) {
	todo, err := s.store.Relations().DetachTag(ctx, todoID, tagID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Tag detached", zap.String("todoID", todoID), zap.String("tagID", tagID))
	return todo, nil
}
