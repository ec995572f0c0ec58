package memory

import (
	"context"
	"sync"

	"todo-backend/application/ports"
	"todo-backend/domain/core/entities"

	"github.com/google/uuid"
)

// Store provides an in-memory implementation of ports.Store. Records are
// kept in insertion order and every read returns a copy.
type Store struct {
	mu        sync.RWMutex
	todos     map[string]*entities.Todo
	todoOrder []string
	tags      map[string]*entities.Tag
	tagOrder  []string
	closed    bool
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		todos: make(map[string]*entities.Todo),
		tags:  make(map[string]*entities.Tag),
	}
}

func (s *Store) Todos() ports.TodoRepository         { return (*todoRepository)(s) }
func (s *Store) Tags() ports.TagRepository           { return (*tagRepository)(s) }
func (s *Store) Relations() ports.RelationRepository { return (*relationRepository)(s) }

// Ping always succeeds until the store is closed
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return wrap("ping", err)
	}
	return nil
}

// Close marks the store closed; later calls fail
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) check(ctx context.Context) error {
	if s.closed {
		return errStoreClosed
	}
	return ctx.Err()
}

// removeID drops id from an insertion-order slice.
func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

type todoRepository Store

func (r *todoRepository) Create(ctx context.Context, todo *entities.Todo) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return wrap("create todo", err)
	}

	todo.ID = uuid.New().String()
	todo.Version = 1
	if todo.Tags == nil {
		todo.Tags = []string{}
	}
	s.todos[todo.ID] = todo.Clone()
	s.todoOrder = append(s.todoOrder, todo.ID)
	return nil
}

func (r *todoRepository) GetByID(ctx context.Context, id string) (*entities.Todo, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, wrap("get todo", err)
	}

	todo, ok := s.todos[id]
	if !ok {
		return nil, ports.NewTodoNotFound()
	}
	return todo.Clone(), nil
}

func (r *todoRepository) List(ctx context.Context, filter ports.TodoFilter) ([]*entities.Todo, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, wrap("list todos", err)
	}

	result := make([]*entities.Todo, 0, len(s.todoOrder))
	for _, id := range s.todoOrder {
		if todo := s.todos[id]; filter.Matches(todo) {
			result = append(result, todo.Clone())
		}
	}
	return result, nil
}

func (r *todoRepository) Update(ctx context.Context, todo *entities.Todo) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return wrap("update todo", err)
	}

	current, ok := s.todos[todo.ID]
	if !ok {
		return ports.NewTodoNotFound()
	}
	if current.Version != todo.Version {
		return ports.NewVersionConflict("todo", todo.ID)
	}

	todo.Version++
	s.todos[todo.ID] = todo.Clone()
	return nil
}

func (r *todoRepository) Delete(ctx context.Context, id string) (*entities.Todo, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, wrap("delete todo", err)
	}

	todo, ok := s.todos[id]
	if !ok {
		return nil, ports.NewTodoNotFound()
	}

	for _, tagID := range todo.Tags {
		if tag, ok := s.tags[tagID]; ok && tag.DetachAll(id) > 0 {
			tag.Version++
		}
	}
	delete(s.todos, id)
	s.todoOrder = removeID(s.todoOrder, id)
	return todo, nil
}

func (r *todoRepository) DeleteAll(ctx context.Context) (int, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return 0, wrap("delete todos", err)
	}

	n := len(s.todos)
	s.todos = make(map[string]*entities.Todo)
	s.todoOrder = nil
	for _, tag := range s.tags {
		if len(tag.Todos) > 0 {
			tag.Todos = []string{}
			tag.Version++
		}
	}
	return n, nil
}

type tagRepository Store

func (r *tagRepository) Create(ctx context.Context, tag *entities.Tag) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return wrap("create tag", err)
	}

	tag.ID = uuid.New().String()
	tag.Version = 1
	if tag.Todos == nil {
		tag.Todos = []string{}
	}
	s.tags[tag.ID] = tag.Clone()
	s.tagOrder = append(s.tagOrder, tag.ID)
	return nil
}

func (r *tagRepository) GetByID(ctx context.Context, id string) (*entities.Tag, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, wrap("get tag", err)
	}

	tag, ok := s.tags[id]
	if !ok {
		return nil, ports.NewTagNotFound()
	}
	return tag.Clone(), nil
}

func (r *tagRepository) List(ctx context.Context) ([]*entities.Tag, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(ctx); err != nil {
		return nil, wrap("list tags", err)
	}

	result := make([]*entities.Tag, 0, len(s.tagOrder))
	for _, id := range s.tagOrder {
		result = append(result, s.tags[id].Clone())
	}
	return result, nil
}

func (r *tagRepository) Update(ctx context.Context, tag *entities.Tag) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return wrap("update tag", err)
	}

	current, ok := s.tags[tag.ID]
	if !ok {
		return ports.NewTagNotFound()
	}
	if current.Version != tag.Version {
		return ports.NewVersionConflict("tag", tag.ID)
	}

	tag.Version++
	s.tags[tag.ID] = tag.Clone()
	return nil
}

type relationRepository Store

func (r *relationRepository) AttachTag(ctx context.Context, todoID, tagID string) (*entities.Todo, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, wrap("attach tag", err)
	}

	todo, ok := s.todos[todoID]
	if !ok {
		return nil, ports.NewTodoNotFound()
	}
	tag, ok := s.tags[tagID]
	if !ok {
		return nil, ports.NewTagNotFound()
	}

	todo.AttachTag(tagID)
	todo.Version++
	tag.AttachTodo(todoID)
	tag.Version++
	return todo.Clone(), nil
}

func (r *relationRepository) DetachTag(ctx context.Context, todoID, tagID string) (*entities.Todo, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, wrap("detach tag", err)
	}

	todo, ok := s.todos[todoID]
	if !ok {
		return nil, ports.NewTodoNotFound()
	}
	if !todo.DetachTag(tagID) {
		return todo.Clone(), nil
	}
	todo.Version++

	if tag, ok := s.tags[tagID]; ok && tag.DetachTodo(todoID) {
		tag.Version++
	}
	return todo.Clone(), nil
}
