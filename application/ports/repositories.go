package ports

import (
	"context"

	"todo-backend/domain/core/entities"
	pkgerrors "todo-backend/pkg/errors"
)

// TodoFilter narrows a todo listing. A zero filter matches every todo.
type TodoFilter struct {
	// TagID keeps only todos whose tag list contains this identifier
	TagID string
}

// Matches reports whether todo passes the filter.
func (f TodoFilter) Matches(todo *entities.Todo) bool {
	return f.TagID == "" || todo.HasTag(f.TagID)
}

// TodoRepository defines the interface for todo persistence
type TodoRepository interface {
	// Create inserts a new todo, assigning its ID and initial version
	Create(ctx context.Context, todo *entities.Todo) error

	// GetByID retrieves a todo by its ID
	GetByID(ctx context.Context, id string) (*entities.Todo, error)

	// List returns the todos matching filter
	List(ctx context.Context, filter TodoFilter) ([]*entities.Todo, error)

	// Update replaces a stored todo if its version still matches, then bumps the version
	Update(ctx context.Context, todo *entities.Todo) error

	// Delete removes a todo and its references from the inverse tag lists
	Delete(ctx context.Context, id string) (*entities.Todo, error)

	// DeleteAll removes every todo and empties every tag's todo list
	DeleteAll(ctx context.Context) (int, error)
}

// TagRepository defines the interface for tag persistence
type TagRepository interface {
	// Create inserts a new tag, assigning its ID and initial version
	Create(ctx context.Context, tag *entities.Tag) error

	// GetByID retrieves a tag by its ID
	GetByID(ctx context.Context, id string) (*entities.Tag, error)

	// List returns every tag
	List(ctx context.Context) ([]*entities.Tag, error)

	// Update replaces a stored tag if its version still matches, then bumps the version
	Update(ctx context.Context, tag *entities.Tag) error
}

// RelationRepository maintains both sides of the todo/tag relation in one
// store transaction.
type RelationRepository interface {
	// AttachTag appends tagID to the todo and todoID to the tag
	AttachTag(ctx context.Context, todoID, tagID string) (*entities.Todo, error)

	// DetachTag removes the first occurrence from both sides. Detaching a
	// tag that is not attached returns the unchanged todo.
	DetachTag(ctx context.Context, todoID, tagID string) (*entities.Todo, error)
}

// Store is the record store handle built once at startup.
type Store interface {
	Todos() TodoRepository
	Tags() TagRepository
	Relations() RelationRepository

	// Ping checks the store is reachable
	Ping(ctx context.Context) error

	// Close releases the store's resources
	Close() error
}

// NewTodoNotFound is the error every driver returns for a missing todo.
func NewTodoNotFound() error {
	return pkgerrors.NewNotFoundError("Todo id not found")
}

// NewTagNotFound is the error every driver returns for a missing tag.
func NewTagNotFound() error {
	return pkgerrors.NewNotFoundError("Tag id not found")
}

// NewVersionConflict is returned when an optimistic lock check fails.
func NewVersionConflict(kind, id string) error {
	return pkgerrors.NewConflictError(kind + " " + id + " was modified concurrently, retry the request")
}
