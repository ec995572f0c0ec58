package entities

import (
	"strings"

	pkgerrors "todo-backend/pkg/errors"
)

// Tag is a label record. Todos is the inverse of Todo.Tags and mirrors it
// occurrence for occurrence.
type Tag struct {
	ID      string
	Name    string
	Todos   []string
	Version int
}

// TagPatch lists the fields a partial tag update may replace.
type TagPatch struct {
	Name *string
}

// NewTag creates a tag ready to be inserted.
func NewTag(name string) (*Tag, error) {
	if strings.TrimSpace(name) == "" {
		return nil, pkgerrors.NewValidationError("name is required")
	}
	return &Tag{Name: name, Todos: []string{}}, nil
}

// ApplyPatch merges the fields present in p into the tag.
func (t *Tag) ApplyPatch(p TagPatch) error {
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return pkgerrors.NewValidationError("name cannot be empty")
		}
		t.Name = *p.Name
	}
	return nil
}

// AttachTodo records one more reference from todoID.
func (t *Tag) AttachTodo(todoID string) {
	t.Todos = append(t.Todos, todoID)
}

// DetachTodo removes the first reference from todoID.
func (t *Tag) DetachTodo(todoID string) bool {
	var removed bool
	t.Todos, removed = removeFirst(t.Todos, todoID)
	return removed
}

// DetachAll removes every reference from todoID and returns how many were dropped.
func (t *Tag) DetachAll(todoID string) int {
	kept := make([]string, 0, len(t.Todos))
	for _, id := range t.Todos {
		if id != todoID {
			kept = append(kept, id)
		}
	}
	n := len(t.Todos) - len(kept)
	t.Todos = kept
	return n
}

// Clone returns a deep copy of the tag.
func (t *Tag) Clone() *Tag {
	c := *t
	c.Todos = append([]string{}, t.Todos...)
	return &c
}
