package entities

import (
	"strings"

	pkgerrors "todo-backend/pkg/errors"
)

// Todo is a task record. Tags holds Tag identifiers in attach order and may
// contain the same identifier more than once.
type Todo struct {
	ID        string
	Title     string
	Order     *int
	Completed *bool
	Tags      []string

	// Version is bumped by the store on every successful write and used as
	// the optimistic lock condition.
	Version int
}

// TodoPatch lists the fields a partial update may replace. A nil field
// keeps the stored value.
type TodoPatch struct {
	Title     *string
	Order     *int
	Completed *bool
}

// NewTodo creates a todo ready to be inserted. The store assigns the ID.
func NewTodo(title string, order *int, completed *bool) (*Todo, error) {
	if strings.TrimSpace(title) == "" {
		return nil, pkgerrors.NewValidationError("title is required")
	}

	return &Todo{
		Title:     title,
		Order:     order,
		Completed: completed,
		Tags:      []string{},
	}, nil
}

// ApplyPatch merges the fields present in p into the todo.
func (t *Todo) ApplyPatch(p TodoPatch) error {
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return pkgerrors.NewValidationError("title cannot be empty")
		}
		t.Title = *p.Title
	}
	if p.Order != nil {
		order := *p.Order
		t.Order = &order
	}
	if p.Completed != nil {
		completed := *p.Completed
		t.Completed = &completed
	}
	return nil
}

// IsCompleted treats an unset flag as false.
func (t *Todo) IsCompleted() bool {
	return t.Completed != nil && *t.Completed
}

// AttachTag appends tagID to the tag list. Duplicates are kept.
func (t *Todo) AttachTag(tagID string) {
	t.Tags = append(t.Tags, tagID)
}

// DetachTag removes the first occurrence of tagID and reports whether
// anything was removed.
func (t *Todo) DetachTag(tagID string) bool {
	var removed bool
	t.Tags, removed = removeFirst(t.Tags, tagID)
	return removed
}

// HasTag reports whether tagID is attached at least once.
func (t *Todo) HasTag(tagID string) bool {
	for _, id := range t.Tags {
		if id == tagID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (t *Todo) Clone() *Todo {
	c := *t
	if t.Order != nil {
		order := *t.Order
		c.Order = &order
	}
	if t.Completed != nil {
		completed := *t.Completed
		c.Completed = &completed
	}
	c.Tags = append([]string{}, t.Tags...)
	return &c
}

// removeFirst drops the first element equal to id, preserving order.
func removeFirst(ids []string, id string) ([]string, bool) {
	for i, v := range ids {
		if v == id {
			out := make([]string, 0, len(ids)-1)
			out = append(out, ids[:i]...)
			return append(out, ids[i+1:]...), true
		}
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, false
}
