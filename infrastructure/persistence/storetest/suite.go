// Package storetest holds the behaviour every ports.Store driver must share.
package storetest

import (
	"context"
	"testing"

	"todo-backend/application/ports"
	"todo-backend/domain/core/entities"
	pkgerrors "todo-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory opens a fresh, empty store for one subtest.
type Factory func(t *testing.T) ports.Store

// Run exercises a driver against the shared store contract.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("todo create and get", func(t *testing.T) { testTodoCreateGet(t, newStore(t)) })
	t.Run("todo list filter", func(t *testing.T) { testTodoListFilter(t, newStore(t)) })
	t.Run("todo update version", func(t *testing.T) { testTodoUpdate(t, newStore(t)) })
	t.Run("todo delete cascades", func(t *testing.T) { testTodoDelete(t, newStore(t)) })
	t.Run("todo delete all", func(t *testing.T) { testTodoDeleteAll(t, newStore(t)) })
	t.Run("tag crud", func(t *testing.T) { testTagCRUD(t, newStore(t)) })
	t.Run("attach and detach", func(t *testing.T) { testRelations(t, newStore(t)) })
}

func mustTodo(t *testing.T, store ports.Store, title string) *entities.Todo {
	t.Helper()
	todo, err := entities.NewTodo(title, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Todos().Create(context.Background(), todo))
	return todo
}

func mustTag(t *testing.T, store ports.Store, name string) *entities.Tag {
	t.Helper()
	tag, err := entities.NewTag(name)
	require.NoError(t, err)
	require.NoError(t, store.Tags().Create(context.Background(), tag))
	return tag
}

func testTodoCreateGet(t *testing.T, store ports.Store) {
	ctx := context.Background()
	order := 2
	todo, err := entities.NewTodo("build an API", &order, nil)
	require.NoError(t, err)

	require.NoError(t, store.Todos().Create(ctx, todo))
	assert.NotEmpty(t, todo.ID)
	assert.Equal(t, 1, todo.Version)

	got, err := store.Todos().GetByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, "build an API", got.Title)
	require.NotNil(t, got.Order)
	assert.Equal(t, 2, *got.Order)
	assert.Nil(t, got.Completed)
	assert.Empty(t, got.Tags)

	_, err = store.Todos().GetByID(ctx, "does-not-exist")
	assert.True(t, pkgerrors.IsNotFound(err), "got %v", err)
}

func testTodoListFilter(t *testing.T, store ports.Store) {
	ctx := context.Background()
	work := mustTag(t, store, "work")
	first := mustTodo(t, store, "first")
	mustTodo(t, store, "second")

	_, err := store.Relations().AttachTag(ctx, first.ID, work.ID)
	require.NoError(t, err)

	all, err := store.Todos().List(ctx, ports.TodoFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	tagged, err := store.Todos().List(ctx, ports.TodoFilter{TagID: work.ID})
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, first.ID, tagged[0].ID)

	none, err := store.Todos().List(ctx, ports.TodoFilter{TagID: "no-such-tag"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testTodoUpdate(t *testing.T, store ports.Store) {
	ctx := context.Background()
	todo := mustTodo(t, store, "draft")

	stale := todo.Clone()

	done := true
	todo.Completed = &done
	require.NoError(t, store.Todos().Update(ctx, todo))
	assert.Equal(t, 2, todo.Version)

	got, err := store.Todos().GetByID(ctx, todo.ID)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted())
	assert.Equal(t, "draft", got.Title)

	stale.Title = "lost update"
	err = store.Todos().Update(ctx, stale)
	assert.True(t, pkgerrors.IsConflict(err), "got %v", err)

	missing := &entities.Todo{ID: "missing", Title: "x", Version: 1}
	err = store.Todos().Update(ctx, missing)
	assert.True(t, pkgerrors.IsNotFound(err), "got %v", err)
}

func testTodoDelete(t *testing.T, store ports.Store) {
	ctx := context.Background()
	tag := mustTag(t, store, "home")
	keep := mustTodo(t, store, "keep")
	gone := mustTodo(t, store, "gone")

	for _, todoID := range []string{gone.ID, keep.ID, gone.ID} {
		_, err := store.Relations().AttachTag(ctx, todoID, tag.ID)
		require.NoError(t, err)
	}

	deleted, err := store.Todos().Delete(ctx, gone.ID)
	require.NoError(t, err)
	assert.Equal(t, gone.ID, deleted.ID)

	_, err = store.Todos().GetByID(ctx, gone.ID)
	assert.True(t, pkgerrors.IsNotFound(err))

	got, err := store.Tags().GetByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, got.Todos)

	_, err = store.Todos().Delete(ctx, gone.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func testTodoDeleteAll(t *testing.T, store ports.Store) {
	ctx := context.Background()
	tag := mustTag(t, store, "errands")
	todo := mustTodo(t, store, "one")
	mustTodo(t, store, "two")
	_, err := store.Relations().AttachTag(ctx, todo.ID, tag.ID)
	require.NoError(t, err)

	n, err := store.Todos().DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := store.Todos().List(ctx, ports.TodoFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	got, err := store.Tags().GetByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Todos)
}

func testTagCRUD(t *testing.T, store ports.Store) {
	ctx := context.Background()
	tags, err := store.Tags().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)

	tag := mustTag(t, store, "work")
	assert.NotEmpty(t, tag.ID)

	got, err := store.Tags().GetByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, "work", got.Name)
	assert.Empty(t, got.Todos)

	got.Name = "office"
	require.NoError(t, store.Tags().Update(ctx, got))

	tags, err = store.Tags().List(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "office", tags[0].Name)

	tag.Name = "stale"
	assert.True(t, pkgerrors.IsConflict(store.Tags().Update(ctx, tag)))

	_, err = store.Tags().GetByID(ctx, "missing")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func testRelations(t *testing.T, store ports.Store) {
	ctx := context.Background()
	tag := mustTag(t, store, "urgent")
	todo := mustTodo(t, store, "pay rent")

	updated, err := store.Relations().AttachTag(ctx, todo.ID, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{tag.ID}, updated.Tags)

	updated, err = store.Relations().AttachTag(ctx, todo.ID, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{tag.ID, tag.ID}, updated.Tags)

	gotTag, err := store.Tags().GetByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{todo.ID, todo.ID}, gotTag.Todos)

	updated, err = store.Relations().DetachTag(ctx, todo.ID, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{tag.ID}, updated.Tags)

	updated, err = store.Relations().DetachTag(ctx, todo.ID, "not-attached")
	require.NoError(t, err)
	assert.Equal(t, []string{tag.ID}, updated.Tags)

	gotTag, err = store.Tags().GetByID(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{todo.ID}, gotTag.Todos)

	_, err = store.Relations().AttachTag(ctx, todo.ID, "missing-tag")
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = store.Relations().AttachTag(ctx, "missing-todo", tag.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = store.Relations().DetachTag(ctx, "missing-todo", tag.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
}
