package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todo-backend/application/ports"
	"todo-backend/domain/core/entities"
	pkgerrors "todo-backend/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// todoRow is the column layout of the todos table.
type todoRow struct {
	ID        string        `db:"id"`
	Title     string        `db:"title"`
	SortOrder sql.NullInt64 `db:"sort_order"`
	Completed sql.NullBool  `db:"completed"`
	Tags      string        `db:"tags"`
	Version   int           `db:"version"`
}

func (r todoRow) toEntity() (*entities.Todo, error) {
	tags, err := decodeIDs(r.Tags)
	if err != nil {
		return nil, fmt.Errorf("todo %s: %w", r.ID, err)
	}
	todo := &entities.Todo{ID: r.ID, Title: r.Title, Tags: tags, Version: r.Version}
	if r.SortOrder.Valid {
		order := int(r.SortOrder.Int64)
		todo.Order = &order
	}
	if r.Completed.Valid {
		completed := r.Completed.Bool
		todo.Completed = &completed
	}
	return todo, nil
}

func nullableOrder(order *int) sql.NullInt64 {
	if order == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*order), Valid: true}
}

func nullableBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

const selectTodo = "SELECT id, title, sort_order, completed, tags, version FROM todos"

// getTodo loads one todo through q, which may be the database or a transaction.
func getTodo(ctx context.Context, q sqlx.QueryerContext, id string) (*entities.Todo, error) {
	var row todoRow
	err := sqlx.GetContext(ctx, q, &row, selectTodo+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.NewTodoNotFound()
	}
	if err != nil {
		return nil, err
	}
	return row.toEntity()
}

// writeTodo replaces the mutable columns of a todo if its version matches.
func writeTodo(ctx context.Context, ex sqlx.ExtContext, todo *entities.Todo) error {
	tags, err := encodeIDs(todo.Tags)
	if err != nil {
		return err
	}

	result, err := ex.ExecContext(ctx, `
		UPDATE todos
		SET title = ?, sort_order = ?, completed = ?, tags = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		todo.Title, nullableOrder(todo.Order), nullableBool(todo.Completed), tags,
		todo.ID, todo.Version,
	)
	if err != nil {
		return fmt.Errorf("updating todo %s: %w", todo.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := getTodo(ctx, ex, todo.ID); err != nil {
			return err
		}
		return ports.NewVersionConflict("todo", todo.ID)
	}

	todo.Version++
	return nil
}

type todoRepository struct {
	store *Store
}

func (r *todoRepository) Create(ctx context.Context, todo *entities.Todo) error {
	tags, err := encodeIDs(todo.Tags)
	if err != nil {
		return classify("create todo", err)
	}

	id := uuid.New().String()
	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO todos (id, title, sort_order, completed, tags, version)
		VALUES (?, ?, ?, ?, ?, 1)`,
		id, todo.Title, nullableOrder(todo.Order), nullableBool(todo.Completed), tags,
	)
	if err != nil {
		return classify("create todo", err)
	}

	todo.ID = id
	todo.Version = 1
	if todo.Tags == nil {
		todo.Tags = []string{}
	}
	return nil
}

func (r *todoRepository) GetByID(ctx context.Context, id string) (*entities.Todo, error) {
	todo, err := getTodo(ctx, r.store.db, id)
	if err != nil {
		return nil, classify("get todo", err)
	}
	return todo, nil
}

func (r *todoRepository) List(ctx context.Context, filter ports.TodoFilter) ([]*entities.Todo, error) {
	query := selectTodo
	var args []interface{}
	if filter.TagID != "" {
		query += " WHERE EXISTS (SELECT 1 FROM json_each(todos.tags) WHERE json_each.value = ?)"
		args = append(args, filter.TagID)
	}
	query += " ORDER BY rowid"

	var rows []todoRow
	if err := r.store.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify("list todos", err)
	}

	todos := make([]*entities.Todo, 0, len(rows))
	for _, row := range rows {
		todo, err := row.toEntity()
		if err != nil {
			return nil, classify("list todos", err)
		}
		todos = append(todos, todo)
	}
	return todos, nil
}

func (r *todoRepository) Update(ctx context.Context, todo *entities.Todo) error {
	if err := writeTodo(ctx, r.store.db, todo); err != nil {
		return classify("update todo", err)
	}
	return nil
}

// Delete removes the todo and strips it from the todo list of every tag it
// references, in one transaction.
func (r *todoRepository) Delete(ctx context.Context, id string) (*entities.Todo, error) {
	var deleted *entities.Todo
	err := r.store.withTx(ctx, "delete todo", func(tx *sqlx.Tx) error {
		todo, err := getTodo(ctx, tx, id)
		if err != nil {
			return err
		}

		seen := make(map[string]bool, len(todo.Tags))
		for _, tagID := range todo.Tags {
			if seen[tagID] {
				continue
			}
			seen[tagID] = true

			tag, err := getTag(ctx, tx, tagID)
			if err != nil {
				if pkgerrors.IsNotFound(err) {
					continue
				}
				return err
			}
			if tag.DetachAll(id) == 0 {
				continue
			}
			if err := writeTag(ctx, tx, tag); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id); err != nil {
			return fmt.Errorf("deleting todo %s: %w", id, err)
		}
		deleted = todo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *todoRepository) DeleteAll(ctx context.Context) (int, error) {
	var n int64
	err := r.store.withTx(ctx, "delete todos", func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM todos")
		if err != nil {
			return fmt.Errorf("deleting todos: %w", err)
		}
		if n, err = result.RowsAffected(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE tags SET todos = '[]', version = version + 1 WHERE todos != '[]'")
		if err != nil {
			return fmt.Errorf("clearing tag references: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
