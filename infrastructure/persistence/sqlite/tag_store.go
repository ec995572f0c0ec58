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

type tagRow struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	Todos   string `db:"todos"`
	Version int    `db:"version"`
}

func (r tagRow) toEntity() (*entities.Tag, error) {
	todos, err := decodeIDs(r.Todos)
	if err != nil {
		return nil, fmt.Errorf("tag %s: %w", r.ID, err)
	}
	return &entities.Tag{ID: r.ID, Name: r.Name, Todos: todos, Version: r.Version}, nil
}

const selectTag = "SELECT id, name, todos, version FROM tags"

func getTag(ctx context.Context, q sqlx.QueryerContext, id string) (*entities.Tag, error) {
	var row tagRow
	err := sqlx.GetContext(ctx, q, &row, selectTag+" WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.NewTagNotFound()
	}
	if err != nil {
		return nil, err
	}
	return row.toEntity()
}

func writeTag(ctx context.Context, ex sqlx.ExtContext, tag *entities.Tag) error {
	todos, err := encodeIDs(tag.Todos)
	if err != nil {
		return err
	}

	result, err := ex.ExecContext(ctx,
		"UPDATE tags SET name = ?, todos = ?, version = version + 1 WHERE id = ? AND version = ?",
		tag.Name, todos, tag.ID, tag.Version,
	)
	if err != nil {
		return fmt.Errorf("updating tag %s: %w", tag.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := getTag(ctx, ex, tag.ID); err != nil {
			return err
		}
		return ports.NewVersionConflict("tag", tag.ID)
	}

	tag.Version++
	return nil
}

type tagRepository struct {
	store *Store
}

func (r *tagRepository) Create(ctx context.Context, tag *entities.Tag) error {
	todos, err := encodeIDs(tag.Todos)
	if err != nil {
		return classify("create tag", err)
	}

	id := uuid.New().String()
	_, err = r.store.db.ExecContext(ctx,
		"INSERT INTO tags (id, name, todos, version) VALUES (?, ?, ?, 1)",
		id, tag.Name, todos,
	)
	if err != nil {
		return classify("create tag", err)
	}

	tag.ID = id
	tag.Version = 1
	if tag.Todos == nil {
		tag.Todos = []string{}
	}
	return nil
}

func (r *tagRepository) GetByID(ctx context.Context, id string) (*entities.Tag, error) {
	tag, err := getTag(ctx, r.store.db, id)
	if err != nil {
		return nil, classify("get tag", err)
	}
	return tag, nil
}

func (r *tagRepository) List(ctx context.Context) ([]*entities.Tag, error) {
	var rows []tagRow
	if err := r.store.db.SelectContext(ctx, &rows, selectTag+" ORDER BY rowid"); err != nil {
		return nil, classify("list tags", err)
	}

	tags := make([]*entities.Tag, 0, len(rows))
	for _, row := range rows {
		tag, err := row.toEntity()
		if err != nil {
			return nil, classify("list tags", err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (r *tagRepository) Update(ctx context.Context, tag *entities.Tag) error {
	if err := writeTag(ctx, r.store.db, tag); err != nil {
		return classify("update tag", err)
	}
	return nil
}

type relationRepository struct {
	store *Store
}

func (r *relationRepository) AttachTag(ctx context.Context, todoID, tagID string) (*entities.Todo, error) {
	var updated *entities.Todo
	err := r.store.withTx(ctx, "attach tag", func(tx *sqlx.Tx) error {
		todo, err := getTodo(ctx, tx, todoID)
		if err != nil {
			return err
		}
		tag, err := getTag(ctx, tx, tagID)
		if err != nil {
			return err
		}

		todo.AttachTag(tagID)
		tag.AttachTodo(todoID)

		if err := writeTodo(ctx, tx, todo); err != nil {
			return err
		}
		if err := writeTag(ctx, tx, tag); err != nil {
			return err
		}
		updated = todo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *relationRepository) DetachTag(ctx context.Context, todoID, tagID string) (*entities.Todo, error) {
	var updated *entities.Todo
	err := r.store.withTx(ctx, "detach tag", func(tx *sqlx.Tx) error {
		todo, err := getTodo(ctx, tx, todoID)
		if err != nil {
			return err
		}
		updated = todo

		if !todo.DetachTag(tagID) {
			return nil
		}
		if err := writeTodo(ctx, tx, todo); err != nil {
			return err
		}

		tag, err := getTag(ctx, tx, tagID)
		if err != nil {
			// A dangling reference has no inverse side to update.
			if pkgerrors.IsNotFound(err) {
				return nil
			}
			return err
		}
		if tag.DetachTodo(todoID) {
			return writeTag(ctx, tx, tag)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
