package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// sampleTodos is the data a fresh development store is seeded with.
var sampleTodos = []string{"build an API", "?????", "profit!"}

// SeedSampleData replaces every todo with the three sample todos, ordered
// 1..3 and not completed.
func (s *TodoService) SeedSampleData(ctx context.Context) error {
	if _, err := s.DeleteAllTodos(ctx); err != nil {
		return fmt.Errorf("clearing todos: %w", err)
	}

	for i, title := range sampleTodos {
		order := i + 1
		completed := false
		_, err := s.CreateTodo(ctx, CreateTodoParams{
			Title:     title,
			Order:     &order,
			Completed: &completed,
		})
		if err != nil {
			return fmt.Errorf("seeding %q: %w", title, err)
		}
	}

	s.logger.Info("Sample data seeded", zap.Int("todos", len(sampleTodos)))
	return nil
}
