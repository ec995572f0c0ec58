package dynamodb

import (
	"fmt"
	"time"

	"todo-backend/domain/core/entities"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	attrID      = "id"
	attrVersion = "version"
	attrTags    = "tags"
	attrTodos   = "todos"
)

// todoItem represents the DynamoDB item structure for a todo
type todoItem struct {
	ID        string   `dynamodbav:"id"`
	Title     string   `dynamodbav:"title"`
	Order     *int     `dynamodbav:"order,omitempty"`
	Completed *bool    `dynamodbav:"completed,omitempty"`
	Tags      []string `dynamodbav:"tags"`
	Version   int      `dynamodbav:"version"`
	CreatedAt string   `dynamodbav:"createdAt"`
}

// tagItem represents the DynamoDB item structure for a tag
type tagItem struct {
	ID        string   `dynamodbav:"id"`
	Name      string   `dynamodbav:"name"`
	Todos     []string `dynamodbav:"todos"`
	Version   int      `dynamodbav:"version"`
	CreatedAt string   `dynamodbav:"createdAt"`
}

func newTodoItem(todo *entities.Todo, createdAt string) todoItem {
	tags := todo.Tags
	if tags == nil {
		tags = []string{}
	}
	return todoItem{
		ID:        todo.ID,
		Title:     todo.Title,
		Order:     todo.Order,
		Completed: todo.Completed,
		Tags:      tags,
		Version:   todo.Version,
		CreatedAt: createdAt,
	}
}

func (i todoItem) toEntity() *entities.Todo {
	tags := i.Tags
	if tags == nil {
		tags = []string{}
	}
	return &entities.Todo{
		ID:        i.ID,
		Title:     i.Title,
		Order:     i.Order,
		Completed: i.Completed,
		Tags:      tags,
		Version:   i.Version,
	}
}

func newTagItem(tag *entities.Tag, createdAt string) tagItem {
	todos := tag.Todos
	if todos == nil {
		todos = []string{}
	}
	return tagItem{
		ID:        tag.ID,
		Name:      tag.Name,
		Todos:     todos,
		Version:   tag.Version,
		CreatedAt: createdAt,
	}
}

func (i tagItem) toEntity() *entities.Tag {
	todos := i.Todos
	if todos == nil {
		todos = []string{}
	}
	return &entities.Tag{ID: i.ID, Name: i.Name, Todos: todos, Version: i.Version}
}

func keyFor(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrID: &types.AttributeValueMemberS{Value: id},
	}
}

func marshalItem(v interface{}) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	return av, nil
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
