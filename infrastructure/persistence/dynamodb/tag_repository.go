package dynamodb

import (
	"context"
	"fmt"
	"sort"

	"todo-backend/application/ports"
	"todo-backend/domain/core/entities"
	pkgerrors "todo-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

type tagRepository struct {
	store *Store
}

func (r *tagRepository) Create(ctx context.Context, tag *entities.Tag) error {
	tag.ID = uuid.New().String()
	tag.Version = 1
	if tag.Todos == nil {
		tag.Todos = []string{}
	}

	av, err := marshalItem(newTagItem(tag, nowStamp()))
	if err != nil {
		return classify("create tag", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(attrID))).
		Build()
	if err != nil {
		return classify("create tag", err)
	}

	_, err = r.store.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.store.tagTable),
		Item:                     av,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		return classify("create tag", err)
	}
	return nil
}

func (r *tagRepository) GetByID(ctx context.Context, id string) (*entities.Tag, error) {
	return r.store.getTag(ctx, id)
}

func (s *Store) getTag(ctx context.Context, id string) (*entities.Tag, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tagTable),
		Key:            keyFor(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify("get tag", err)
	}
	if len(out.Item) == 0 {
		return nil, ports.NewTagNotFound()
	}

	var item tagItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, classify("get tag", fmt.Errorf("failed to unmarshal tag: %w", err))
	}
	return item.toEntity(), nil
}

func (r *tagRepository) List(ctx context.Context) ([]*entities.Tag, error) {
	var items []tagItem
	paginator := dynamodb.NewScanPaginator(r.store.client, &dynamodb.ScanInput{
		TableName:      aws.String(r.store.tagTable),
		ConsistentRead: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list tags", err)
		}
		var pageItems []tagItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageItems); err != nil {
			return nil, classify("list tags", fmt.Errorf("failed to unmarshal tags: %w", err))
		}
		items = append(items, pageItems...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt == items[j].CreatedAt {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt < items[j].CreatedAt
	})

	tags := make([]*entities.Tag, 0, len(items))
	for _, item := range items {
		tags = append(tags, item.toEntity())
	}
	return tags, nil
}

func (r *tagRepository) Update(ctx context.Context, tag *entities.Tag) error {
	expr, err := tagUpdateExpr(tag)
	if err != nil {
		return classify("update tag", err)
	}

	_, err = r.store.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.store.tagTable),
		Key:                                 keyFor(tag.ID),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		return classifyConditional("update tag", err, ports.NewTagNotFound, "tag", tag.ID)
	}

	tag.Version++
	return nil
}

type relationRepository struct {
	store *Store
}

// AttachTag rewrites the todo and the tag together; either both lists grow
// or neither does.
func (r *relationRepository) AttachTag(ctx context.Context, todoID, tagID string) (*entities.Todo, error) {
	todo, err := r.store.getTodo(ctx, todoID)
	if err != nil {
		return nil, err
	}
	tag, err := r.store.getTag(ctx, tagID)
	if err != nil {
		return nil, err
	}

	todo.AttachTag(tagID)
	tag.AttachTodo(todoID)

	if err := r.store.writePair(ctx, "attach tag", todo, tag); err != nil {
		return nil, err
	}
	return todo, nil
}

func (r *relationRepository) DetachTag(ctx context.Context, todoID, tagID string) (*entities.Todo, error) {
	todo, err := r.store.getTodo(ctx, todoID)
	if err != nil {
		return nil, err
	}
	if !todo.DetachTag(tagID) {
		return todo, nil
	}

	tag, err := r.store.getTag(ctx, tagID)
	switch {
	case pkgerrors.IsNotFound(err):
		tag = nil
	case err != nil:
		return nil, err
	case !tag.DetachTodo(todoID):
		tag = nil
	}

	if err := r.store.writePair(ctx, "detach tag", todo, tag); err != nil {
		return nil, err
	}
	return todo, nil
}

// writePair commits the todo, and the tag when non-nil, in one transaction
// guarded by both version checks.
func (s *Store) writePair(ctx context.Context, operation string, todo *entities.Todo, tag *entities.Tag) error {
	todoExpr, err := todoUpdateExpr(todo)
	if err != nil {
		return classify(operation, err)
	}
	items := []types.TransactWriteItem{txnUpdate(s.todoTable, todo.ID, todoExpr)}
	targets := []txnTarget{{kind: "todo", id: todo.ID, notFound: ports.NewTodoNotFound}}

	if tag != nil {
		tagExpr, err := tagUpdateExpr(tag)
		if err != nil {
			return classify(operation, err)
		}
		items = append(items, txnUpdate(s.tagTable, tag.ID, tagExpr))
		targets = append(targets, txnTarget{kind: "tag", id: tag.ID, notFound: ports.NewTagNotFound})
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		return classifyTxn(operation, err, targets)
	}

	todo.Version++
	if tag != nil {
		tag.Version++
	}
	return nil
}
