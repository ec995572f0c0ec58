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
	"go.uber.org/zap"
)

// maxTransactItems is the DynamoDB limit on items per write transaction.
const maxTransactItems = 100

// batchWriteSize is the DynamoDB limit on requests per BatchWriteItem call.
const batchWriteSize = 25

type todoRepository struct {
	store *Store
}

func (r *todoRepository) Create(ctx context.Context, todo *entities.Todo) error {
	todo.ID = uuid.New().String()
	todo.Version = 1
	if todo.Tags == nil {
		todo.Tags = []string{}
	}

	av, err := marshalItem(newTodoItem(todo, nowStamp()))
	if err != nil {
		return classify("create todo", err)
	}

	cond := expression.AttributeNotExists(expression.Name(attrID))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return classify("create todo", err)
	}

	_, err = r.store.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.store.todoTable),
		Item:                     av,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		return classify("create todo", err)
	}
	return nil
}

func (r *todoRepository) GetByID(ctx context.Context, id string) (*entities.Todo, error) {
	return r.store.getTodo(ctx, id)
}

func (s *Store) getTodo(ctx context.Context, id string) (*entities.Todo, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.todoTable),
		Key:            keyFor(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify("get todo", err)
	}
	if len(out.Item) == 0 {
		return nil, ports.NewTodoNotFound()
	}

	var item todoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, classify("get todo", fmt.Errorf("failed to unmarshal todo: %w", err))
	}
	return item.toEntity(), nil
}

// List scans the todo table. DynamoDB scans are unordered, so results are
// sorted by creation time to keep insertion order.
func (r *todoRepository) List(ctx context.Context, filter ports.TodoFilter) ([]*entities.Todo, error) {
	input := &dynamodb.ScanInput{
		TableName:      aws.String(r.store.todoTable),
		ConsistentRead: aws.Bool(true),
	}

	if filter.TagID != "" {
		expr, err := expression.NewBuilder().
			WithFilter(expression.Contains(expression.Name(attrTags), filter.TagID)).
			Build()
		if err != nil {
			return nil, classify("list todos", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	var items []todoItem
	paginator := dynamodb.NewScanPaginator(r.store.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("list todos", err)
		}
		var pageItems []todoItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageItems); err != nil {
			return nil, classify("list todos", fmt.Errorf("failed to unmarshal todos: %w", err))
		}
		items = append(items, pageItems...)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt == items[j].CreatedAt {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt < items[j].CreatedAt
	})

	todos := make([]*entities.Todo, 0, len(items))
	for _, item := range items {
		todos = append(todos, item.toEntity())
	}
	return todos, nil
}

func (r *todoRepository) Update(ctx context.Context, todo *entities.Todo) error {
	expr, err := todoUpdateExpr(todo)
	if err != nil {
		return classify("update todo", err)
	}

	_, err = r.store.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.store.todoTable),
		Key:                                 keyFor(todo.ID),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		return classifyConditional("update todo", err, ports.NewTodoNotFound, "todo", todo.ID)
	}

	todo.Version++
	return nil
}

// Delete removes the todo and rewrites every tag that references it in a
// single write transaction.
func (r *todoRepository) Delete(ctx context.Context, id string) (*entities.Todo, error) {
	todo, err := r.store.getTodo(ctx, id)
	if err != nil {
		return nil, err
	}

	cond := versionMatches(todo.Version)
	condExpr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, classify("delete todo", err)
	}

	items := []types.TransactWriteItem{{
		Delete: &types.Delete{
			TableName:                           aws.String(r.store.todoTable),
			Key:                                 keyFor(id),
			ConditionExpression:                 condExpr.Condition(),
			ExpressionAttributeNames:            condExpr.Names(),
			ExpressionAttributeValues:           condExpr.Values(),
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		},
	}}
	targets := []txnTarget{{kind: "todo", id: id, notFound: ports.NewTodoNotFound}}

	seen := make(map[string]bool, len(todo.Tags))
	for _, tagID := range todo.Tags {
		if seen[tagID] {
			continue
		}
		seen[tagID] = true

		tag, err := r.store.getTag(ctx, tagID)
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if tag.DetachAll(id) == 0 {
			continue
		}

		expr, err := tagUpdateExpr(tag)
		if err != nil {
			return nil, classify("delete todo", err)
		}
		items = append(items, txnUpdate(r.store.tagTable, tag.ID, expr))
		targets = append(targets, txnTarget{kind: "tag", id: tag.ID, notFound: ports.NewTagNotFound})
	}

	if len(items) > maxTransactItems {
		return nil, classify("delete todo",
			fmt.Errorf("todo %s references %d tags, more than one transaction can rewrite", id, len(items)-1))
	}

	_, err = r.store.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		return nil, classifyTxn("delete todo", err, targets)
	}
	return todo, nil
}

// DeleteAll batch deletes every todo and then empties every non-empty tag
// todo list. DynamoDB cannot transact over a whole table, so a failure part
// way leaves the remaining work for a retry.
func (r *todoRepository) DeleteAll(ctx context.Context) (int, error) {
	proj := expression.NamesList(expression.Name(attrID))
	expr, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		return 0, classify("delete todos", err)
	}

	var keys []map[string]types.AttributeValue
	paginator := dynamodb.NewScanPaginator(r.store.client, &dynamodb.ScanInput{
		TableName:                aws.String(r.store.todoTable),
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
		ConsistentRead:           aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, classify("delete todos", err)
		}
		keys = append(keys, page.Items...)
	}

	for start := 0; start < len(keys); start += batchWriteSize {
		end := start + batchWriteSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := r.store.batchDelete(ctx, r.store.todoTable, keys[start:end]); err != nil {
			return 0, err
		}
	}

	if err := r.store.clearTagTodos(ctx); err != nil {
		return 0, err
	}

	r.store.logger.Debug("Deleted all todos", zap.Int("count", len(keys)))
	return len(keys), nil
}

// maxBatchRetries bounds how many times unprocessed batch items are resent.
const maxBatchRetries = 5

func (s *Store) batchDelete(ctx context.Context, table string, keys []map[string]types.AttributeValue) error {
	requests := make([]types.WriteRequest, 0, len(keys))
	for _, key := range keys {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: key},
		})
	}

	pending := map[string][]types.WriteRequest{table: requests}
	for attempt := 0; len(pending) > 0; attempt++ {
		if attempt == maxBatchRetries {
			return classify("delete todos", fmt.Errorf("%d delete requests left unprocessed", len(pending[table])))
		}
		out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return classify("delete todos", err)
		}
		pending = out.UnprocessedItems
	}
	return nil
}

func (s *Store) clearTagTodos(ctx context.Context) error {
	filter := expression.Name(attrTodos).Size().GreaterThan(expression.Value(0))
	proj := expression.NamesList(expression.Name(attrID))
	scanExpr, err := expression.NewBuilder().WithFilter(filter).WithProjection(proj).Build()
	if err != nil {
		return classify("clear tag references", err)
	}

	update := expression.Set(expression.Name(attrTodos), expression.Value([]string{})).
		Set(expression.Name(attrVersion), expression.Name(attrVersion).Plus(expression.Value(1)))
	updateExpr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return classify("clear tag references", err)
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tagTable),
		FilterExpression:          scanExpr.Filter(),
		ProjectionExpression:      scanExpr.Projection(),
		ExpressionAttributeNames:  scanExpr.Names(),
		ExpressionAttributeValues: scanExpr.Values(),
		ConsistentRead:            aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return classify("clear tag references", err)
		}
		for _, key := range page.Items {
			_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName:                 aws.String(s.tagTable),
				Key:                       key,
				UpdateExpression:          updateExpr.Update(),
				ExpressionAttributeNames:  updateExpr.Names(),
				ExpressionAttributeValues: updateExpr.Values(),
			})
			if err != nil {
				return classify("clear tag references", err)
			}
		}
	}
	return nil
}
