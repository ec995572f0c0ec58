package dynamodb

import (
	"errors"

	"todo-backend/application/ports"
	"todo-backend/domain/core/entities"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// versionMatches is the optimistic lock condition for every overwrite.
func versionMatches(version int) expression.ConditionBuilder {
	return expression.AttributeExists(expression.Name(attrID)).
		And(expression.Name(attrVersion).Equal(expression.Value(version)))
}

func todoUpdateExpr(todo *entities.Todo) (expression.Expression, error) {
	tags := todo.Tags
	if tags == nil {
		tags = []string{}
	}

	update := expression.Set(expression.Name("title"), expression.Value(todo.Title)).
		Set(expression.Name(attrTags), expression.Value(tags)).
		Set(expression.Name(attrVersion), expression.Value(todo.Version+1))

	if todo.Order != nil {
		update = update.Set(expression.Name("order"), expression.Value(*todo.Order))
	} else {
		update = update.Remove(expression.Name("order"))
	}
	if todo.Completed != nil {
		update = update.Set(expression.Name("completed"), expression.Value(*todo.Completed))
	} else {
		update = update.Remove(expression.Name("completed"))
	}

	return expression.NewBuilder().
		WithUpdate(update).
		WithCondition(versionMatches(todo.Version)).
		Build()
}

func tagUpdateExpr(tag *entities.Tag) (expression.Expression, error) {
	todos := tag.Todos
	if todos == nil {
		todos = []string{}
	}

	update := expression.Set(expression.Name("name"), expression.Value(tag.Name)).
		Set(expression.Name(attrTodos), expression.Value(todos)).
		Set(expression.Name(attrVersion), expression.Value(tag.Version+1))

	return expression.NewBuilder().
		WithUpdate(update).
		WithCondition(versionMatches(tag.Version)).
		Build()
}

// txnUpdate wraps an update expression as one item of a write transaction.
func txnUpdate(table, id string, expr expression.Expression) types.TransactWriteItem {
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:                           aws.String(table),
			Key:                                 keyFor(id),
			UpdateExpression:                    expr.Update(),
			ConditionExpression:                 expr.Condition(),
			ExpressionAttributeNames:            expr.Names(),
			ExpressionAttributeValues:           expr.Values(),
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		},
	}
}

// txnTarget describes one item of a write transaction for error reporting.
type txnTarget struct {
	kind     string
	id       string
	notFound func() error
}

// classifyTxn maps a cancelled transaction onto NotFound or Conflict using
// the per-item cancellation reasons, which line up with the request items.
func classifyTxn(operation string, err error, targets []txnTarget) error {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return classify(operation, err)
	}

	for i, reason := range canceled.CancellationReasons {
		if i >= len(targets) {
			break
		}
		switch aws.ToString(reason.Code) {
		case "ConditionalCheckFailed":
			if len(reason.Item) == 0 {
				return targets[i].notFound()
			}
			return ports.NewVersionConflict(targets[i].kind, targets[i].id)
		case "TransactionConflict":
			return ports.NewVersionConflict(targets[i].kind, targets[i].id)
		}
	}
	return classify(operation, err)
}
