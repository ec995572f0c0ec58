package dynamodb

import (
	"context"
	"errors"
	"testing"

	"todo-backend/application/ports"
	"todo-backend/domain/core/entities"
	pkgerrors "todo-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.ScanOutput)
	return out, args.Error(1)
}

func (m *mockAPI) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.BatchWriteItemOutput)
	return out, args.Error(1)
}

func (m *mockAPI) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.TransactWriteItemsOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DescribeTableOutput)
	return out, args.Error(1)
}

func (m *mockAPI) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.CreateTableOutput)
	return out, args.Error(1)
}

func newTestStore() (*Store, *mockAPI) {
	api := new(mockAPI)
	return NewStore(api, "todos", "tags", zap.NewNop()), api
}

func newTodoForTest(title string) *entities.Todo {
	todo, err := entities.NewTodo(title, nil, nil)
	if err != nil {
		panic(err)
	}
	return todo
}

func getFrom(table string) interface{} {
	return mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return aws.ToString(in.TableName) == table
	})
}

func itemOf(t *testing.T, v interface{}) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(v)
	require.NoError(t, err)
	return av
}

func TestTodoRepository_GetByID_NotFound(t *testing.T) {
	store, api := newTestStore()
	api.On("GetItem", mock.Anything, getFrom("todos")).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := store.Todos().GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.Equal(t, "Todo id not found", pkgerrors.GetAppError(err).Message)
}

func TestTodoRepository_GetByID_Success(t *testing.T) {
	store, api := newTestStore()
	order := 3
	api.On("GetItem", mock.Anything, getFrom("todos")).Return(&dynamodb.GetItemOutput{
		Item: itemOf(t, todoItem{ID: "t1", Title: "walk", Order: &order, Tags: []string{"g1"}, Version: 2}),
	}, nil)

	todo, err := store.Todos().GetByID(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, "walk", todo.Title)
	require.NotNil(t, todo.Order)
	assert.Equal(t, 3, *todo.Order)
	assert.Nil(t, todo.Completed)
	assert.Equal(t, []string{"g1"}, todo.Tags)
	assert.Equal(t, 2, todo.Version)
}

func TestTodoRepository_Create(t *testing.T) {
	store, api := newTestStore()
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		return aws.ToString(in.TableName) == "todos" && in.ConditionExpression != nil
	})).Return(&dynamodb.PutItemOutput{}, nil)

	created := newTodoForTest("write tests")
	err := store.Todos().Create(context.Background(), created)

	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, []string{}, created.Tags)
	api.AssertExpectations(t)
}

func TestTodoRepository_Update_ConditionFailures(t *testing.T) {
	tests := []struct {
		name     string
		old      map[string]types.AttributeValue
		assertFn func(error) bool
	}{
		{
			name:     "record gone",
			old:      nil,
			assertFn: pkgerrors.IsNotFound,
		},
		{
			name:     "version moved",
			old:      map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "t1"}},
			assertFn: pkgerrors.IsConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, api := newTestStore()
			api.On("UpdateItem", mock.Anything, mock.Anything).
				Return(nil, &types.ConditionalCheckFailedException{Item: tt.old})

			todo := newTodoForTest("stale")
			todo.ID = "t1"
			todo.Version = 1
			err := store.Todos().Update(context.Background(), todo)

			require.Error(t, err)
			assert.True(t, tt.assertFn(err))
			assert.Equal(t, 1, todo.Version)
		})
	}
}

func TestTodoRepository_List_OrdersByCreation(t *testing.T) {
	store, api := newTestStore()
	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return in.FilterExpression != nil
	})).Return(&dynamodb.ScanOutput{
		Items: []map[string]types.AttributeValue{
			itemOf(t, todoItem{ID: "b", Title: "second", Tags: []string{"g"}, CreatedAt: "2024-01-02T00:00:00Z"}),
			itemOf(t, todoItem{ID: "a", Title: "first", Tags: []string{"g"}, CreatedAt: "2024-01-01T00:00:00Z"}),
		},
	}, nil)

	todos, err := store.Todos().List(context.Background(), ports.TodoFilter{TagID: "g"})

	require.NoError(t, err)
	require.Len(t, todos, 2)
	assert.Equal(t, "first", todos[0].Title)
	assert.Equal(t, "second", todos[1].Title)
}

func TestTodoRepository_List_Empty(t *testing.T) {
	store, api := newTestStore()
	api.On("Scan", mock.Anything, mock.Anything).Return(&dynamodb.ScanOutput{}, nil)

	todos, err := store.Todos().List(context.Background(), ports.TodoFilter{})

	require.NoError(t, err)
	assert.NotNil(t, todos)
	assert.Empty(t, todos)
}

func TestTodoRepository_Delete_RewritesTags(t *testing.T) {
	store, api := newTestStore()
	api.On("GetItem", mock.Anything, getFrom("todos")).Return(&dynamodb.GetItemOutput{
		Item: itemOf(t, todoItem{ID: "t1", Title: "x", Tags: []string{"g1", "g1"}, Version: 4}),
	}, nil)
	api.On("GetItem", mock.Anything, getFrom("tags")).Return(&dynamodb.GetItemOutput{
		Item: itemOf(t, tagItem{ID: "g1", Name: "home", Todos: []string{"t1", "t2", "t1"}, Version: 2}),
	}, nil).Once()
	api.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		return len(in.TransactItems) == 2 &&
			in.TransactItems[0].Delete != nil &&
			in.TransactItems[1].Update != nil
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	deleted, err := store.Todos().Delete(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, "t1", deleted.ID)
	api.AssertExpectations(t)
}

func TestTodoRepository_DeleteAll(t *testing.T) {
	store, api := newTestStore()
	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return aws.ToString(in.TableName) == "todos"
	})).Return(&dynamodb.ScanOutput{
		Items: []map[string]types.AttributeValue{keyFor("t1"), keyFor("t2")},
	}, nil)
	api.On("BatchWriteItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.BatchWriteItemInput) bool {
		return len(in.RequestItems["todos"]) == 2
	})).Return(&dynamodb.BatchWriteItemOutput{}, nil)
	api.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return aws.ToString(in.TableName) == "tags"
	})).Return(&dynamodb.ScanOutput{
		Items: []map[string]types.AttributeValue{keyFor("g1")},
	}, nil)
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		return aws.ToString(in.TableName) == "tags"
	})).Return(&dynamodb.UpdateItemOutput{}, nil)

	n, err := store.Todos().DeleteAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	api.AssertExpectations(t)
}

func TestRelationRepository_AttachTag(t *testing.T) {
	store, api := newTestStore()
	api.On("GetItem", mock.Anything, getFrom("todos")).Return(&dynamodb.GetItemOutput{
		Item: itemOf(t, todoItem{ID: "t1", Title: "x", Tags: []string{}, Version: 1}),
	}, nil)
	api.On("GetItem", mock.Anything, getFrom("tags")).Return(&dynamodb.GetItemOutput{
		Item: itemOf(t, tagItem{ID: "g1", Name: "home", Todos: []string{}, Version: 1}),
	}, nil)
	api.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		return len(in.TransactItems) == 2
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

	todo, err := store.Relations().AttachTag(context.Background(), "t1", "g1")

	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, todo.Tags)
	assert.Equal(t, 2, todo.Version)
}

func TestRelationRepository_AttachTag_MissingTag(t *testing.T) {
	store, api := newTestStore()
	api.On("GetItem", mock.Anything, getFrom("todos")).Return(&dynamodb.GetItemOutput{
		Item: itemOf(t, todoItem{ID: "t1", Title: "x", Tags: []string{}, Version: 1}),
	}, nil)
	api.On("GetItem", mock.Anything, getFrom("tags")).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := store.Relations().AttachTag(context.Background(), "t1", "nope")

	require.Error(t, err)
	assert.Equal(t, "Tag id not found", pkgerrors.GetAppError(err).Message)
	api.AssertNotCalled(t, "TransactWriteItems", mock.Anything, mock.Anything)
}

func TestRelationRepository_AttachTag_TransactionCanceled(t *testing.T) {
	store, api := newTestStore()
	api.On("GetItem", mock.Anything, getFrom("todos")).Return(&dynamodb.GetItemOutput{
		Item: itemOf(t, todoItem{ID: "t1", Title: "x", Tags: []string{}, Version: 1}),
	}, nil)
	api.On("GetItem", mock.Anything, getFrom("tags")).Return(&dynamodb.GetItemOutput{
		Item: itemOf(t, tagItem{ID: "g1", Name: "home", Todos: []string{}, Version: 1}),
	}, nil)
	api.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, &types.TransactionCanceledException{
		CancellationReasons: []types.CancellationReason{
			{Code: aws.String("None")},
			{Code: aws.String("ConditionalCheckFailed"), Item: keyFor("g1")},
		},
	})

	_, err := store.Relations().AttachTag(context.Background(), "t1", "g1")

	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestRelationRepository_DetachTag_NotAttached(t *testing.T) {
	store, api := newTestStore()
	api.On("GetItem", mock.Anything, getFrom("todos")).Return(&dynamodb.GetItemOutput{
		Item: itemOf(t, todoItem{ID: "t1", Title: "x", Tags: []string{"g2"}, Version: 1}),
	}, nil)

	todo, err := store.Relations().DetachTag(context.Background(), "t1", "g1")

	require.NoError(t, err)
	assert.Equal(t, []string{"g2"}, todo.Tags)
	api.AssertNotCalled(t, "TransactWriteItems", mock.Anything, mock.Anything)
}

func TestStore_Ping(t *testing.T) {
	store, api := newTestStore()
	api.On("DescribeTable", mock.Anything, mock.Anything).
		Return(nil, &smithy.GenericAPIError{Code: "ServiceUnavailable", Message: "down"})

	err := store.Ping(context.Background())

	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnavailable(err))
}

func TestStore_EnsureTables_CreatesMissing(t *testing.T) {
	store, api := newTestStore()
	api.On("DescribeTable", mock.Anything, mock.MatchedBy(func(in *dynamodb.DescribeTableInput) bool {
		return aws.ToString(in.TableName) == "todos"
	})).Return(&dynamodb.DescribeTableOutput{}, nil)
	api.On("DescribeTable", mock.Anything, mock.MatchedBy(func(in *dynamodb.DescribeTableInput) bool {
		return aws.ToString(in.TableName) == "tags"
	})).Return(nil, &types.ResourceNotFoundException{Message: aws.String("no table")})
	api.On("CreateTable", mock.Anything, mock.MatchedBy(func(in *dynamodb.CreateTableInput) bool {
		return aws.ToString(in.TableName) == "tags"
	})).Return(&dynamodb.CreateTableOutput{}, nil)

	require.NoError(t, store.EnsureTables(context.Background()))
	api.AssertExpectations(t)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want pkgerrors.ErrorType
	}{
		{"throttled", &smithy.GenericAPIError{Code: "ThrottlingException"}, pkgerrors.ErrorTypeUnavailable},
		{"deadline", context.DeadlineExceeded, pkgerrors.ErrorTypeUnavailable},
		{"validation from service", &smithy.GenericAPIError{Code: "ValidationException"}, pkgerrors.ErrorTypeDatabase},
		{"plain", errors.New("boom"), pkgerrors.ErrorTypeDatabase},
		{"already classified", ports.NewTodoNotFound(), pkgerrors.ErrorTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pkgerrors.GetAppError(classify("op", tt.err))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Type)
		})
	}
}
