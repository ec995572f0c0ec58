package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"todo-backend/application/ports"
	pkgerrors "todo-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"go.uber.org/zap"
)

// API is the subset of the DynamoDB client the store uses. *dynamodb.Client
// satisfies it; tests substitute a mock.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Store implements ports.Store with one DynamoDB table per collection,
// each keyed by the string attribute "id".
type Store struct {
	client    API
	todoTable string
	tagTable  string
	logger    *zap.Logger
}

// NewStore creates a DynamoDB backed store
func NewStore(client API, todoTable, tagTable string, logger *zap.Logger) *Store {
	return &Store{
		client:    client,
		todoTable: todoTable,
		tagTable:  tagTable,
		logger:    logger,
	}
}

func (s *Store) Todos() ports.TodoRepository         { return &todoRepository{store: s} }
func (s *Store) Tags() ports.TagRepository           { return &tagRepository{store: s} }
func (s *Store) Relations() ports.RelationRepository { return &relationRepository{store: s} }

// Ping describes both tables
func (s *Store) Ping(ctx context.Context) error {
	for _, table := range []string{s.todoTable, s.tagTable} {
		_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(table),
		})
		if err != nil {
			return classify("describe table "+table, err)
		}
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *Store) Close() error {
	return nil
}

// EnsureTables creates any missing table with on-demand billing. Meant for
// local development against DynamoDB Local.
func (s *Store) EnsureTables(ctx context.Context) error {
	for _, table := range []string{s.todoTable, s.tagTable} {
		_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
		if err == nil {
			continue
		}
		var notFound *types.ResourceNotFoundException
		if !errors.As(err, &notFound) {
			return classify("describe table "+table, err)
		}

		s.logger.Info("Creating DynamoDB table", zap.String("table", table))
		_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName:   aws.String(table),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(attrID), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(attrID), KeyType: types.KeyTypeHash},
			},
		})
		if err != nil {
			return classify("create table "+table, err)
		}
	}
	return nil
}

// retryableCodes are DynamoDB error codes that mean the service, not the
// request, is at fault.
var retryableCodes = map[string]bool{
	"ProvisionedThroughputExceededException": true,
	"ThrottlingException":                    true,
	"RequestLimitExceeded":                   true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
}

// classify maps SDK failures onto the application error taxonomy.
func classify(operation string, err error) error {
	if pkgerrors.GetAppError(err) != nil {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.NewUnavailableError("dynamodb", err)
	}

	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) {
		return pkgerrors.NewUnavailableError("dynamodb", err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && retryableCodes[apiErr.ErrorCode()] {
		return pkgerrors.NewUnavailableError("dynamodb", err)
	}

	return pkgerrors.NewDatabaseError(operation, fmt.Errorf("dynamodb: %w", err))
}

// classifyConditional turns a failed write condition into NotFound when the
// record is gone and Conflict when it exists with another version.
func classifyConditional(operation string, err error, notFound func() error, kind, id string) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if len(ccf.Item) == 0 {
			return notFound()
		}
		return ports.NewVersionConflict(kind, id)
	}
	return classify(operation, err)
}
