package counter

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockDynamoDB struct {
	mock.Mock
}

func (m *MockDynamoDB) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.UpdateItemOutput), args.Error(1)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Increment(context.Background(), "u1"))
}

func TestRedisCounter_Increment(t *testing.T) {
	db, mock := redismock.NewClientMock()
	counter := NewRedisCounter(db)
	ctx := context.TODO()

	// Success
	mock.ExpectIncrBy("search_count:u1", 1).SetVal(3)
	assert.NoError(t, counter.Increment(ctx, "u1"))

	// Error
	mock.ExpectIncrBy("search_count:u1", 1).SetErr(errors.New("redis error"))
	err := counter.Increment(ctx, "u1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis incrby failure")

	// Anonymous callers never reach redis
	assert.NoError(t, counter.Increment(ctx, ""))

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestDynamoCounter_NoTable(t *testing.T) {
	counter := NewDynamoCounter(nil, "")
	assert.NoError(t, counter.Increment(context.Background(), "u1"))
}

func TestDynamoCounter_Anonymous(t *testing.T) {
	mockDB := new(MockDynamoDB)
	counter := NewDynamoCounter(mockDB, "usage")
	assert.NoError(t, counter.Increment(context.Background(), ""))
	mockDB.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything, mock.Anything)
}

func TestDynamoCounter_Success(t *testing.T) {
	mockDB := new(MockDynamoDB)
	counter := NewDynamoCounter(mockDB, "usage")

	mockDB.On("UpdateItem", mock.Anything, mock.MatchedBy(func(input *dynamodb.UpdateItemInput) bool {
		key, ok := input.Key["user_id"].(*types.AttributeValueMemberS)
		inc, incOK := input.ExpressionAttributeValues[":inc"].(*types.AttributeValueMemberN)
		return *input.TableName == "usage" && ok && key.Value == "u1" &&
			*input.UpdateExpression == "ADD search_count :inc" && incOK && inc.Value == "1"
	}), mock.Anything).Return(&dynamodb.UpdateItemOutput{}, nil)

	assert.NoError(t, counter.Increment(context.Background(), "u1"))
	mockDB.AssertExpectations(t)
}

func TestDynamoCounter_Error(t *testing.T) {
	mockDB := new(MockDynamoDB)
	counter := NewDynamoCounter(mockDB, "usage")

	mockDB.On("UpdateItem", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("dynamo error"))

	err := counter.Increment(context.Background(), "u1")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to increment search count")
}
