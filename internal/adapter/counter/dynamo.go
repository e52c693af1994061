package counter

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/xiaot623/gogo/searchstream/internal/observability"
)

type DynamoDBAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoCounter keeps counts in a DynamoDB table keyed by user_id.
type DynamoCounter struct {
	client    DynamoDBAPI
	tableName string
}

// NewDynamoDBClient loads the default AWS configuration.
func NewDynamoDBClient(ctx context.Context) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg), nil
}

func NewDynamoCounter(client DynamoDBAPI, tableName string) *DynamoCounter {
	return &DynamoCounter{
		client:    client,
		tableName: tableName,
	}
}

func (d *DynamoCounter) Increment(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	if d.tableName == "" {
		observability.LoggerFromContext(ctx).Warn("DYNAMODB_TABLE not configured, skipping search count", "user_id", userID)
		return nil
	}

	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression: aws.String("ADD search_count :inc"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":inc": &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to increment search count in DynamoDB for user %s: %w", userID, err)
	}
	return nil
}
