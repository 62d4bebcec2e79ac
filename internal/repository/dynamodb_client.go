package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"market-digest-bot/internal/domain"
)

const (
	pkSubscribers = "SUBSCRIBER"
	pkSummaries   = "SUMMARY"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Client wraps one DynamoDB table holding both the subscriber set and the
// append-only summary log, split by partition key.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// summarySK returns the sort key for a summary record using its UTC
// timestamp.
func summarySK(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

// Add inserts a subscriber id. It returns false without error when the id
// was already present.
func (c *Client) Add(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, errors.New("repository: Add: subscriber id is required")
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":           &types.AttributeValueMemberS{Value: pkSubscribers},
			"SK":           &types.AttributeValueMemberS{Value: id},
			"subscribedAt": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return false, nil
		}
		return false, fmt.Errorf("repository: Add: %w", err)
	}
	return true, nil
}

// Remove deletes a subscriber id. It returns false without error when the id
// was not present.
func (c *Client) Remove(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, errors.New("repository: Remove: subscriber id is required")
	}

	out, err := c.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkSubscribers},
			"SK": &types.AttributeValueMemberS{Value: id},
		},
		// ALL_OLD distinguishes a real removal from a no-op delete.
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("repository: Remove: %w", err)
	}
	return len(out.Attributes) > 0, nil
}

// ListAll returns every subscriber id, following pagination.
func (c *Client) ListAll(ctx context.Context) ([]string, error) {
	ids := make([]string, 0)
	var startKey map[string]types.AttributeValue

	for {
		out, err := c.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(c.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: pkSubscribers},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("repository: ListAll query: %w", err)
		}
		for _, item := range out.Items {
			id, err := strAttr(item, "SK")
			if err != nil {
				return nil, fmt.Errorf("repository: ListAll unmarshal: %w", err)
			}
			ids = append(ids, id)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return ids, nil
}

// Append persists one summary record. The log is append-only; an existing
// sort key is never overwritten.
func (c *Client) Append(ctx context.Context, s domain.Summary) error {
	if strings.TrimSpace(s.Text) == "" {
		return errors.New("repository: Append: summary text is required")
	}
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"PK":        &types.AttributeValueMemberS{Value: pkSummaries},
			"SK":        &types.AttributeValueMemberS{Value: summarySK(createdAt)},
			"text":      &types.AttributeValueMemberS{Value: s.Text},
			"createdAt": &types.AttributeValueMemberS{Value: createdAt.UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: Append: %w", err)
	}
	return nil
}

// MostRecent returns the newest summary record, or nil when the log is empty.
func (c *Client) MostRecent(ctx context.Context) (*domain.Summary, error) {
	out, err := c.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pkSummaries},
		},
		// Read newest first; one record is enough.
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: MostRecent query: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}

	s, err := itemToSummary(out.Items[0])
	if err != nil {
		return nil, fmt.Errorf("repository: MostRecent unmarshal: %w", err)
	}
	return &s, nil
}

// itemToSummary converts a DynamoDB attribute map to a Summary.
func itemToSummary(item map[string]types.AttributeValue) (domain.Summary, error) {
	text, err := strAttr(item, "text")
	if err != nil {
		return domain.Summary{}, err
	}
	createdRaw, err := strAttr(item, "createdAt")
	if err != nil {
		return domain.Summary{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdRaw)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("repository: parse createdAt: %w", err)
	}
	return domain.Summary{CreatedAt: createdAt, Text: text}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
