package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-auth-otp/internal/domain"
)

// dynamicCodeItem is the stored shape of a domain.DynamicCode.
// expires_at is the table TTL attribute; DynamoDB removes items some time
// after it passes, so readers also compare expires_at_ms.
type dynamicCodeItem struct {
	OwnerID     string `dynamodbav:"owner_id"`
	HashedCode  string `dynamodbav:"hashed_code"`
	ExpiresAt   int64  `dynamodbav:"expires_at"`
	ExpiresAtMs int64  `dynamodbav:"expires_at_ms"`
}

// DynamicCodeRepo keeps one pending code per owner. PK: owner_id.
type DynamicCodeRepo struct {
	client    API
	tableName string
}

func NewDynamicCodeRepo(client API, tableName string) *DynamicCodeRepo {
	return &DynamicCodeRepo{client: client, tableName: tableName}
}

// Put replaces any record held for the owner.
func (r *DynamicCodeRepo) Put(ctx context.Context, c *domain.DynamicCode, _ time.Duration) error {
	item, err := attributevalue.MarshalMap(dynamicCodeItem{
		OwnerID:     c.OwnerID,
		HashedCode:  c.HashedCode,
		ExpiresAt:   c.ExpiresAt.Unix(),
		ExpiresAtMs: c.ExpiresAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("marshal dynamic code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *DynamicCodeRepo) Get(ctx context.Context, ownerID string) (*domain.DynamicCode, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldOwnerID, ownerID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("dynamic code not found: %w", domain.ErrNotFound)
	}
	var item dynamicCodeItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	return &domain.DynamicCode{
		OwnerID:    item.OwnerID,
		HashedCode: item.HashedCode,
		ExpiresAt:  time.UnixMilli(item.ExpiresAtMs),
	}, nil
}

// DeleteIf removes the owner's record only while it still holds hashedCode.
func (r *DynamicCodeRepo) DeleteIf(ctx context.Context, ownerID, hashedCode string) (bool, error) {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(fieldOwnerID, ownerID),
		ConditionExpression:      aws.String("#h = :h"),
		ExpressionAttributeNames: map[string]string{"#h": fieldHashedCode},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":h": &types.AttributeValueMemberS{Value: hashedCode},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
