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
	"github.com/go-auth-otp/internal/pkg/clock"
)

// Uniqueness guard items share the users table. Their key is "<kind>#<value>"
// and they carry no username or phone attribute, so the GSIs never see them.
const (
	guardUsername = "username"
	guardPhone    = "phone"
)

// UserRepo provides typed DynamoDB operations for the users table.
type UserRepo struct {
	client    API
	tableName string
	clock     clock.Clocker
}

func NewUserRepo(client API, tableName string, clk clock.Clocker) *UserRepo {
	return &UserRepo{client: client, tableName: tableName, clock: clk}
}

// Put inserts a new user together with its username and phone guards in one
// transaction, so concurrent registrations cannot both claim a value.
func (r *UserRepo) Put(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     item,
				ConditionExpression:      aws.String("attribute_not_exists(#id)"),
				ExpressionAttributeNames: map[string]string{"#id": fieldUserID},
			}},
			r.claim(guardUsername, u.Username, u.UserID),
			r.claim(guardPhone, u.PhoneNumber, u.UserID),
		},
	})
	return cancelled(err,
		fmt.Errorf("user %s exists: %w", u.UserID, domain.ErrConflict),
		domain.ErrUsernameTaken,
		domain.ErrPhoneNumberTaken,
	)
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldUserID, userID),
	})
	if err != nil {
		return nil, err
	}
	if _, isUser := out.Item[fieldUsername]; !isUser {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.queryGSI(ctx, indexUsername, fieldUsername, username)
}

func (r *UserRepo) GetByPhoneNumber(ctx context.Context, phone string) (*domain.User, error) {
	return r.queryGSI(ctx, indexPhoneNumber, fieldPhoneNumber, phone)
}

// ChangePhoneNumber moves the user from one phone number to another and
// stamps updated_at. It fails with domain.ErrConflict when the stored number
// is no longer from, and with domain.ErrPhoneNumberTaken when to is claimed.
func (r *UserRepo) ChangePhoneNumber(ctx context.Context, userID, from, to string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldPhoneNumber: to,
		fieldUpdatedAt:   r.clock.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	ue.Names["#id"] = fieldUserID
	ue.Names["#cur"] = fieldPhoneNumber
	ue.Values[":cur"] = &types.AttributeValueMemberS{Value: from}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:                 aws.String(r.tableName),
				Key:                       strKey(fieldUserID, userID),
				UpdateExpression:          aws.String(ue.Expr),
				ConditionExpression:       aws.String("attribute_exists(#id) AND #cur = :cur"),
				ExpressionAttributeNames:  ue.Names,
				ExpressionAttributeValues: ue.Values,
			}},
			{Delete: &types.Delete{
				TableName:                aws.String(r.tableName),
				Key:                      strKey(fieldUserID, guardKey(guardPhone, from)),
				ConditionExpression:      aws.String("attribute_not_exists(#id) OR #o = :o"),
				ExpressionAttributeNames: map[string]string{"#id": fieldUserID, "#o": fieldGuardOwner},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":o": &types.AttributeValueMemberS{Value: userID},
				},
			}},
			r.claim(guardPhone, to, userID),
		},
	})
	return cancelled(err,
		fmt.Errorf("user %s changed concurrently: %w", userID, domain.ErrConflict),
		fmt.Errorf("phone guard of %s: %w", userID, domain.ErrConflict),
		domain.ErrPhoneNumberTaken,
	)
}

func (r *UserRepo) claim(kind, value, owner string) types.TransactWriteItem {
	return types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(r.tableName),
		Item: map[string]types.AttributeValue{
			fieldUserID:     &types.AttributeValueMemberS{Value: guardKey(kind, value)},
			fieldGuardOwner: &types.AttributeValueMemberS{Value: owner},
		},
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": fieldUserID},
	}}
}

func guardKey(kind, value string) string { return kind + "#" + value }

// cancelled maps a cancelled transaction to the error of the first item whose
// condition failed. perItem is indexed like the transaction's items.
func cancelled(err error, perItem ...error) error {
	if err == nil {
		return nil
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for i, reason := range tce.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" && i < len(perItem) {
				return perItem[i]
			}
		}
	}
	return err
}

func (r *UserRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.User, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	var u domain.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}
