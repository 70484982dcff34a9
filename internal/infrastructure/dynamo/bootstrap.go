package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TableAdmin is the control-plane subset of the DynamoDB client used by Bootstrap.
type TableAdmin interface {
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, in *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// TableDef describes one table Bootstrap should ensure.
type TableDef struct {
	Name      string
	HashKey   string
	Indexes   map[string]string // index name -> hash key attribute
	TTLField  string
	stringAtt []string
}

// UsersTable keys identities by user id with lookup indexes on username and phone.
func UsersTable(name string) TableDef {
	return TableDef{
		Name:    name,
		HashKey: fieldUserID,
		Indexes: map[string]string{
			indexUsername:    fieldUsername,
			indexPhoneNumber: fieldPhoneNumber,
		},
		stringAtt: []string{fieldUserID, fieldUsername, fieldPhoneNumber},
	}
}

// DynamicCodesTable keys one pending code per owner and expires items natively.
func DynamicCodesTable(name string) TableDef {
	return TableDef{
		Name:      name,
		HashKey:   fieldOwnerID,
		TTLField:  fieldExpiresAt,
		stringAtt: []string{fieldOwnerID},
	}
}

// Bootstrap creates the given tables if they don't already exist. Existing
// tables are skipped; any other failure is collected and returned.
func Bootstrap(ctx context.Context, admin TableAdmin, defs ...TableDef) error {
	var errs []error
	for _, def := range defs {
		if err := createTable(ctx, admin, def.input()); err != nil {
			errs = append(errs, err)
			continue
		}
		if def.TTLField == "" {
			continue
		}
		if err := enableTTL(ctx, admin, def.Name, def.TTLField); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s TableDef) input() *dynamodb.CreateTableInput {
	in := &dynamodb.CreateTableInput{
		TableName:   aws.String(s.Name),
		BillingMode: types.BillingModePayPerRequest,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(s.HashKey), KeyType: types.KeyTypeHash},
		},
	}
	for _, attr := range s.stringAtt {
		in.AttributeDefinitions = append(in.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(attr), AttributeType: types.ScalarAttributeTypeS,
		})
	}
	for _, name := range sortedKeys(s.Indexes) {
		in.GlobalSecondaryIndexes = append(in.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
			IndexName: aws.String(name),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(s.Indexes[name]), KeyType: types.KeyTypeHash},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}
	return in
}

func createTable(ctx context.Context, admin TableAdmin, in *dynamodb.CreateTableInput) error {
	_, err := admin.CreateTable(ctx, in)
	var inUse *types.ResourceInUseException
	switch {
	case err == nil:
		slog.Info("created table", "table", *in.TableName)
	case errors.As(err, &inUse):
		slog.Debug("table exists", "table", *in.TableName)
	default:
		return fmt.Errorf("create table %s: %w", *in.TableName, err)
	}
	return nil
}

func enableTTL(ctx context.Context, admin TableAdmin, table, attr string) error {
	_, err := admin.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(table),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(attr),
		},
	})
	if err != nil {
		return fmt.Errorf("enable TTL on %s: %w", table, err)
	}
	return nil
}
