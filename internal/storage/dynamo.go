package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imrishuroy/go-storefront-checkout/internal/aws"
)

// item is the shape persisted in the client storage table.
type item struct {
	StorageKey string    `dynamodbav:"storage_key"` // PK
	Value      string    `dynamodbav:"value"`
	UpdatedAt  time.Time `dynamodbav:"updated_at"`
}

// Dynamo keeps client storage in a DynamoDB table keyed by storage_key.
// PutItem replaces the whole item, which gives the per-key atomic overwrite.
type Dynamo struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewDynamo(client aws.DynamoDBAPI, tableName string) *Dynamo {
	return &Dynamo{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

func (d *Dynamo) Get(ctx context.Context, key string) (string, error) {
	out, err := d.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &d.tableName,
		Key:            d.keyAttr(key),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return "", ErrNotFound
	}
	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return "", fmt.Errorf("unmarshal item: %w", err)
	}
	return it.Value, nil
}

func (d *Dynamo) Set(ctx context.Context, key, value string) error {
	av, err := attributevalue.MarshalMap(item{StorageKey: key, Value: value, UpdatedAt: d.nowFunc().UTC()})
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	if _, err := d.client.PutItem(ctx, &dyn.PutItemInput{TableName: &d.tableName, Item: av}); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

func (d *Dynamo) Delete(ctx context.Context, key string) error {
	if _, err := d.client.DeleteItem(ctx, &dyn.DeleteItemInput{TableName: &d.tableName, Key: d.keyAttr(key)}); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (d *Dynamo) keyAttr(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"storage_key": &types.AttributeValueMemberS{Value: key},
	}
}

func awsBool(b bool) *bool { return &b }
