// Package sessions keeps the durable journal of payment sessions: which
// orders were handed to the provider and how each one ended.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/imrishuroy/go-storefront-checkout/internal/aws"
)

var (
	// ErrStatusMismatch is returned when a conditional transition finds a
	// different current status.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
	// ErrExists is returned by Create when the order already has a session.
	ErrExists = errors.New("session already exists")
)

// Store encapsulates operations on the sessions table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new sessions Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Create inserts a session. It never overwrites an existing one.
func (s *Store) Create(ctx context.Context, sess Session) error {
	now := s.nowFunc()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	item, err := attributevalue.MarshalMap(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrExists
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get fetches a session by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Session, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            keyAttr(orderID),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var sess Session
	if err := attributevalue.UnmarshalMap(out.Item, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// UpdateStatus conditionally moves the session from expected -> newStatus.
// detail is stored as last_error when non-empty.
// Returns nil on success, ErrStatusMismatch if condition failed.
func (s *Store) UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus, detail string) error {
	if !CanTransition(expectedStatus, newStatus) {
		return fmt.Errorf("%w: %s -> %s not allowed", ErrStatusMismatch, expectedStatus, newStatus)
	}
	now := s.nowFunc()
	updateExpr := "SET #s = :new, updated_at = :ua"
	values := map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: newStatus},
		":ua":       &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		":expected": &types.AttributeValueMemberS{Value: expectedStatus},
	}
	if detail != "" {
		updateExpr += ", last_error = :le"
		values[":le"] = &types.AttributeValueMemberS{Value: detail}
	}
	input := &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       keyAttr(orderID),
		UpdateExpression:          &updateExpr,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("#s = :expected"),
	}

	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		var sc *types.ConditionalCheckFailedException
		if errors.As(err, &sc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// IncrementAttempts increases the attempts counter by 1. Called once per
// approve attempt that reached the journal.
func (s *Store) IncrementAttempts(ctx context.Context, orderID string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              keyAttr(orderID),
		UpdateExpression: awsString("SET attempts = if_not_exists(attempts, :zero) + :inc, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":inc":  &types.AttributeValueMemberN{Value: "1"},
			":ua":   &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

func keyAttr(orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
}

func awsString(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }
