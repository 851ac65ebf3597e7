package idempotency

import (
	"context"
	"errors"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// simpleMock is a very small in-memory mock for PutItem/GetItem/UpdateItem used in unit tests.
// It understands only the condition expressions the store issues.
type simpleMock struct {
	mu          sync.Mutex
	table       map[string]map[string]types.AttributeValue
	putCalls    int
	getCalls    int
	updateCalls int
	err         error
}

func newSimpleMock() *simpleMock {
	return &simpleMock{
		table: map[string]map[string]types.AttributeValue{},
	}
}

func (m *simpleMock) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.err != nil {
		return nil, m.err
	}
	keyAttr := params.Item["idempotency_key"]
	if keyAttr == nil {
		return nil, errors.New("missing key")
	}
	k := keyAttr.(*types.AttributeValueMemberS).Value
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(idempotency_key)" {
		if _, ok := m.table[k]; ok {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.table[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *simpleMock) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.err != nil {
		return nil, m.err
	}
	keyAttr := params.Key["idempotency_key"]
	if keyAttr == nil {
		return nil, errors.New("missing key")
	}
	k := keyAttr.(*types.AttributeValueMemberS).Value
	item, ok := m.table[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *simpleMock) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.err != nil {
		return nil, m.err
	}
	keyAttr := params.Key["idempotency_key"]
	if keyAttr == nil {
		return nil, errors.New("missing key")
	}
	k := keyAttr.(*types.AttributeValueMemberS).Value
	item, ok := m.table[k]
	if !ok {
		return nil, &types.ConditionalCheckFailedException{}
	}
	vals := params.ExpressionAttributeValues
	if params.ConditionExpression != nil && *params.ConditionExpression == "#s = :failed" {
		cur, _ := item["status"].(*types.AttributeValueMemberS)
		if cur == nil || cur.Value != StatusFailed {
			return nil, &types.ConditionalCheckFailedException{}
		}
		item["status"] = vals[":inprog"]
		item["expires_at"] = vals[":exp"]
		item["updated_at"] = vals[":ua"]
		return &dyn.UpdateItemOutput{Attributes: item}, nil
	}
	for attr, name := range map[string]string{
		":rb": "response_body",
		":rs": "response_status",
		":ua": "updated_at",
		":n":  "note",
	} {
		if v, ok := vals[attr]; ok {
			item[name] = v
		}
	}
	if v, ok := vals[":done"]; ok {
		item["status"] = v
	}
	if v, ok := vals[":failed"]; ok {
		item["status"] = v
	}
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *simpleMock) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if keyAttr, ok := params.Key["idempotency_key"].(*types.AttributeValueMemberS); ok {
		delete(m.table, keyAttr.Value)
	}
	return &dyn.DeleteItemOutput{}, nil
}
