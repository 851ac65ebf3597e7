package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a simple single-table mock keyed by order_id.
type mockDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func pk(key map[string]types.AttributeValue) (string, error) {
	v, ok := key["order_id"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("no order_id attribute")
	}
	return v.Value, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := pk(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && *params.ConditionExpression == "attribute_not_exists(order_id)" {
		if _, exists := m.items[k]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.items[k] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := pk(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.items[k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := pk(params.Key)
	if err != nil {
		return nil, err
	}
	item, exists := m.items[k]
	if !exists {
		return nil, &types.ConditionalCheckFailedException{}
	}
	vals := params.ExpressionAttributeValues
	if params.ConditionExpression != nil && *params.ConditionExpression == "#s = :expected" {
		curr, ok := item["status"].(*types.AttributeValueMemberS)
		if !ok || curr.Value != vals[":expected"].(*types.AttributeValueMemberS).Value {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	if v, ok := vals[":new"]; ok {
		item["status"] = v
	}
	if v, ok := vals[":le"]; ok {
		item["last_error"] = v
	}
	if v, ok := vals[":ua"]; ok {
		item["updated_at"] = v
	}
	if _, ok := vals[":inc"]; ok {
		var n int
		if cur, ok := item["attempts"]; ok {
			_ = attributevalue.Unmarshal(cur, &n)
		}
		av, _ := attributevalue.Marshal(n + 1)
		item["attempts"] = av
	}
	return &dyn.UpdateItemOutput{Attributes: item}, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if k, err := pk(params.Key); err == nil {
		delete(m.items, k)
	}
	return &dyn.DeleteItemOutput{}, nil
}

func TestCreate_RejectsDuplicate(t *testing.T) {
	store := NewStore(newMockDynamo(), "sessions")
	ctx := context.Background()

	sess := Session{OrderID: "o-1", Status: StatusRedirected, Amount: 4500}
	if err := store.Create(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, sess); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, err := store.Get(ctx, "o-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Amount != 4500 || got.Status != StatusRedirected {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("created_at not set")
	}
}

func TestGet_Missing(t *testing.T) {
	got, err := NewStore(newMockDynamo(), "sessions").Get(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", got, err)
	}
}

func TestUpdateStatus_Condition_SuccessAndFail(t *testing.T) {
	mock := newMockDynamo()
	now := time.Now()
	item, _ := attributevalue.MarshalMap(Session{
		OrderID:   "order-10",
		Status:    StatusRedirected,
		Amount:    1000,
		CreatedAt: now,
		UpdatedAt: now,
	})
	mock.items["order-10"] = item

	store := NewStore(mock, "sessions")

	// success: REDIRECTED -> FAILED
	if err := store.UpdateStatus(context.Background(), "order-10", StatusRedirected, StatusFailed, "400 bad token"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	// failure: REDIRECTED -> APPROVED (but current is FAILED)
	err := store.UpdateStatus(context.Background(), "order-10", StatusRedirected, StatusApproved, "")
	if !errors.Is(err, ErrStatusMismatch) {
		t.Fatalf("expected ErrStatusMismatch, got %v", err)
	}

	got, _ := store.Get(context.Background(), "order-10")
	if got.Status != StatusFailed || got.LastError != "400 bad token" {
		t.Fatalf("unexpected session: %+v", got)
	}

	// retry success: FAILED -> APPROVED
	if err := store.UpdateStatus(context.Background(), "order-10", StatusFailed, StatusApproved, ""); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestUpdateStatus_ApprovedIsTerminal(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "sessions")
	if err := store.Create(context.Background(), Session{OrderID: "o", Status: StatusApproved}); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, to := range []string{StatusFailed, StatusRedirected} {
		err := store.UpdateStatus(context.Background(), "o", StatusApproved, to, "")
		if !errors.Is(err, ErrStatusMismatch) {
			t.Fatalf("APPROVED -> %s: expected ErrStatusMismatch, got %v", to, err)
		}
	}
}

func TestIncrementAttempts(t *testing.T) {
	mock := newMockDynamo()
	store := NewStore(mock, "sessions")
	ctx := context.Background()
	_ = store.Create(ctx, Session{OrderID: "o", Status: StatusRedirected})

	for i := 0; i < 2; i++ {
		if err := store.IncrementAttempts(ctx, "o"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	got, _ := store.Get(ctx, "o")
	if got.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", got.Attempts)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusRedirected, StatusApproved, true},
		{StatusRedirected, StatusFailed, true},
		{StatusFailed, StatusApproved, true},
		{StatusApproved, StatusFailed, false},
		{StatusApproved, StatusApproved, false},
		{StatusFailed, StatusRedirected, false},
		{StatusFailed, StatusFailed, false},
		{"UNKNOWN", StatusApproved, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
