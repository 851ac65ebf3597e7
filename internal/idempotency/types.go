package idempotency

import (
	"context"
	"errors"
	"time"
)

// Status values for idempotency entries
const (
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// ErrNotFound is returned by transitions on a key that was never created.
var ErrNotFound = errors.New("idempotency record not found")

// IdempotencyRecord is the shape persisted per idempotency key.
type IdempotencyRecord struct {
	IdempotencyKey string    `dynamodbav:"idempotency_key" json:"idempotency_key"` // PK
	Status         string    `dynamodbav:"status" json:"status"`
	OrderID        string    `dynamodbav:"order_id,omitempty" json:"order_id,omitempty"`
	ResponseBody   string    `dynamodbav:"response_body,omitempty" json:"response_body,omitempty"`
	ResponseStatus int       `dynamodbav:"response_status,omitempty" json:"response_status,omitempty"`
	CreatedAt      time.Time `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at" json:"updated_at"`
	ExpiresAt      int64     `dynamodbav:"expires_at" json:"expires_at"` // TTL epoch seconds
	Note           string    `dynamodbav:"note,omitempty" json:"note,omitempty"`
}

// Guard is implemented by every idempotency store.
//
// CreateIfNotExists claims key as IN_PROGRESS and reports whether this call
// created it. Reclaim moves a FAILED key back to IN_PROGRESS and reports
// whether this call won it.
type Guard interface {
	CreateIfNotExists(ctx context.Context, key, orderID string) (bool, error)
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	MarkDone(ctx context.Context, key, responseBody string, responseStatus int) error
	MarkFailed(ctx context.Context, key, note string) error
	Reclaim(ctx context.Context, key string) (bool, error)
}

var (
	_ Guard = (*Store)(nil)
	_ Guard = (*RedisStore)(nil)
	_ Guard = (*MemoryStore)(nil)
)
