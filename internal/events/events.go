// Package events carries payment session transitions from the storefront
// API to the journal worker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/imrishuroy/go-storefront-checkout/internal/aws"
)

// Event types.
const (
	TypeRedirected    = "redirected"
	TypeApproved      = "approved"
	TypeApproveFailed = "approve_failed"
)

// SessionEvent is the payload sent from API -> SQS -> worker.
type SessionEvent struct {
	OrderID        string    `json:"order_id"`
	Type           string    `json:"type"`
	Amount         int64     `json:"amount,omitempty"`
	ProviderToken  string    `json:"provider_token,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher sends session events.
type Publisher interface {
	Publish(ctx context.Context, ev SessionEvent) error
}

// SQSPublisher publishes events as JSON messages on an SQS queue.
type SQSPublisher struct {
	pub *aws.Publisher
}

func NewSQSPublisher(client aws.SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{pub: aws.NewPublisher(client, queueURL)}
}

func (p *SQSPublisher) Publish(ctx context.Context, ev SessionEvent) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}
	attrs := map[string]string{
		"order_id":       ev.OrderID,
		"event_type":     ev.Type,
		"correlation_id": ev.CorrelationID,
	}
	return p.pub.Send(ctx, string(body), attrs)
}

// Nop drops every event. Used when no queue is configured.
type Nop struct{}

func (Nop) Publish(context.Context, SessionEvent) error { return nil }
