package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-checkout/internal/aws"
	"github.com/imrishuroy/go-storefront-checkout/internal/events"
	"github.com/imrishuroy/go-storefront-checkout/internal/metrics"
	"github.com/imrishuroy/go-storefront-checkout/internal/sessions"
)

// Processor applies session events from SQS to the sessions journal.
type Processor struct {
	sessionStore *sessions.Store
	metrics      *metrics.CloudWatch
	log          *zap.Logger
}

// NewProcessor creates a new worker processor with AWS clients injected.
func NewProcessor(clients *aws.AWSClients, sessionsTable string, cw *metrics.CloudWatch, log *zap.Logger) *Processor {
	if cw == nil {
		cw = metrics.NewCloudWatch(nil, "", false)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{
		sessionStore: sessions.NewStore(clients.DynamoDB, sessionsTable),
		metrics:      cw,
		log:          log,
	}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev lambdaevents.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Return error: Lambda will retry. If failed too many times, message goes to DLQ.
			p.log.Error("worker error", zap.String("message_id", rec.MessageId), zap.Error(err))
			return err
		}
	}
	_ = p.metrics.RecordValue(ctx, metrics.MetricSQSMessages, float64(len(ev.Records)), nil)
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec lambdaevents.SQSMessage) error {
	var msg events.SessionEvent
	if err := json.Unmarshal([]byte(rec.Body), &msg); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if msg.OrderID == "" {
		return fmt.Errorf("message %s has no order_id", rec.MessageId)
	}

	log := p.log.With(
		zap.String("order_id", msg.OrderID),
		zap.String("type", msg.Type),
		zap.String("idempotency_key", msg.IdempotencyKey),
	)
	log.Info("received session event")

	switch msg.Type {
	case events.TypeRedirected:
		return p.started(ctx, msg, log)
	case events.TypeApproved:
		return p.finish(ctx, msg, sessions.StatusApproved, metrics.MetricPaymentApproved, log)
	case events.TypeApproveFailed:
		return p.finish(ctx, msg, sessions.StatusFailed, metrics.MetricPaymentFailed, log)
	default:
		// Unknown types are dropped rather than retried forever.
		log.Warn("unknown session event type")
		return nil
	}
}

func (p *Processor) started(ctx context.Context, msg events.SessionEvent, log *zap.Logger) error {
	err := p.sessionStore.Create(ctx, sessions.Session{
		OrderID: msg.OrderID,
		Status:  sessions.StatusRedirected,
		Amount:  msg.Amount,
	})
	if errors.Is(err, sessions.ErrExists) {
		log.Info("duplicate redirected event")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	_ = p.metrics.RecordCount(ctx, metrics.MetricSessionsStarted, nil)
	return nil
}

// finish moves a session into a terminal status. Duplicates and events for
// sessions that already ended are swallowed.
func (p *Processor) finish(ctx context.Context, msg events.SessionEvent, to, metric string, log *zap.Logger) error {
	sess, err := p.sessionStore.Get(ctx, msg.OrderID)
	if err != nil {
		return fmt.Errorf("failed to fetch session: %w", err)
	}

	if sess == nil {
		// the redirected event was lost or is still in flight
		err := p.sessionStore.Create(ctx, sessions.Session{
			OrderID:       msg.OrderID,
			Status:        to,
			Amount:        msg.Amount,
			ProviderToken: msg.ProviderToken,
			LastError:     msg.Detail,
			Attempts:      1,
		})
		if errors.Is(err, sessions.ErrExists) {
			// lost the race with the redirected event; let SQS redeliver
			return fmt.Errorf("session %s appeared concurrently", msg.OrderID)
		}
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		p.emit(ctx, metric, to, log)
		return nil
	}

	if err := p.sessionStore.IncrementAttempts(ctx, msg.OrderID); err != nil {
		log.Warn("increment attempts", zap.Error(err))
	}

	if !sessions.CanTransition(sess.Status, to) {
		log.Info("session already settled", zap.String("status", sess.Status))
		return nil
	}
	err = p.sessionStore.UpdateStatus(ctx, msg.OrderID, sess.Status, to, msg.Detail)
	if errors.Is(err, sessions.ErrStatusMismatch) {
		// Competing worker moved it first; the redelivery re-reads.
		return fmt.Errorf("session %s changed during update: %w", msg.OrderID, err)
	}
	if err != nil {
		return fmt.Errorf("failed to update status to %s: %w", to, err)
	}
	log.Info("session settled", zap.String("from", sess.Status), zap.String("to", to))
	p.emit(ctx, metric, to, log)
	return nil
}

func (p *Processor) emit(ctx context.Context, metric, status string, log *zap.Logger) {
	if err := p.metrics.RecordCount(ctx, metric, map[string]string{"Status": status}); err != nil {
		log.Warn("emit metric", zap.String("metric", metric), zap.Error(err))
	}
}
