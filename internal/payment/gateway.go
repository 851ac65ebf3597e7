// Package payment hands checkout over to the external, redirect based
// payment provider.
package payment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-checkout/internal/backend"
	"github.com/imrishuroy/go-storefront-checkout/internal/cart"
	"github.com/imrishuroy/go-storefront-checkout/internal/events"
)

// ErrMalformedResponse means the ready call succeeded but carried no
// redirect target.
var ErrMalformedResponse = errors.New("payment ready response has no redirectUrl")

// GatewayError is a non-success answer from the ready endpoint.
type GatewayError struct {
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment ready failed (status %d): %s", e.Status, e.Body)
}

// Navigator moves the browser to another location. After Redirect the
// calling page is gone; only durable client storage survives.
type Navigator interface {
	Redirect(url string)
}

// ReadyClient is the backend call the adapter depends on.
type ReadyClient interface {
	Ready(ctx context.Context, amount int64) (*backend.ReadyResponse, error)
}

type Adapter struct {
	client ReadyClient
	events events.Publisher
	log    *zap.Logger
}

func NewAdapter(client ReadyClient, pub events.Publisher, log *zap.Logger) *Adapter {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{client: client, events: pub, log: log}
}

// Initiate requests a payment of amount and, on success, navigates to the
// provider. amount must equal the cart total at call time; the backend
// verifies it. Failures never navigate and never touch the cart.
func (a *Adapter) Initiate(ctx context.Context, amount int64, snapshot []cart.CartItem, nav Navigator) (string, error) {
	resp, err := a.client.Ready(ctx, amount)
	if err != nil {
		var se *backend.StatusError
		switch {
		case errors.As(err, &se):
			return "", &GatewayError{Status: se.Status, Body: se.Body}
		case errors.Is(err, backend.ErrInvalidJSON):
			return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		default:
			return "", fmt.Errorf("payment ready: %w", err)
		}
	}
	if resp.RedirectURL == "" {
		return "", ErrMalformedResponse
	}

	a.log.Info("handing off to payment provider",
		zap.Int64("amount", amount),
		zap.Int("items", len(snapshot)),
		zap.String("order_id", resp.OrderID),
	)
	nav.Redirect(resp.RedirectURL)

	if resp.OrderID != "" {
		ev := events.SessionEvent{OrderID: resp.OrderID, Type: events.TypeRedirected, Amount: amount}
		if err := a.events.Publish(ctx, ev); err != nil {
			a.log.Warn("publish redirected event failed", zap.String("order_id", resp.OrderID), zap.Error(err))
		}
	}
	return resp.RedirectURL, nil
}
