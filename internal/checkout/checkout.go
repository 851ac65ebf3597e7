// Package checkout places an order from the cart and the order draft.
package checkout

import (
	"context"
	"errors"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-checkout/internal/cart"
	"github.com/imrishuroy/go-storefront-checkout/internal/draft"
	"github.com/imrishuroy/go-storefront-checkout/internal/payment"
	"github.com/imrishuroy/go-storefront-checkout/internal/validation"
)

var (
	ErrEmptyCart      = errors.New("your cart is empty")
	ErrMissingAddress = errors.New("please enter a shipping address")
)

// CardPlaceholderMessage is shown for card orders, which have no payment
// integration yet.
const CardPlaceholderMessage = "order completed (card payment not yet implemented)"

// ValidationError blocks submission until the user corrects the input.
// Err is ErrEmptyCart, ErrMissingAddress, or the raw validator error.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// Kind tells the page what happened after a successful placement.
type Kind string

const (
	ResultRedirected      Kind = "redirected"
	ResultCardPlaceholder Kind = "card_placeholder"
)

type Result struct {
	Kind        Kind
	RedirectURL string
	Message     string
}

// Initiator starts a redirect payment.
type Initiator interface {
	Initiate(ctx context.Context, amount int64, snapshot []cart.CartItem, nav payment.Navigator) (string, error)
}

type Orchestrator struct {
	payments  Initiator
	validate  *validatorv10.Validate
	log       *zap.Logger
	checkouts *prometheus.CounterVec
}

// New builds an orchestrator. checkouts may be nil.
func New(payments Initiator, v *validatorv10.Validate, log *zap.Logger, checkouts *prometheus.CounterVec) *Orchestrator {
	if v == nil {
		v = validation.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{payments: payments, validate: v, log: log, checkouts: checkouts}
}

// PlaceOrder checks preconditions in order (cart first, then address) and
// dispatches on the payment method. Only the kakao path leaves the page;
// every other method takes the card placeholder, which never touches the cart.
func (o *Orchestrator) PlaceOrder(ctx context.Context, items []cart.CartItem, d draft.OrderDraft, nav payment.Navigator) (Result, error) {
	method := string(d.PaymentMethod)
	if err := o.check(items, d); err != nil {
		o.count(method, "invalid")
		return Result{}, err
	}

	if d.PaymentMethod != draft.PaymentKakao {
		o.log.Info("card order placed without payment", zap.Int("items", len(items)))
		o.count(method, string(ResultCardPlaceholder))
		return Result{Kind: ResultCardPlaceholder, Message: CardPlaceholderMessage}, nil
	}

	url, err := o.payments.Initiate(ctx, cart.Total(items), items, nav)
	if err != nil {
		o.count(method, "error")
		return Result{}, err
	}
	o.count(method, string(ResultRedirected))
	return Result{Kind: ResultRedirected, RedirectURL: url}, nil
}

func (o *Orchestrator) check(items []cart.CartItem, d draft.OrderDraft) error {
	in := validation.PlaceOrderInput{Address: d.Address}
	in.Items = make([]validation.CartLine, 0, len(items))
	for _, it := range items {
		in.Items = append(in.Items, validation.CartLine{ID: it.ID, Price: it.Price, Qty: it.Qty})
	}

	err := o.validate.Struct(in)
	if err == nil {
		return nil
	}
	switch field := validation.FailedField(err); field {
	case "items":
		return &ValidationError{Field: field, Err: ErrEmptyCart}
	case "address":
		return &ValidationError{Field: field, Err: ErrMissingAddress}
	default:
		return &ValidationError{Field: field, Err: err}
	}
}

func (o *Orchestrator) count(method, result string) {
	if o.checkouts == nil {
		return
	}
	if method == "" {
		method = string(draft.PaymentCard)
	}
	o.checkouts.WithLabelValues(method, result).Inc()
}
