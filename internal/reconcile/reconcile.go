// Package reconcile resumes checkout when the payment provider sends the
// browser back to one of the success, cancel or fail landings.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-checkout/internal/backend"
	"github.com/imrishuroy/go-storefront-checkout/internal/events"
	"github.com/imrishuroy/go-storefront-checkout/internal/idempotency"
	"github.com/imrishuroy/go-storefront-checkout/internal/metrics"
)

// State is the terminal presentation of a landing.
type State string

const (
	StateMissingParams   State = "missing_params"
	StateApproved        State = "approved"
	StateAlreadyApproved State = "already_approved"
	StateInProgress      State = "in_progress"
	StateApproveFailed   State = "approve_failed"
	StateCanceled        State = "canceled"
	StateFailed          State = "failed"
)

// DefaultOrdersPath is the order list, served by the storefront frontend or
// the backend rather than this router. Deployments without one at that
// path set checkout.orders_path to an absolute URL.
const (
	DefaultOrdersPath    = "/orders"
	DefaultOrderPath     = "/order"
	DefaultRedirectDelay = 800 * time.Millisecond
)

// clearPending is stored as the DONE response body when approve succeeded
// but the cart could not be cleared. The next landing for the same key
// finishes the clear.
const clearPending = "cart_clear_pending"

// Query is what the provider appends to the success return URL.
type Query struct {
	PgToken string `form:"pg_token"`
	OrderID string `form:"orderId"`
}

// Outcome is rendered by the landing page. RedirectTo is only set when
// the browser should move on by itself after RedirectAfter.
type Outcome struct {
	State         State
	Message       string
	Body          string
	RedirectTo    string
	RedirectAfter time.Duration
	BackTo        string
}

// Approver finalizes a payment session on the backend.
type Approver interface {
	Approve(ctx context.Context, orderID, pgToken string, creds backend.Credentials) error
}

// Cart is the part of the cart store a landing may touch.
type Cart interface {
	Clear(ctx context.Context) error
}

type Options struct {
	// Guard deduplicates approve calls per (orderId, pg_token). Nil disables it.
	Guard         idempotency.Guard
	Events        events.Publisher
	Log           *zap.Logger
	Landings      *prometheus.CounterVec
	OrdersPath    string
	OrderPath     string
	RedirectDelay time.Duration
}

type Reconciler struct {
	approver Approver
	opts     Options
	log      *zap.Logger
}

func New(approver Approver, opts Options) *Reconciler {
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.OrdersPath == "" {
		opts.OrdersPath = DefaultOrdersPath
	}
	if opts.OrderPath == "" {
		opts.OrderPath = DefaultOrderPath
	}
	if opts.RedirectDelay <= 0 {
		opts.RedirectDelay = DefaultRedirectDelay
	}
	return &Reconciler{approver: approver, opts: opts, log: opts.Log}
}

// Key is the idempotency key of one approve attempt.
func Key(orderID, pgToken string) string {
	return fmt.Sprintf("approve:%s:%s", orderID, pgToken)
}

// Success handles the success landing. The cart is cleared only after the
// backend accepted approve; any other path leaves it untouched.
func (r *Reconciler) Success(ctx context.Context, q Query, creds backend.Credentials, c Cart) Outcome {
	if q.PgToken == "" || q.OrderID == "" {
		return r.count(metrics.LandingSuccess, Outcome{
			State:   StateMissingParams,
			Message: "Required parameters are missing. (pg_token/orderId)",
		})
	}

	log := r.log.With(zap.String("order_id", q.OrderID))
	key := Key(q.OrderID, q.PgToken)

	guarded, replay := r.claim(ctx, key, q.OrderID, c, log)
	if replay != nil {
		return r.count(metrics.LandingSuccess, *replay)
	}

	if err := r.approver.Approve(ctx, q.OrderID, q.PgToken, creds); err != nil {
		body := err.Error()
		var se *backend.StatusError
		if errors.As(err, &se) {
			body = se.Body
		}
		log.Warn("approve failed", zap.Error(err))
		if guarded {
			if merr := r.opts.Guard.MarkFailed(ctx, key, body); merr != nil {
				log.Warn("mark idempotency failed", zap.Error(merr))
			}
		}
		r.publish(ctx, events.SessionEvent{
			OrderID: q.OrderID, Type: events.TypeApproveFailed,
			ProviderToken: q.PgToken, IdempotencyKey: key, Detail: body,
		}, log)
		return r.count(metrics.LandingSuccess, Outcome{
			State:   StateApproveFailed,
			Message: "Payment approval failed",
			Body:    body,
		})
	}

	done := ""
	if err := c.Clear(ctx); err != nil {
		log.Error("clear cart after approve", zap.Error(err))
		done = clearPending
	}
	if guarded {
		if err := r.opts.Guard.MarkDone(ctx, key, done, 200); err != nil {
			log.Warn("mark idempotency done", zap.Error(err))
		}
	}
	r.publish(ctx, events.SessionEvent{
		OrderID: q.OrderID, Type: events.TypeApproved,
		ProviderToken: q.PgToken, IdempotencyKey: key,
	}, log)
	log.Info("payment approved")

	return r.count(metrics.LandingSuccess, r.forward(StateApproved, "Payment complete! Taking you to your orders..."))
}

// claim takes the approve key. It returns guarded=true when this request
// owns the key, or a ready outcome when an earlier arrival already did.
// Guard failures degrade to an unguarded approve.
func (r *Reconciler) claim(ctx context.Context, key, orderID string, c Cart, log *zap.Logger) (bool, *Outcome) {
	g := r.opts.Guard
	if g == nil {
		return false, nil
	}
	created, err := g.CreateIfNotExists(ctx, key, orderID)
	if err != nil {
		log.Warn("idempotency guard unavailable", zap.Error(err))
		return false, nil
	}
	if created {
		return true, nil
	}

	rec, err := g.Get(ctx, key)
	if err != nil || rec == nil {
		log.Warn("idempotency record unreadable", zap.Error(err))
		return false, nil
	}
	switch rec.Status {
	case idempotency.StatusDone:
		log.Info("approve already completed for this token")
		if rec.ResponseBody == clearPending {
			r.finishClear(ctx, key, c, log)
		}
		out := r.forward(StateAlreadyApproved, "This payment was already approved. Taking you to your orders...")
		return false, &out
	case idempotency.StatusFailed:
		won, err := g.Reclaim(ctx, key)
		if err != nil {
			log.Warn("reclaim idempotency key", zap.Error(err))
			return false, nil
		}
		if won {
			return true, nil
		}
	}
	return false, &Outcome{
		State:   StateInProgress,
		Message: "Payment approval is already in progress. Refresh this page in a moment.",
	}
}

// finishClear retries the cart clear of an approve that already succeeded.
func (r *Reconciler) finishClear(ctx context.Context, key string, c Cart, log *zap.Logger) {
	if err := c.Clear(ctx); err != nil {
		log.Error("clear cart after approve", zap.Error(err))
		return
	}
	if err := r.opts.Guard.MarkDone(ctx, key, "", 200); err != nil {
		log.Warn("mark idempotency done", zap.Error(err))
	}
}

// Cancel handles the cancel landing. No network call, cart untouched.
func (r *Reconciler) Cancel() Outcome {
	return r.count(metrics.LandingCancel, Outcome{
		State:   StateCanceled,
		Message: "Payment was canceled.",
		BackTo:  r.opts.OrderPath,
	})
}

// Fail handles the fail landing. No network call, cart untouched.
func (r *Reconciler) Fail() Outcome {
	return r.count(metrics.LandingFail, Outcome{
		State:   StateFailed,
		Message: "Payment failed.",
		BackTo:  r.opts.OrderPath,
	})
}

func (r *Reconciler) forward(state State, msg string) Outcome {
	return Outcome{
		State:         state,
		Message:       msg,
		RedirectTo:    r.opts.OrdersPath,
		RedirectAfter: r.opts.RedirectDelay,
	}
}

func (r *Reconciler) publish(ctx context.Context, ev events.SessionEvent, log *zap.Logger) {
	if err := r.opts.Events.Publish(ctx, ev); err != nil {
		log.Warn("publish session event", zap.String("type", ev.Type), zap.Error(err))
	}
}

func (r *Reconciler) count(landing string, out Outcome) Outcome {
	if r.opts.Landings != nil {
		r.opts.Landings.WithLabelValues(landing, string(out.State)).Inc()
	}
	return out
}
