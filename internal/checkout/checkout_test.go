package checkout

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-storefront-checkout/internal/backend"
	"github.com/imrishuroy/go-storefront-checkout/internal/cart"
	"github.com/imrishuroy/go-storefront-checkout/internal/draft"
	"github.com/imrishuroy/go-storefront-checkout/internal/payment"
	"github.com/imrishuroy/go-storefront-checkout/internal/reconcile"
	"github.com/imrishuroy/go-storefront-checkout/internal/storage"
)

type fakeInitiator struct {
	url     string
	err     error
	amounts []int64
}

func (f *fakeInitiator) Initiate(ctx context.Context, amount int64, snapshot []cart.CartItem, nav payment.Navigator) (string, error) {
	f.amounts = append(f.amounts, amount)
	if f.err != nil {
		return "", f.err
	}
	nav.Redirect(f.url)
	return f.url, nil
}

type recordingNav struct{ urls []string }

func (n *recordingNav) Redirect(url string) { n.urls = append(n.urls, url) }

var twoItems = []cart.CartItem{
	{ID: 1, Title: "A", Price: 1000, Qty: 2},
	{ID: 2, Title: "B", Price: 2500, Qty: 1},
}

func TestPlaceOrder_EmptyCartWinsOverMissingAddress(t *testing.T) {
	o := New(&fakeInitiator{}, nil, nil, nil)
	_, err := o.PlaceOrder(context.Background(), nil, draft.OrderDraft{PaymentMethod: draft.PaymentKakao}, &recordingNav{})

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPlaceOrder_MissingAddress(t *testing.T) {
	pay := &fakeInitiator{}
	nav := &recordingNav{}
	_, err := New(pay, nil, nil, nil).PlaceOrder(context.Background(), twoItems, draft.OrderDraft{PaymentMethod: draft.PaymentKakao}, nav)

	assert.ErrorIs(t, err, ErrMissingAddress)
	assert.Empty(t, pay.amounts)
	assert.Empty(t, nav.urls)
}

func TestPlaceOrder_KakaoSendsCartTotal(t *testing.T) {
	pay := &fakeInitiator{url: "https://provider/pay"}
	nav := &recordingNav{}
	res, err := New(pay, nil, nil, nil).PlaceOrder(context.Background(), twoItems,
		draft.OrderDraft{Address: "Seoul", PaymentMethod: draft.PaymentKakao}, nav)

	require.NoError(t, err)
	assert.Equal(t, ResultRedirected, res.Kind)
	assert.Equal(t, []int64{4500}, pay.amounts)
	assert.Equal(t, []string{"https://provider/pay"}, nav.urls)
}

func TestPlaceOrder_GatewayErrorPropagates(t *testing.T) {
	pay := &fakeInitiator{err: &payment.GatewayError{Status: 500, Body: "down"}}
	_, err := New(pay, nil, nil, nil).PlaceOrder(context.Background(), twoItems,
		draft.OrderDraft{Address: "Seoul", PaymentMethod: draft.PaymentKakao}, &recordingNav{})

	var ge *payment.GatewayError
	assert.True(t, errors.As(err, &ge))
}

func TestPlaceOrder_CardIsPlaceholder(t *testing.T) {
	for _, pm := range []draft.PaymentMethod{draft.PaymentCard, "", "bank"} {
		pay := &fakeInitiator{}
		nav := &recordingNav{}
		res, err := New(pay, nil, nil, nil).PlaceOrder(context.Background(), twoItems,
			draft.OrderDraft{Address: "Seoul", PaymentMethod: pm}, nav)

		require.NoError(t, err)
		assert.Equal(t, ResultCardPlaceholder, res.Kind)
		assert.Equal(t, CardPlaceholderMessage, res.Message)
		assert.Empty(t, pay.amounts)
		assert.Empty(t, nav.urls)
	}
}

// End to end: place a kakao order against a fake backend, then land on
// success. The cart is untouched until approve succeeds.
func TestCheckoutThroughApprove(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case backend.PathReady:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"redirectUrl":"https://provider/pay?x=1","orderId":"o-77"}`))
		case backend.PathApprove:
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	client := backend.NewClient(srv.URL, 0, nil)
	local := storage.For(storage.NewMemory(), "c-1")
	store := cart.NewStore(local, nil)
	require.NoError(t, store.Add(ctx, cart.CartItem{ID: 1, Title: "A", Price: 5000, Qty: 1}))
	before, _, _ := local.GetItem(ctx, cart.StorageKey)

	nav := &recordingNav{}
	o := New(payment.NewAdapter(client, nil, nil), nil, nil, nil)
	res, err := o.PlaceOrder(ctx, store.Load(ctx), draft.OrderDraft{Address: "Seoul", PaymentMethod: draft.PaymentKakao}, nav)
	require.NoError(t, err)
	assert.Equal(t, ResultRedirected, res.Kind)
	assert.Equal(t, []string{"https://provider/pay?x=1"}, nav.urls)

	after, _, _ := local.GetItem(ctx, cart.StorageKey)
	assert.Equal(t, before, after)

	out := reconcile.New(client, reconcile.Options{}).
		Success(ctx, reconcile.Query{OrderID: "o-77", PgToken: "pg-1"}, nil, store)
	assert.Equal(t, reconcile.StateApproved, out.State)

	final, _, _ := local.GetItem(ctx, cart.StorageKey)
	assert.Equal(t, "[]", final)
}
