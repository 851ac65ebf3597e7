package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-checkout/internal/cart"
	"github.com/imrishuroy/go-storefront-checkout/internal/checkout"
	"github.com/imrishuroy/go-storefront-checkout/internal/draft"
	"github.com/imrishuroy/go-storefront-checkout/internal/payment"
	"github.com/imrishuroy/go-storefront-checkout/internal/validation"
)

type orderLine struct {
	cart.CartItem
	ImageSrc string
}

type orderView struct {
	Items   []orderLine
	Total   int64
	Draft   draft.OrderDraft
	Scripts []draft.Script
	Error   string
	Notice  string
}

func (h *Handler) renderOrder(c *gin.Context, status int, d draft.OrderDraft, errMsg, notice string) {
	items := h.cartFor(c).Load(c.Request.Context())
	lines := make([]orderLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, orderLine{CartItem: it, ImageSrc: cart.ResolveImageSrc(h.APIRoot, it.ImageURL)})
	}

	// every response is a fresh page, so the set lives for this render only
	var scripts draft.ScriptSet
	scripts.Inject(draft.PostcodeScriptID, draft.PostcodeScriptSrc)

	c.HTML(status, "order.tmpl", orderView{
		Items:   lines,
		Total:   cart.Total(items),
		Draft:   d,
		Scripts: scripts.Scripts(),
		Error:   errMsg,
		Notice:  notice,
	})
}

func (h *Handler) orderPage(c *gin.Context) {
	h.renderOrder(c, http.StatusOK, draft.FromQuery(c.Query("pm")).Draft(), "", "")
}

// resolveAddress receives the address widget's completion payload. An
// empty payload means the widget never loaded in the browser.
func (h *Handler) resolveAddress(c *gin.Context) {
	var form validation.AddressForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
		return
	}

	b := draft.FromDraft(draft.OrderDraft{})
	b.SetField(draft.FieldDetailAddress, form.DetailAddress)
	if form.PaymentMethod != "" {
		b.SetField(draft.FieldPaymentMethod, form.PaymentMethod)
	}

	var lookup draft.CompletedLookup
	if form.RoadAddress != "" || form.JibunAddress != "" {
		lookup.Result = &draft.AddressResult{RoadAddress: form.RoadAddress, JibunAddress: form.JibunAddress}
	}
	if err := b.ResolveAddress(lookup); err != nil {
		h.renderOrder(c, http.StatusConflict, b.Draft(), err.Error(), "")
		return
	}
	h.renderOrder(c, http.StatusOK, b.Draft(), "", "")
}

func (h *Handler) placeOrder(c *gin.Context) {
	ctx := c.Request.Context()

	var d draft.OrderDraft
	if err := c.ShouldBind(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body", "msg": err.Error()})
		return
	}
	d = draft.FromDraft(d).Draft()

	items := h.cartFor(c).Load(ctx)
	nav := &navigator{c: c}
	res, err := h.Checkout.PlaceOrder(ctx, items, d, nav)
	if err != nil {
		status, msg := h.placeOrderError(err)
		h.renderOrder(c, status, d, msg, "")
		return
	}

	switch res.Kind {
	case checkout.ResultRedirected:
		// navigator already wrote the 303
		return
	case checkout.ResultCardPlaceholder:
		h.renderOrder(c, http.StatusOK, d, "", res.Message)
	}
}

// placeOrderError maps a checkout failure to the status and message the
// order page is re-rendered with.
func (h *Handler) placeOrderError(err error) (int, string) {
	var ve *checkout.ValidationError
	var ge *payment.GatewayError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, ve.Error()
	case errors.As(err, &ge):
		return http.StatusBadGateway, "KakaoPay payment preparation failed\n" + ge.Body
	case errors.Is(err, payment.ErrMalformedResponse):
		return http.StatusBadGateway, "redirectUrl is missing from the payment response."
	default:
		h.Log.Error("place order", zap.Error(err))
		return http.StatusBadGateway, "KakaoPay payment preparation failed\n" + err.Error()
	}
}
