package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-storefront-checkout/internal/reconcile"
)

type landingView struct {
	Title         string
	State         reconcile.State
	Message       string
	Body          string
	RedirectTo    string
	RedirectAfter time.Duration
	BackTo        string
}

func renderLanding(c *gin.Context, title string, out reconcile.Outcome) {
	c.HTML(http.StatusOK, "landing.tmpl", landingView{
		Title:         title,
		State:         out.State,
		Message:       out.Message,
		Body:          out.Body,
		RedirectTo:    out.RedirectTo,
		RedirectAfter: out.RedirectAfter,
		BackTo:        out.BackTo,
	})
}

func (h *Handler) paymentSuccess(c *gin.Context) {
	var q reconcile.Query
	_ = c.ShouldBindQuery(&q)
	out := h.Reconciler.Success(c.Request.Context(), q, credentials(c), h.cartFor(c))
	renderLanding(c, "KakaoPay payment", out)
}

func (h *Handler) paymentCancel(c *gin.Context) {
	renderLanding(c, "Payment canceled", h.Reconciler.Cancel())
}

func (h *Handler) paymentFail(c *gin.Context) {
	renderLanding(c, "Payment failed", h.Reconciler.Fail())
}
