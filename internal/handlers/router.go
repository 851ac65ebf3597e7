// Package handlers is the storefront's HTTP surface: cart API, the order
// page, and the payment provider's return landings.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-checkout/internal/auth"
	"github.com/imrishuroy/go-storefront-checkout/internal/backend"
	"github.com/imrishuroy/go-storefront-checkout/internal/checkout"
	"github.com/imrishuroy/go-storefront-checkout/internal/logging"
	"github.com/imrishuroy/go-storefront-checkout/internal/metrics"
	"github.com/imrishuroy/go-storefront-checkout/internal/reconcile"
	"github.com/imrishuroy/go-storefront-checkout/internal/storage"
	"github.com/imrishuroy/go-storefront-checkout/internal/validation"
)

// ProductClient looks up products when adding to the cart.
type ProductClient interface {
	Product(ctx context.Context, id int64) (*backend.Product, error)
}

// CookieConfig describes the client id cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// Deps groups dependencies for the storefront routes.
type Deps struct {
	Log        *zap.Logger
	Storage    storage.Backend
	Products   ProductClient
	Auth       *auth.Resolver
	Checkout   *checkout.Orchestrator
	Reconciler *reconcile.Reconciler
	Metrics    *metrics.Server
	Validate   *validatorv10.Validate
	Cookie     CookieConfig
	APIRoot    string // origin relative product images resolve against
}

type Handler struct {
	Deps
}

// NewRouter builds the gin engine with every storefront route registered.
func NewRouter(d Deps) *gin.Engine {
	d.Log = logging.OrNop(d.Log)
	if d.Validate == nil {
		d.Validate = validation.New()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewServer()
	}
	if d.Cookie.Name == "" {
		d.Cookie.Name = "sid"
	}
	h := &Handler{Deps: d}

	r := gin.New()
	r.SetHTMLTemplate(loadTemplates())
	r.Use(gin.Recovery(), logging.RequestLogger(d.Log), d.Metrics.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	client := r.Group("/", ClientID(d.Cookie, d.Storage))

	// Login state costs a backend round trip when the local marker is
	// absent, so it is resolved only on routes that read it.
	loginState := auth.Middleware(d.Auth, func(c *gin.Context) auth.LocalStorage { return clientStorage(c) })

	client.GET("/cart", h.getCart)
	client.POST("/cart/items", loginState, auth.RequireLogin(), h.addToCart)
	client.DELETE("/cart/items/:id", h.removeFromCart)

	client.GET("/order", h.orderPage)
	client.POST("/order/address", h.resolveAddress)
	client.POST("/order/place", h.placeOrder)

	client.GET("/payment/kakao/success", h.paymentSuccess)
	client.GET("/payment/kakao/cancel", h.paymentCancel)
	client.GET("/payment/kakao/fail", h.paymentFail)

	return r
}
