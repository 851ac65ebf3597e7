package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-checkout/internal/backend"
	"github.com/imrishuroy/go-storefront-checkout/internal/cart"
	"github.com/imrishuroy/go-storefront-checkout/internal/validation"
)

func (h *Handler) getCart(c *gin.Context) {
	items := h.cartFor(c).Load(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"items": items, "total": cart.Total(items)})
}

func (h *Handler) addToCart(c *gin.Context) {
	ctx := c.Request.Context()

	var req validation.AddToCartRequest
	if err := validation.BindAndValidate(c, &req, h.Validate); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	p, err := h.Products.Product(ctx, req.ProductID)
	if err != nil {
		var se *backend.StatusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "product_not_found"})
			return
		}
		h.Log.Warn("product lookup failed", zap.Int64("product_id", req.ProductID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "product_lookup_failed", "detail": err.Error()})
		return
	}

	item := cart.CartItem{ID: p.ID, Title: p.Title, Price: p.Price, ImageURL: p.ImageURL, Qty: 1}
	if item.ID == 0 {
		item.ID = req.ProductID
	}
	if err := h.cartFor(c).Add(ctx, item); err != nil {
		if errors.Is(err, cart.ErrAlreadyInCart) {
			c.JSON(http.StatusConflict, gin.H{"error": "already_in_cart", "detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) removeFromCart(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return
	}
	if err := h.cartFor(c).Remove(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_failed", "detail": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
