package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-storefront-checkout/internal/backend"
	"github.com/imrishuroy/go-storefront-checkout/internal/cart"
	"github.com/imrishuroy/go-storefront-checkout/internal/storage"
)

const (
	clientStorageKey = "client_storage"
	cookieNameKey    = "client_cookie_name"
)

// ClientID identifies the browser by a random id cookie, issuing one on
// first contact, and scopes client storage to it.
func ClientID(cfg CookieConfig, store storage.Backend) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cfg.Name)
		if err == nil {
			_, err = uuid.Parse(id)
		}
		if err != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cfg.Name, id, int(cfg.MaxAge.Seconds()), "/", "", cfg.Secure, true)
		}
		c.Set(clientStorageKey, storage.For(store, id))
		c.Set(cookieNameKey, cfg.Name)
		c.Next()
	}
}

func clientStorage(c *gin.Context) *storage.Local {
	return c.MustGet(clientStorageKey).(*storage.Local)
}

func (h *Handler) cartFor(c *gin.Context) *cart.Store {
	return cart.NewStore(clientStorage(c), h.Log)
}

// credentials returns the browser cookies to forward to the backend,
// without the storefront's own client id.
func credentials(c *gin.Context) backend.Credentials {
	own := c.GetString(cookieNameKey)
	var out backend.Credentials
	for _, ck := range c.Request.Cookies() {
		if ck.Name != own {
			out = append(out, ck)
		}
	}
	return out
}

// navigator turns a payment hand-off into a 303 redirect of the current
// request.
type navigator struct {
	c   *gin.Context
	url string
}

func (n *navigator) Redirect(url string) {
	n.url = url
	n.c.Redirect(http.StatusSeeOther, url)
}
