// Package auth resolves whether the current browser belongs to a signed-in
// user. The local "user" marker is checked first; the backend's /auth/me
// is only asked when the marker is absent.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-checkout/internal/backend"
)

// StorageKey is the client storage key whose presence means signed in.
const StorageKey = "user"

// DefaultRole is assumed when the backend omits one.
const DefaultRole = "consumer"

// State is the login state of one request. The zero value is "not yet
// resolved".
type State struct {
	mu       sync.RWMutex
	known    bool
	loggedIn bool
	role     string
}

// Read returns whether the state was resolved, and if so the login status
// and role.
func (s *State) Read() (known, loggedIn bool, role string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.known, s.loggedIn, s.role
}

// Set records a resolved state.
func (s *State) Set(loggedIn bool, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.known = true
	s.loggedIn = loggedIn
	s.role = role
}

// LocalStorage is the client storage the resolver reads the marker from.
type LocalStorage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
}

// MeClient asks the backend who the caller is.
type MeClient interface {
	Me(ctx context.Context, creds backend.Credentials) (*backend.Me, error)
}

type Resolver struct {
	client MeClient
	log    *zap.Logger
}

func NewResolver(client MeClient, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{client: client, log: log}
}

// localUser is the marker payload. Only role is read.
type localUser struct {
	Role string `json:"role"`
}

// Resolve fills st. Any failure resolves to logged out.
func (r *Resolver) Resolve(ctx context.Context, local LocalStorage, creds backend.Credentials, st *State) {
	raw, ok, err := local.GetItem(ctx, StorageKey)
	if err != nil {
		r.log.Warn("read user marker", zap.Error(err))
	}
	if ok {
		role := DefaultRole
		var u localUser
		if json.Unmarshal([]byte(raw), &u) == nil && u.Role != "" {
			role = u.Role
		}
		st.Set(true, role)
		return
	}

	me, err := r.client.Me(ctx, creds)
	if err != nil {
		r.log.Debug("auth/me unavailable, treating as logged out", zap.Error(err))
		st.Set(false, "")
		return
	}
	role := me.Role
	if role == "" {
		role = DefaultRole
	}
	st.Set(true, role)
}

const ctxKey = "auth_state"

// Middleware resolves the login state of every request and stores it in
// the gin context. storageFor returns the caller's client storage.
func Middleware(r *Resolver, storageFor func(*gin.Context) LocalStorage) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := &State{}
		r.Resolve(c.Request.Context(), storageFor(c), backend.Credentials(c.Request.Cookies()), st)
		c.Set(ctxKey, st)
		c.Next()
	}
}

// FromContext returns the state stored by Middleware, or an unresolved
// state when the middleware did not run.
func FromContext(c *gin.Context) *State {
	if v, ok := c.Get(ctxKey); ok {
		if st, ok := v.(*State); ok {
			return st
		}
	}
	return &State{}
}

// RequireLogin aborts with 401 login_required unless the request is signed in.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, loggedIn, _ := FromContext(c).Read(); !loggedIn {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":  "login_required",
				"detail": "sign in to add items to your cart",
			})
			return
		}
		c.Next()
	}
}
