// Package storage holds the per-browser durable key/value space that the
// storefront keeps its client state in (the cart and the login marker).
//
// Values are overwritten whole; a write is atomic per key at the backend
// level, so no partially written value is ever observable. Two requests
// from the same client racing on one key resolve last-writer-wins.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Backend.Get when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Backend is a flat durable key/value store.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Local is a Backend scoped to a single client id.
type Local struct {
	backend  Backend
	clientID string
}

// For returns the storage space of clientID.
func For(backend Backend, clientID string) *Local {
	return &Local{backend: backend, clientID: clientID}
}

// ClientID returns the id this space is scoped to.
func (l *Local) ClientID() string { return l.clientID }

// GetItem returns the value of key and whether it was present.
func (l *Local) GetItem(ctx context.Context, key string) (string, bool, error) {
	v, err := l.backend.Get(ctx, l.key(key))
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

// SetItem overwrites key with value.
func (l *Local) SetItem(ctx context.Context, key, value string) error {
	if err := l.backend.Set(ctx, l.key(key), value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key. Removing an absent key is not an error.
func (l *Local) RemoveItem(ctx context.Context, key string) error {
	if err := l.backend.Delete(ctx, l.key(key)); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func (l *Local) key(k string) string {
	return "client:" + l.clientID + ":" + k
}
