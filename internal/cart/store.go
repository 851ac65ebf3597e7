package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Storage is the client key/value space the cart persists into.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Store is the persistent cart of one client. Every mutation reads the
// current value, applies the change, and overwrites the stored array.
type Store struct {
	storage Storage
	log     *zap.Logger
}

func NewStore(storage Storage, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{storage: storage, log: log}
}

// storedItem mirrors CartItem with optional fields so older entries
// (e.g. written without qty) can be normalised.
type storedItem struct {
	ID       int64   `json:"id"`
	Title    *string `json:"title"`
	Price    *int64  `json:"price"`
	ImageURL *string `json:"imageUrl"`
	Qty      *int    `json:"qty"`
}

// Load returns the persisted cart. Missing, corrupt or non-array data and
// storage failures all yield an empty cart; nothing is returned as an error.
func (s *Store) Load(ctx context.Context) []CartItem {
	raw, ok, err := s.storage.GetItem(ctx, StorageKey)
	if err != nil {
		s.log.Warn("cart load failed, using empty cart", zap.Error(err))
		return []CartItem{}
	}
	if !ok {
		return []CartItem{}
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		s.log.Warn("cart value is not a JSON array, using empty cart", zap.Error(err))
		return []CartItem{}
	}

	items := make([]CartItem, 0, len(elems))
	for _, e := range elems {
		var si storedItem
		if err := json.Unmarshal(e, &si); err != nil {
			s.log.Warn("skipping malformed cart entry", zap.ByteString("entry", e), zap.Error(err))
			continue
		}
		items = append(items, normalize(si))
	}
	return items
}

func normalize(si storedItem) CartItem {
	it := CartItem{ID: si.ID, Qty: 1}
	if si.Title != nil {
		it.Title = *si.Title
	}
	if si.Price != nil {
		it.Price = *si.Price
	}
	if si.ImageURL != nil {
		it.ImageURL = *si.ImageURL
	}
	if si.Qty != nil && *si.Qty > 1 {
		it.Qty = *si.Qty
	}
	return it
}

// Add appends item and persists the cart. A product already present is
// rejected with ErrAlreadyInCart and the existing entry is left as is.
func (s *Store) Add(ctx context.Context, item CartItem) error {
	items := s.Load(ctx)
	for _, it := range items {
		if it.ID == item.ID {
			return ErrAlreadyInCart
		}
	}
	if item.Qty < 1 {
		item.Qty = 1
	}
	return s.save(ctx, append(items, item))
}

// Remove drops the product with id and persists. Removing an absent id is a no-op.
func (s *Store) Remove(ctx context.Context, id int64) error {
	items := s.Load(ctx)
	next := make([]CartItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			next = append(next, it)
		}
	}
	return s.save(ctx, next)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	return s.save(ctx, []CartItem{})
}

func (s *Store) save(ctx context.Context, items []CartItem) error {
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := s.storage.SetItem(ctx, StorageKey, string(b)); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}
