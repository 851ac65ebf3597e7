package cart

import "errors"

// StorageKey is the client storage key holding the cart as a JSON array.
const StorageKey = "cart"

// ErrAlreadyInCart is returned by Add when the product is already in the cart.
var ErrAlreadyInCart = errors.New("product already in cart")

// CartItem is one line of the cart. Price is in minor currency units.
type CartItem struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	ImageURL string `json:"imageUrl,omitempty"`
	Qty      int    `json:"qty"`
}

// Total returns Σ price × qty.
func Total(items []CartItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Price * int64(it.Qty)
	}
	return sum
}
