package validation

// AddToCartRequest is the payload for POST /cart/items.
type AddToCartRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
}

// CartLine is the part of a cart item checkout preconditions look at.
type CartLine struct {
	ID    int64 `json:"id" validate:"gt=0"`
	Price int64 `json:"price" validate:"gte=0"` // minor currency units
	Qty   int   `json:"qty" validate:"min=1"`
}

// PlaceOrderInput is validated before an order is submitted. Field order
// is the order preconditions are reported in: an empty cart wins over a
// missing address.
type PlaceOrderInput struct {
	Items   []CartLine `json:"items" validate:"min=1,dive"`
	Address string     `json:"address" validate:"required"`
}

// AddressForm is the payload of POST /order/address, sent when the
// address widget completes.
type AddressForm struct {
	RoadAddress   string `json:"roadAddress" form:"roadAddress"`
	JibunAddress  string `json:"jibunAddress" form:"jibunAddress"`
	DetailAddress string `json:"detailAddress" form:"detailAddress"`
	PaymentMethod string `json:"paymentMethod" form:"paymentMethod"`
}
