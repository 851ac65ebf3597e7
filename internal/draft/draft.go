// Package draft holds the checkout page's order draft: shipping address and
// payment method. A draft lives only as long as one checkout page visit and
// is never persisted.
package draft

// PaymentMethod selects how the order is paid.
type PaymentMethod string

const (
	PaymentCard  PaymentMethod = "card"
	PaymentKakao PaymentMethod = "kakao" // external wallet, redirect based
)

// Field names accepted by SetField. They match the checkout form inputs.
const (
	FieldAddress       = "address"
	FieldDetailAddress = "detailAddress"
	FieldPaymentMethod = "paymentMethod"
)

// OrderDraft is the in-memory checkout form state.
type OrderDraft struct {
	Address       string        `json:"address" form:"address"`
	DetailAddress string        `json:"detailAddress" form:"detailAddress"`
	PaymentMethod PaymentMethod `json:"paymentMethod" form:"paymentMethod"`
}

// Builder collects the draft. Writes are not validated; the checkout
// orchestrator checks preconditions at submission.
type Builder struct {
	draft OrderDraft
}

// New returns a builder with the default payment method (card).
func New() *Builder {
	return &Builder{draft: OrderDraft{PaymentMethod: PaymentCard}}
}

// FromQuery returns a new builder whose payment method is preselected from
// the pm query parameter when it names a known method.
func FromQuery(pm string) *Builder {
	b := New()
	if m := PaymentMethod(pm); m == PaymentKakao || m == PaymentCard {
		b.draft.PaymentMethod = m
	}
	return b
}

// FromDraft resumes a builder from a draft posted back by the page.
func FromDraft(d OrderDraft) *Builder {
	if d.PaymentMethod == "" {
		d.PaymentMethod = PaymentCard
	}
	return &Builder{draft: d}
}

// SetField updates one draft field. Unknown names are ignored.
func (b *Builder) SetField(name, value string) {
	switch name {
	case FieldAddress:
		b.draft.Address = value
	case FieldDetailAddress:
		b.draft.DetailAddress = value
	case FieldPaymentMethod:
		b.draft.PaymentMethod = PaymentMethod(value)
	}
}

// Draft returns a copy of the current draft.
func (b *Builder) Draft() OrderDraft {
	return b.draft
}
