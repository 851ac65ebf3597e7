package sessions

import "time"

// Session statuses. Only what the storefront observes is journaled: the
// hand-off to the provider and the approve result. Cancel and fail landings
// carry no order id, so those outcomes stay with the backend.
const (
	StatusRedirected = "REDIRECTED"
	StatusApproved   = "APPROVED"
	StatusFailed     = "FAILED"
)

// Session is one payment hand-off as recorded in the sessions table.
type Session struct {
	OrderID       string    `dynamodbav:"order_id"` // PK
	Status        string    `dynamodbav:"status"`   // REDIRECTED | APPROVED | FAILED
	Amount        int64     `dynamodbav:"amount"`
	ProviderToken string    `dynamodbav:"provider_token,omitempty"`
	LastError     string    `dynamodbav:"last_error,omitempty"`
	CreatedAt     time.Time `dynamodbav:"created_at"`
	UpdatedAt     time.Time `dynamodbav:"updated_at"`
	Attempts      int       `dynamodbav:"attempts,omitempty"`
}

var transitions = map[string][]string{
	StatusRedirected: {StatusApproved, StatusFailed},
	StatusFailed:     {StatusApproved},
}

// CanTransition reports whether a session may move from one status to
// another. APPROVED is terminal.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
