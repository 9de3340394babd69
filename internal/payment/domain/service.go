package domain

import "context"

// InitiateParams is the caller-facing initiation request.
type InitiateParams struct {
	OrderID     string   `json:"orderId"`
	Amount      string   `json:"amount"`
	Currency    string   `json:"currency"`
	Description string   `json:"description"`
	Customer    Customer `json:"customerInfo"`

	// Live forces the live processor when true. Tests and forced flows
	// rely on it; it is never downgraded by hostname inference.
	Live *bool `json:"live,omitempty"`
}

// Service orchestrates environment resolution, request building and the
// outbound initiation call.
type Service interface {
	Initiate(ctx context.Context, host string, params InitiateParams) (*Outcome, error)
}
