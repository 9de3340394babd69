package domain

import (
	"context"
	"errors"
	"time"

	"github.com/luminacare/checkout/internal/environment"
)

var (
	ErrMissingOrderID   = errors.New("missing_order_id")
	ErrMissingAmount    = errors.New("missing_amount")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrMissingSignature = errors.New("missing_signature_material")
	ErrGatewayResponse  = errors.New("gateway_response")
)

// Customer is the single billing/shipping block collected at checkout.
// There is no separate shipping collection in this domain.
type Customer struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	County     string `json:"county"`
	PostalCode string `json:"postalCode"`
}

// Intent is the merchant-side payment intent assembled immediately before the
// outbound processor call. Immutable once built; held by the browser until
// recovery, never persisted server-side by this subsystem.
type Intent struct {
	OrderID     string                  `json:"orderId"`
	Amount      string                  `json:"amount"`
	Currency    string                  `json:"currency"`
	Description string                  `json:"description"`
	Customer    Customer                `json:"customerInfo"`
	Environment environment.Environment `json:"environment"`
	CreatedAt   time.Time               `json:"createdAt"`
}

// Credentials is the signature and key material for one processor
// environment, injected explicitly rather than read from ambient state.
type Credentials struct {
	Signature    string
	APIKey       string
	PublicKeyPEM string
}

// Request is the outbound processor payload plus its transport signature.
type Request struct {
	Environment environment.Environment
	OrderID     string
	Payload     OrderPayload
	Signature   string

	// Encrypted is false when signature material fell back to plain
	// base64. Kept on the request for observability.
	Encrypted bool
}

// OrderPayload mirrors the processor's order envelope.
type OrderPayload struct {
	OrderID     string   `json:"orderId"`
	Amount      string   `json:"amount"`
	Currency    string   `json:"currency"`
	Description string   `json:"description"`
	Account     string   `json:"account"`
	Billing     Customer `json:"billing"`
	Shipping    Customer `json:"shipping"`
	NotifyURL   string   `json:"confirmUrl"`
	ReturnURL   string   `json:"returnUrl"`
	Timestamp   int64    `json:"timestamp"`
}

// OutcomeKind classifies the processor's initiation response shape.
type OutcomeKind string

const (
	// OutcomeRedirect is a JSON status carrying a URL the browser must visit.
	OutcomeRedirect OutcomeKind = "redirect"
	// OutcomeHTMLForm is a processor-rendered document (3-D Secure form)
	// to be served to the browser as-is.
	OutcomeHTMLForm OutcomeKind = "html_form"
)

// Outcome is the uniform result of a payment initiation.
type Outcome struct {
	Kind        OutcomeKind
	PaymentURL  string
	HTML        string
	Environment environment.Environment
}

// GatewayError preserves the processor's raw status for diagnostics.
// Initiation is never retried automatically; a duplicate charge is worse
// than a failed attempt.
type GatewayError struct {
	StatusCode int
	Reason     string
}

func (e *GatewayError) Error() string {
	return "gateway error: " + e.Reason
}

func (e *GatewayError) Unwrap() error { return ErrGatewayResponse }

// Builder assembles the processor payload and transport signature.
type Builder interface {
	BuildRequest(intent Intent, creds Credentials) (*Request, error)
}

// Gateway performs the outbound initiation call.
type Gateway interface {
	Initiate(ctx context.Context, req *Request) (*Outcome, error)
}
