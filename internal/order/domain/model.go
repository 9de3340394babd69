package domain

import (
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("order_not_found")
	ErrOrderMismatch = errors.New("order_number_mismatch")
	ErrInvalidRecord = errors.New("invalid_order_record")
)

// Item is a single purchased line.
type Item struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Record is the reconstructed order used for confirmation. It is transient:
// built per confirmation attempt from a recovery tier or a processor callback,
// never stored durably by this subsystem itself.
type Record struct {
	OrderNumber     string `json:"orderNumber"`
	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerPhone   string `json:"customerPhone"`
	CustomerAddress string `json:"customerAddress"`
	CustomerCity    string `json:"customerCity"`
	CustomerCounty  string `json:"customerCounty"`
	TotalAmount     string `json:"totalAmount"`
	Items           []Item `json:"items"`
	PaymentMethod   string `json:"paymentMethod"`
	Date            string `json:"date"`

	// IsVerifiedCustomerData is false for records synthesized from a
	// processor callback, where the customer identity was never confirmed
	// by the browser flow.
	IsVerifiedCustomerData bool `json:"isVerifiedCustomerData"`
}

// Matches reports whether the record is authoritative for orderNumber.
// A record from any tier is accepted only on an exact order-number match.
func (r *Record) Matches(orderNumber string) bool {
	if r == nil {
		return false
	}
	return strings.TrimSpace(r.OrderNumber) != "" &&
		strings.TrimSpace(r.OrderNumber) == strings.TrimSpace(orderNumber)
}

// Validate rejects partial records. A usable record names its order and
// carries at least one customer-identifying field.
func (r *Record) Validate() error {
	if r == nil {
		return ErrInvalidRecord
	}
	if strings.TrimSpace(r.OrderNumber) == "" {
		return ErrInvalidRecord
	}
	if strings.TrimSpace(r.CustomerName) == "" && strings.TrimSpace(r.CustomerEmail) == "" {
		return ErrInvalidRecord
	}
	return nil
}
