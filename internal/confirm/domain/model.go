package domain

import (
	"context"
	"errors"
	"time"

	orderdomain "github.com/luminacare/checkout/internal/order/domain"
)

const (
	KindCustomer = "customer"
	KindAdmin    = "admin"

	SourceRecovery = "recovery"
	SourceWebhook  = "webhook"
)

var ErrMissingOrderNumber = errors.New("missing_order_number")

// SendOutcome describes one attempted email. Failures are carried as data,
// not returned as errors, so one recipient's failure never blocks the other.
type SendOutcome struct {
	Attempted  bool   `json:"attempted"`
	Recipient  string `json:"recipient,omitempty"`
	DeliveryID string `json:"deliveryId,omitempty"`
	Simulated  bool   `json:"simulated,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (o SendOutcome) OK() bool {
	return o.Attempted && o.Error == ""
}

// Summary is the result of one confirmation dispatch.
type Summary struct {
	OrderNumber string      `json:"orderNumber"`
	Source      string      `json:"source"`
	Customer    SendOutcome `json:"customer"`
	Admin       SendOutcome `json:"admin"`

	// IsBackupNotification marks the admin email as a manual-follow-up
	// alert sent because the customer address was absent or a placeholder.
	IsBackupNotification bool `json:"isBackupNotification"`

	// Duplicate means another trigger already confirmed this order and no
	// emails were attempted this time.
	Duplicate bool `json:"duplicate"`
}

// ConfirmationDispatch is the durable idempotency row consulted before any
// emails go out. The webhook and recovery paths race to insert it; exactly
// one wins.
type ConfirmationDispatch struct {
	OrderNumber string    `json:"order_number" gorm:"primaryKey;type:text"`
	Source      string    `json:"source" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}

func (ConfirmationDispatch) TableName() string { return "confirmation_dispatches" }

type Dispatcher interface {
	Dispatch(ctx context.Context, rec *orderdomain.Record, source string) (*Summary, error)
}

type DedupRepository interface {
	// TryAcquire records the dispatch attempt and reports whether this
	// caller is the first for the order.
	TryAcquire(ctx context.Context, orderNumber string, source string) (bool, error)
}
