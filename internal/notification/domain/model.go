package domain

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Mapped processor statuses. Anything the processor sends outside this set
// is recorded as unknown and processed as a no-op.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusPaid      = "paid"
	StatusCanceled  = "canceled"
	StatusExpired   = "expired"
	StatusUnknown   = "unknown"
)

var (
	ErrMissingTransactionID = errors.New("missing_transaction_id")
	ErrMissingOrderID       = errors.New("missing_order_id")
	ErrUnparsablePayload    = errors.New("unparsable_payload")
)

// Event is the normalized processor callback.
type Event struct {
	ProviderTransactionID string
	OrderID               string
	Status                string
	RawStatus             string
	Amount                string

	// EntityType and OwnerID come from explicit payload fields when the
	// processor sends them; otherwise they may be decoded out of the
	// order identifier itself.
	EntityType string
	OwnerID    string

	Raw []byte
}

// EventRecord is the durable trail of received callbacks. The unique index
// over transaction id, order id and status is what makes processor
// redelivery a no-op internally, not just at the HTTP boundary.
type EventRecord struct {
	ID                    snowflake.ID   `json:"id" gorm:"primaryKey"`
	ProviderTransactionID string         `json:"provider_transaction_id" gorm:"type:text;not null;uniqueIndex:idx_event_txn_status"`
	OrderID               string         `json:"order_id" gorm:"type:text;not null;uniqueIndex:idx_event_txn_status"`
	Status                string         `json:"status" gorm:"type:text;not null;uniqueIndex:idx_event_txn_status"`
	RawStatus             string         `json:"raw_status" gorm:"type:text"`
	Amount                string         `json:"amount" gorm:"type:text"`
	Payload               datatypes.JSON `json:"payload"`
	CreatedAt             time.Time      `json:"created_at"`
}

func (EventRecord) TableName() string { return "notification_events" }

type Repository interface {
	// Insert stores the event and reports whether it was the first of its
	// (transaction, order, status) tuple.
	Insert(ctx context.Context, ev *EventRecord) (bool, error)
}

type Service interface {
	Normalize(contentType string, body []byte, query url.Values) (*Event, error)
	Process(ctx context.Context, ev *Event) error
}
