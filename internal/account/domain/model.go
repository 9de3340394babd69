package domain

import (
	"context"
	"encoding/json"
	"time"

	orderdomain "github.com/luminacare/checkout/internal/order/domain"
	"gorm.io/datatypes"
)

const (
	StatusPending     = "pending"
	StatusPaid        = "paid"
	StatusUnfulfilled = "unfulfilled"
)

// AccountOrder is the durable order document keyed by order number. It backs
// the last-resort recovery tier and receives status updates from processor
// notifications.
type AccountOrder struct {
	OrderNumber     string         `json:"order_number" gorm:"primaryKey;type:text"`
	CustomerName    string         `json:"customer_name" gorm:"type:text"`
	CustomerEmail   string         `json:"customer_email" gorm:"type:text"`
	CustomerPhone   string         `json:"customer_phone" gorm:"type:text"`
	CustomerAddress string         `json:"customer_address" gorm:"type:text"`
	CustomerCity    string         `json:"customer_city" gorm:"type:text"`
	CustomerCounty  string         `json:"customer_county" gorm:"type:text"`
	TotalAmount     string         `json:"total_amount" gorm:"type:text"`
	Items           datatypes.JSON `json:"items"`
	PaymentMethod   string         `json:"payment_method" gorm:"type:text"`
	Status          string         `json:"status" gorm:"type:text;not null;default:pending"`
	EntityType      string         `json:"entity_type" gorm:"type:text"`
	OwnerID         string         `json:"owner_id" gorm:"type:text"`
	Verified        bool           `json:"verified"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func (AccountOrder) TableName() string { return "account_orders" }

// ToRecord converts the stored document into the transient confirmation
// record shape.
func (a *AccountOrder) ToRecord() *orderdomain.Record {
	if a == nil {
		return nil
	}
	var items []orderdomain.Item
	if len(a.Items) > 0 {
		_ = json.Unmarshal(a.Items, &items)
	}
	return &orderdomain.Record{
		OrderNumber:            a.OrderNumber,
		CustomerName:           a.CustomerName,
		CustomerEmail:          a.CustomerEmail,
		CustomerPhone:          a.CustomerPhone,
		CustomerAddress:        a.CustomerAddress,
		CustomerCity:           a.CustomerCity,
		CustomerCounty:         a.CustomerCounty,
		TotalAmount:            a.TotalAmount,
		Items:                  items,
		PaymentMethod:          a.PaymentMethod,
		Date:                   a.CreatedAt.UTC().Format(time.RFC3339),
		IsVerifiedCustomerData: a.Verified,
	}
}

type Repository interface {
	Upsert(ctx context.Context, order *AccountOrder) error
	FindByOrderNumber(ctx context.Context, orderNumber string) (*AccountOrder, error)
	UpdateStatus(ctx context.Context, orderNumber string, status string) error
	MarkPaid(ctx context.Context, orderNumber string, entityType string, ownerID string) error
}
