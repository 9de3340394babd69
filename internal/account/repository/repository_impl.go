package repository

import (
	"context"
	"time"

	"github.com/luminacare/checkout/internal/account/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Upsert(ctx context.Context, order *domain.AccountOrder) error {
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	return r.db.WithContext(ctx).Exec(
		`INSERT INTO account_orders (
			order_number, customer_name, customer_email, customer_phone,
			customer_address, customer_city, customer_county, total_amount,
			items, payment_method, status, entity_type, owner_id, verified,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_number) DO UPDATE SET
			customer_name = excluded.customer_name,
			customer_email = excluded.customer_email,
			customer_phone = excluded.customer_phone,
			customer_address = excluded.customer_address,
			customer_city = excluded.customer_city,
			customer_county = excluded.customer_county,
			total_amount = excluded.total_amount,
			items = excluded.items,
			payment_method = excluded.payment_method,
			verified = excluded.verified,
			updated_at = excluded.updated_at`,
		order.OrderNumber,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		order.CustomerAddress,
		order.CustomerCity,
		order.CustomerCounty,
		order.TotalAmount,
		order.Items,
		order.PaymentMethod,
		order.Status,
		order.EntityType,
		order.OwnerID,
		order.Verified,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.AccountOrder, error) {
	var item domain.AccountOrder
	err := r.db.WithContext(ctx).Raw(
		`SELECT order_number, customer_name, customer_email, customer_phone,
			customer_address, customer_city, customer_county, total_amount,
			items, payment_method, status, entity_type, owner_id, verified,
			created_at, updated_at
		 FROM account_orders
		 WHERE order_number = ?
		 LIMIT 1`,
		orderNumber,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.OrderNumber == "" {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) UpdateStatus(ctx context.Context, orderNumber string, status string) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE account_orders
		 SET status = ?, updated_at = ?
		 WHERE order_number = ?`,
		status,
		time.Now().UTC(),
		orderNumber,
	).Error
}

func (r *repo) MarkPaid(ctx context.Context, orderNumber string, entityType string, ownerID string) error {
	// Callbacks for plain orders carry no entitlement fields; an empty value
	// must not erase what the order save recorded.
	return r.db.WithContext(ctx).Exec(
		`UPDATE account_orders
		 SET status = ?,
		     entity_type = CASE WHEN ? <> '' THEN ? ELSE entity_type END,
		     owner_id = CASE WHEN ? <> '' THEN ? ELSE owner_id END,
		     updated_at = ?
		 WHERE order_number = ?`,
		domain.StatusPaid,
		entityType, entityType,
		ownerID, ownerID,
		time.Now().UTC(),
		orderNumber,
	).Error
}
