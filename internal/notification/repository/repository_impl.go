package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/luminacare/checkout/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct {
	db   *gorm.DB
	node *snowflake.Node
}

func Provide(db *gorm.DB, node *snowflake.Node) domain.Repository {
	return &repo{db: db, node: node}
}

func (r *repo) Insert(ctx context.Context, ev *domain.EventRecord) (bool, error) {
	if ev.ID == 0 {
		ev.ID = r.node.Generate()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	res := r.db.WithContext(ctx).Exec(
		`INSERT INTO notification_events (
			id, provider_transaction_id, order_id, status, raw_status,
			amount, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider_transaction_id, order_id, status) DO NOTHING`,
		ev.ID,
		ev.ProviderTransactionID,
		ev.OrderID,
		ev.Status,
		ev.RawStatus,
		ev.Amount,
		ev.Payload,
		ev.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
