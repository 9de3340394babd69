package repository

import (
	"context"
	"time"

	"github.com/luminacare/checkout/internal/confirm/domain"
	"github.com/luminacare/checkout/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(gdb *gorm.DB) domain.DedupRepository {
	return &repo{db: gdb}
}

// TryAcquire inserts the dispatch marker and reports whether this caller won.
// A plain insert with the primary-key violation classified afterwards keeps
// the same statement valid on every supported dialect (mysql has no ON
// CONFLICT clause).
func (r *repo) TryAcquire(ctx context.Context, orderNumber string, source string) (bool, error) {
	if orderNumber == "" {
		return false, domain.ErrMissingOrderNumber
	}

	res := r.db.WithContext(ctx).Exec(
		`INSERT INTO confirmation_dispatches (order_number, source, created_at)
		 VALUES (?, ?, ?)`,
		orderNumber,
		source,
		time.Now().UTC(),
	)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
