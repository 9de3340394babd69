package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/luminacare/checkout/internal/confirm/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ConfirmationDispatch{}))
	return db
}

func TestTryAcquireFirstWins(t *testing.T) {
	repo := Provide(newTestDB(t))
	ctx := context.Background()

	first, err := repo.TryAcquire(ctx, "LC-1700000000000", domain.SourceWebhook)
	require.NoError(t, err)
	require.True(t, first)

	// the racing trigger loses
	second, err := repo.TryAcquire(ctx, "LC-1700000000000", domain.SourceRecovery)
	require.NoError(t, err)
	require.False(t, second)
}

func TestTryAcquireDistinctOrders(t *testing.T) {
	repo := Provide(newTestDB(t))
	ctx := context.Background()

	a, err := repo.TryAcquire(ctx, "LC-1700000000000", domain.SourceWebhook)
	require.NoError(t, err)
	b, err := repo.TryAcquire(ctx, "LC-1700000000001", domain.SourceWebhook)
	require.NoError(t, err)
	require.True(t, a)
	require.True(t, b)
}

func TestTryAcquireEmptyOrder(t *testing.T) {
	repo := Provide(newTestDB(t))
	_, err := repo.TryAcquire(context.Background(), "", domain.SourceWebhook)
	require.ErrorIs(t, err, domain.ErrMissingOrderNumber)
}
