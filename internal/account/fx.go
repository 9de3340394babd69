package account

import (
	"github.com/luminacare/checkout/internal/account/domain"
	"github.com/luminacare/checkout/internal/account/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("account",
	fx.Provide(repository.Provide),
	fx.Invoke(migrate),
)

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.AccountOrder{})
}
