package confirm

import (
	"github.com/luminacare/checkout/internal/confirm/domain"
	"github.com/luminacare/checkout/internal/confirm/repository"
	"github.com/luminacare/checkout/internal/confirm/service"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("confirm",
	fx.Provide(
		repository.Provide,
		service.NewDispatcher,
	),
	fx.Invoke(migrate),
)

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.ConfirmationDispatch{})
}
