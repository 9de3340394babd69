package notification

import (
	"github.com/luminacare/checkout/internal/notification/domain"
	"github.com/luminacare/checkout/internal/notification/repository"
	"github.com/luminacare/checkout/internal/notification/service"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("notification",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
	fx.Invoke(migrate),
)

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.EventRecord{})
}
