package payment

import (
	"github.com/luminacare/checkout/internal/payment/builder"
	"github.com/luminacare/checkout/internal/payment/gateway"
	paymentservice "github.com/luminacare/checkout/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(builder.NewBuilder),
	fx.Provide(gateway.NewGateway),
	fx.Provide(paymentservice.NewService),
)
