package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/luminacare/checkout/internal/account"
	"github.com/luminacare/checkout/internal/config"
	"github.com/luminacare/checkout/internal/confirm"
	"github.com/luminacare/checkout/internal/environment"
	"github.com/luminacare/checkout/internal/logger"
	"github.com/luminacare/checkout/internal/metrics"
	"github.com/luminacare/checkout/internal/notification"
	"github.com/luminacare/checkout/internal/payment"
	"github.com/luminacare/checkout/internal/providers"
	"github.com/luminacare/checkout/internal/ratelimit"
	"github.com/luminacare/checkout/internal/recovery"
	"github.com/luminacare/checkout/internal/server"
	"github.com/luminacare/checkout/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,

		environment.Module,
		providers.Module,
		account.Module,
		payment.Module,
		recovery.Module,
		notification.Module,
		confirm.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
