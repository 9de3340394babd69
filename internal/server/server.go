package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	accountdomain "github.com/luminacare/checkout/internal/account/domain"
	"github.com/luminacare/checkout/internal/config"
	confirmdomain "github.com/luminacare/checkout/internal/confirm/domain"
	"github.com/luminacare/checkout/internal/metrics"
	notificationdomain "github.com/luminacare/checkout/internal/notification/domain"
	paymentdomain "github.com/luminacare/checkout/internal/payment/domain"
	"github.com/luminacare/checkout/internal/ratelimit"
	"github.com/luminacare/checkout/internal/recovery"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogMiddleware(log))
	r.Use(metrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	return NewEngine(log, m)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	paymentSvc      paymentdomain.Service
	cascade         *recovery.Cascade
	notificationSvc notificationdomain.Service
	dispatcher      confirmdomain.Dispatcher
	accounts        accountdomain.Repository
	limiter         *ratelimit.InitiateLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	PaymentSvc      paymentdomain.Service
	Cascade         *recovery.Cascade
	NotificationSvc notificationdomain.Service
	Dispatcher      confirmdomain.Dispatcher
	Accounts        accountdomain.Repository
	Limiter         *ratelimit.InitiateLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("server"),
		paymentSvc:      p.PaymentSvc,
		cascade:         p.Cascade,
		notificationSvc: p.NotificationSvc,
		dispatcher:      p.Dispatcher,
		accounts:        p.Accounts,
		limiter:         p.Limiter,
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api")

	payments := api.Group("/payments/card")
	payments.POST("/initiate", s.HandleInitiatePayment)
	// the processor is not consistent about the method it calls back with
	payments.Any("/webhook", s.HandleCardWebhook)

	orders := api.Group("/orders")
	orders.POST("", s.HandleSaveOrder)
	orders.POST("/recover", s.HandleRecoverOrder)
	orders.GET("/recover/:order_id", s.HandleRemoteRecovery)
	orders.POST("/confirm", s.HandleConfirmOrder)
}
