package service

import (
	"context"
	"time"

	"github.com/luminacare/checkout/internal/config"
	"github.com/luminacare/checkout/internal/environment"
	"github.com/luminacare/checkout/internal/metrics"
	paymentdomain "github.com/luminacare/checkout/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg      config.Config
	Log      *zap.Logger
	Resolver *environment.Resolver
	Builder  paymentdomain.Builder
	Gateway  paymentdomain.Gateway
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	cfg      config.Config
	log      *zap.Logger
	resolver *environment.Resolver
	builder  paymentdomain.Builder
	gateway  paymentdomain.Gateway
	metrics  *metrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		cfg:      p.Cfg,
		log:      p.Log.Named("payment.service"),
		resolver: p.Resolver,
		builder:  p.Builder,
		gateway:  p.Gateway,
		metrics:  p.Metrics,
	}
}

func (s *Service) Initiate(ctx context.Context, host string, params paymentdomain.InitiateParams) (*paymentdomain.Outcome, error) {
	env := s.resolver.Resolve(host, params.Live)

	intent := paymentdomain.Intent{
		OrderID:     params.OrderID,
		Amount:      params.Amount,
		Currency:    params.Currency,
		Description: params.Description,
		Customer:    params.Customer,
		Environment: env,
		CreatedAt:   time.Now().UTC(),
	}

	req, err := s.builder.BuildRequest(intent, s.credentialsFor(env))
	if err != nil {
		s.metrics.RecordInitiation(string(env), "rejected")
		return nil, err
	}

	outcome, err := s.gateway.Initiate(ctx, req)
	if err != nil {
		s.metrics.RecordInitiation(string(env), "gateway_error")
		return nil, err
	}

	s.log.Info("payment initiated",
		zap.String("order_id", req.OrderID),
		zap.String("environment", string(env)),
		zap.String("outcome", string(outcome.Kind)),
		zap.Bool("encrypted", req.Encrypted))
	s.metrics.RecordInitiation(string(env), string(outcome.Kind))

	return outcome, nil
}

func (s *Service) credentialsFor(env environment.Environment) paymentdomain.Credentials {
	if env == environment.Live {
		return paymentdomain.Credentials{
			Signature:    s.cfg.Card.LiveSignature,
			APIKey:       s.cfg.Card.LiveAPIKey,
			PublicKeyPEM: s.cfg.Card.LivePublicKeyPEM,
		}
	}
	return paymentdomain.Credentials{
		Signature: s.cfg.Card.SandboxSignature,
		APIKey:    s.cfg.Card.SandboxAPIKey,
	}
}
