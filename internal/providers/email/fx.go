package email

import (
	"github.com/luminacare/checkout/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

// NewFromConfig picks SMTP when transport credentials are configured and the
// simulated provider otherwise, so development deployments never try to hand
// real mail to a mailserver that is not there.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.Email.SMTPHost == "" || cfg.Email.SMTPUsername == "" {
		log.Named("email").Info("smtp credentials absent, using simulated transport")
		return NewSimulated(log)
	}
	return NewSMTP(Config{
		Host:     cfg.Email.SMTPHost,
		Port:     cfg.Email.SMTPPort,
		Username: cfg.Email.SMTPUsername,
		Password: cfg.Email.SMTPPassword,
		From:     cfg.Email.SMTPFrom,
	})
}
