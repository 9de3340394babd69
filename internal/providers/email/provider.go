package email

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Receipt is what the transport reports back for a single send: a
// provider-assigned delivery identifier, or a simulated-mode marker when no
// real transport is configured.
type Receipt struct {
	DeliveryID string
	Simulated  bool
}

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) (Receipt, error)
}

// SimulatedProvider stands in for SMTP in development and tests. Sends are
// logged, never transmitted, and still produce a delivery id so callers can
// exercise the full confirmation path.
type SimulatedProvider struct {
	log *zap.Logger
}

func NewSimulated(log *zap.Logger) *SimulatedProvider {
	return &SimulatedProvider{log: log.Named("email.simulated")}
}

func (p *SimulatedProvider) Send(_ context.Context, to []string, subject string, htmlBody string) (Receipt, error) {
	id := newDeliveryID()
	p.log.Info("simulated email send",
		zap.Strings("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(htmlBody)),
		zap.String("delivery_id", id))
	return Receipt{DeliveryID: id, Simulated: true}, nil
}

func newDeliveryID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
