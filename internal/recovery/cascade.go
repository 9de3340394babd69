package recovery

import (
	"context"
	"errors"
	"time"

	accountdomain "github.com/luminacare/checkout/internal/account/domain"
	"github.com/luminacare/checkout/internal/config"
	"github.com/luminacare/checkout/internal/metrics"
	orderdomain "github.com/luminacare/checkout/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Repo    accountdomain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

// Cascade reconstructs an order after the redirect round-trip with no server
// session. Tiers are probed in strict priority order and the first record
// whose order number matches wins; later tiers are never consulted after a
// match. A tier that is present but unreadable is logged and skipped, never
// fatal to the cascade.
type Cascade struct {
	probes       []Probe
	tierBudget   time.Duration
	remoteBudget time.Duration
	log          *zap.Logger
	metrics      *metrics.Metrics
}

// Result carries the accepted record and which tier produced it.
type Result struct {
	Record *orderdomain.Record
	Tier   string
}

func NewCascade(p Params) *Cascade {
	return &Cascade{
		probes: []Probe{
			primaryProbe{},
			secondaryProbe{},
			cookieProbe{},
			remoteProbe{repo: p.Repo},
		},
		tierBudget:   p.Cfg.RecoveryTierBudget,
		remoteBudget: p.Cfg.RemoteTierBudget,
		log:          p.Log.Named("recovery"),
		metrics:      p.Metrics,
	}
}

// NewCascadeWithProbes builds a cascade over an explicit probe chain.
func NewCascadeWithProbes(log *zap.Logger, tierBudget, remoteBudget time.Duration, probes ...Probe) *Cascade {
	return &Cascade{
		probes:       probes,
		tierBudget:   tierBudget,
		remoteBudget: remoteBudget,
		log:          log.Named("recovery"),
	}
}

func (c *Cascade) Resolve(ctx context.Context, orderID string, snap ClientSnapshot) (*Result, error) {
	if orderID == "" {
		return nil, orderdomain.ErrNotFound
	}

	for _, probe := range c.probes {
		rec, err := c.tryProbe(ctx, probe, orderID, snap)
		if err != nil {
			if !errors.Is(err, orderdomain.ErrNotFound) {
				c.log.Warn("recovery tier unreadable, skipping",
					zap.String("tier", probe.Name()),
					zap.String("order_id", orderID),
					zap.Error(err))
			}
			continue
		}

		if !rec.Matches(orderID) {
			c.log.Info("recovery tier holds a different order, skipping",
				zap.String("tier", probe.Name()),
				zap.String("order_id", orderID),
				zap.String("found_order", rec.OrderNumber))
			continue
		}
		if err := rec.Validate(); err != nil {
			c.log.Warn("recovery tier record incomplete, skipping",
				zap.String("tier", probe.Name()),
				zap.String("order_id", orderID))
			continue
		}

		c.log.Info("order recovered",
			zap.String("tier", probe.Name()),
			zap.String("order_id", orderID))
		c.metrics.RecordRecovery(probe.Name())
		return &Result{Record: rec, Tier: probe.Name()}, nil
	}

	c.metrics.RecordRecovery("miss")
	return nil, orderdomain.ErrNotFound
}

func (c *Cascade) tryProbe(ctx context.Context, probe Probe, orderID string, snap ClientSnapshot) (*orderdomain.Record, error) {
	budget := c.tierBudget
	if probe.Name() == TierRemote {
		// last resort gets the largest allowance
		budget = c.remoteBudget
	}
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	return probe.TryRead(ctx, orderID, snap)
}
