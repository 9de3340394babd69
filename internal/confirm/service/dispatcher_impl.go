package service

import (
	"context"
	"strings"

	"github.com/luminacare/checkout/internal/config"
	"github.com/luminacare/checkout/internal/confirm/domain"
	"github.com/luminacare/checkout/internal/metrics"
	orderdomain "github.com/luminacare/checkout/internal/order/domain"
	"github.com/luminacare/checkout/internal/providers/email"
	"github.com/luminacare/checkout/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const currency = "RON"

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Policy  *config.NotifyPolicyHolder
	Email   email.Provider
	Dedup   domain.DedupRepository
	Limiter *ratelimit.InitiateLimiter `optional:"true"`
	Metrics *metrics.Metrics           `optional:"true"`
}

// Dispatcher produces the customer and admin confirmation emails once an
// order is known-good. Two independent triggers may race here (the browser
// recovery path and the processor webhook); a durable per-order dedup row
// decides which one sends.
type Dispatcher struct {
	cfg     config.Config
	log     *zap.Logger
	policy  *config.NotifyPolicyHolder
	email   email.Provider
	dedup   domain.DedupRepository
	limiter *ratelimit.InitiateLimiter
	metrics *metrics.Metrics
}

func NewDispatcher(p Params) domain.Dispatcher {
	return &Dispatcher{
		cfg:     p.Cfg,
		log:     p.Log.Named("confirm.dispatcher"),
		policy:  p.Policy,
		email:   p.Email,
		dedup:   p.Dedup,
		limiter: p.Limiter,
		metrics: p.Metrics,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, rec *orderdomain.Record, source string) (*domain.Summary, error) {
	if rec == nil || strings.TrimSpace(rec.OrderNumber) == "" {
		return nil, domain.ErrMissingOrderNumber
	}

	summary := &domain.Summary{OrderNumber: rec.OrderNumber, Source: source}

	// Short lock so the two triggers do not interleave between the dedup
	// check and the sends. Fail-open when redis is absent: the durable
	// dedup row still holds.
	token, acquired, err := d.limiter.TryLockOrder(ctx, rec.OrderNumber)
	if err != nil {
		d.log.Warn("dispatch lock unavailable, continuing",
			zap.String("order_id", rec.OrderNumber), zap.Error(err))
	} else if !acquired {
		summary.Duplicate = true
		d.metrics.RecordDispatch(domain.KindCustomer, "duplicate")
		return summary, nil
	}
	if token != "" {
		defer func() {
			if err := d.limiter.ReleaseOrder(ctx, rec.OrderNumber, token); err != nil {
				d.log.Warn("dispatch lock release failed",
					zap.String("order_id", rec.OrderNumber), zap.Error(err))
			}
		}()
	}

	first, err := d.dedup.TryAcquire(ctx, rec.OrderNumber, source)
	if err != nil {
		// A confirmation lost to a dedup-store hiccup is worse than a
		// duplicate email. Proceed and log.
		d.log.Error("dedup store unavailable, dispatching anyway",
			zap.String("order_id", rec.OrderNumber), zap.Error(err))
	} else if !first {
		d.log.Info("order already confirmed, skipping dispatch",
			zap.String("order_id", rec.OrderNumber), zap.String("source", source))
		summary.Duplicate = true
		d.metrics.RecordDispatch(domain.KindCustomer, "duplicate")
		return summary, nil
	}

	policy := d.policy.Current()
	backup := !rec.IsVerifiedCustomerData ||
		strings.TrimSpace(rec.CustomerEmail) == "" ||
		policy.IsPlaceholderEmail(rec.CustomerEmail)
	summary.IsBackupNotification = backup

	if !backup {
		summary.Customer = d.sendCustomer(ctx, rec, policy)
	} else {
		d.log.Info("customer address unverified or placeholder, admin-only dispatch",
			zap.String("order_id", rec.OrderNumber),
			zap.String("email_domain", emailDomain(rec.CustomerEmail)))
	}

	summary.Admin = d.sendAdmin(ctx, rec, policy, backup, source)

	d.log.Info("confirmation dispatched",
		zap.String("order_id", rec.OrderNumber),
		zap.String("source", source),
		zap.Bool("backup", backup),
		zap.Bool("customer_ok", summary.Customer.OK()),
		zap.Bool("admin_ok", summary.Admin.OK()))
	return summary, nil
}

func (d *Dispatcher) sendCustomer(ctx context.Context, rec *orderdomain.Record, policy config.NotifyPolicy) domain.SendOutcome {
	outcome := domain.SendOutcome{Attempted: true, Recipient: rec.CustomerEmail}

	body, err := email.Render("order_confirmation", templateData(rec, false, ""))
	if err != nil {
		outcome.Error = err.Error()
		d.metrics.RecordDispatch(domain.KindCustomer, "error")
		return outcome
	}

	subject := strings.TrimSpace(policy.SubjectPrefix + " Confirmare comandă " + rec.OrderNumber)
	receipt, err := d.email.Send(ctx, []string{rec.CustomerEmail}, subject, body)
	if err != nil {
		d.log.Error("customer confirmation failed",
			zap.String("order_id", rec.OrderNumber), zap.Error(err))
		outcome.Error = err.Error()
		d.metrics.RecordDispatch(domain.KindCustomer, "error")
		return outcome
	}

	outcome.DeliveryID = receipt.DeliveryID
	outcome.Simulated = receipt.Simulated
	d.metrics.RecordDispatch(domain.KindCustomer, "sent")
	return outcome
}

func (d *Dispatcher) sendAdmin(ctx context.Context, rec *orderdomain.Record, policy config.NotifyPolicy, backup bool, source string) domain.SendOutcome {
	recipients := policy.AdminRecipients
	if len(recipients) == 0 {
		recipients = []string{d.cfg.AdminEmail}
	}
	outcome := domain.SendOutcome{Attempted: true, Recipient: strings.Join(recipients, ",")}

	body, err := email.Render("admin_notification", templateData(rec, backup, source))
	if err != nil {
		outcome.Error = err.Error()
		d.metrics.RecordDispatch(domain.KindAdmin, "error")
		return outcome
	}

	subject := policy.SubjectPrefix + " Comandă plătită " + rec.OrderNumber
	if backup {
		subject = policy.SubjectPrefix + " [BACKUP] Comandă necesită verificare " + rec.OrderNumber
	}
	receipt, err := d.email.Send(ctx, recipients, strings.TrimSpace(subject), body)
	if err != nil {
		d.log.Error("admin notification failed",
			zap.String("order_id", rec.OrderNumber), zap.Error(err))
		outcome.Error = err.Error()
		d.metrics.RecordDispatch(domain.KindAdmin, "error")
		return outcome
	}

	outcome.DeliveryID = receipt.DeliveryID
	outcome.Simulated = receipt.Simulated
	d.metrics.RecordDispatch(domain.KindAdmin, "sent")
	return outcome
}

func templateData(rec *orderdomain.Record, backup bool, source string) map[string]any {
	return map[string]any{
		"OrderNumber":          rec.OrderNumber,
		"CustomerName":         rec.CustomerName,
		"CustomerEmail":        rec.CustomerEmail,
		"CustomerPhone":        rec.CustomerPhone,
		"CustomerAddress":      rec.CustomerAddress,
		"CustomerCity":         rec.CustomerCity,
		"CustomerCounty":       rec.CustomerCounty,
		"TotalAmount":          rec.TotalAmount,
		"Currency":             currency,
		"PaymentMethod":        rec.PaymentMethod,
		"Date":                 rec.Date,
		"Items":                rec.Items,
		"IsBackupNotification": backup,
		"Source":               source,
	}
}

func emailDomain(address string) string {
	if at := strings.LastIndex(address, "@"); at >= 0 {
		return address[at+1:]
	}
	return ""
}
