package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	accountdomain "github.com/luminacare/checkout/internal/account/domain"
	"github.com/luminacare/checkout/internal/config"
	confirmdomain "github.com/luminacare/checkout/internal/confirm/domain"
	"github.com/luminacare/checkout/internal/metrics"
	"github.com/luminacare/checkout/internal/notification/domain"
	orderdomain "github.com/luminacare/checkout/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	Repo       domain.Repository
	Accounts   accountdomain.Repository
	Dispatcher confirmdomain.Dispatcher
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	cfg        config.Config
	log        *zap.Logger
	repo       domain.Repository
	accounts   accountdomain.Repository
	dispatcher confirmdomain.Dispatcher
	metrics    *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		cfg:        p.Cfg,
		log:        p.Log.Named("notification"),
		repo:       p.Repo,
		accounts:   p.Accounts,
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
	}
}

// Normalize flattens a processor callback into an Event. The processor is
// not consistent about body encoding, so both JSON and form bodies are
// accepted, and query-string parameters override body fields.
func (s *Service) Normalize(contentType string, body []byte, query url.Values) (*domain.Event, error) {
	fields := map[string]string{}

	trimmed := strings.TrimSpace(string(body))
	if trimmed != "" {
		if strings.Contains(contentType, "json") || strings.HasPrefix(trimmed, "{") {
			var raw map[string]any
			if err := json.Unmarshal(body, &raw); err != nil {
				return nil, domain.ErrUnparsablePayload
			}
			for k, v := range raw {
				fields[strings.ToLower(k)] = scalarString(v)
			}
		} else {
			parsed, err := url.ParseQuery(trimmed)
			if err != nil {
				return nil, domain.ErrUnparsablePayload
			}
			for k := range parsed {
				fields[strings.ToLower(k)] = parsed.Get(k)
			}
		}
	}

	for k := range query {
		fields[strings.ToLower(k)] = query.Get(k)
	}

	ev := &domain.Event{
		ProviderTransactionID: firstOf(fields, "paymentid", "payment_id", "transactionid", "transaction_id"),
		OrderID:               firstOf(fields, "orderid", "order_id", "ordernumber"),
		RawStatus:             firstOf(fields, "status", "paymentstatus", "payment_status"),
		Amount:                firstOf(fields, "amount", "totalamount", "total_amount"),
		EntityType:            firstOf(fields, "entitytype", "entity_type"),
		OwnerID:               firstOf(fields, "ownerid", "owner_id"),
		Raw:                   body,
	}
	ev.Status = mapStatus(ev.RawStatus)

	if ev.ProviderTransactionID == "" {
		return nil, domain.ErrMissingTransactionID
	}
	if ev.OrderID == "" {
		return nil, domain.ErrMissingOrderID
	}
	return ev, nil
}

// Process applies the callback to order state and, for paid orders, hands
// off to the confirmation dispatcher. Errors here are for the caller's log
// only; the HTTP boundary answers the processor with success regardless.
func (s *Service) Process(ctx context.Context, ev *domain.Event) error {
	s.metrics.RecordWebhookEvent(ev.Status)

	payload := ev.Raw
	if !json.Valid(payload) {
		payload, _ = json.Marshal(map[string]string{"raw": string(ev.Raw)})
	}
	first, err := s.repo.Insert(ctx, &domain.EventRecord{
		ProviderTransactionID: ev.ProviderTransactionID,
		OrderID:               ev.OrderID,
		Status:                ev.Status,
		RawStatus:             ev.RawStatus,
		Amount:                ev.Amount,
		Payload:               datatypes.JSON(payload),
	})
	if err != nil {
		s.log.Error("event trail insert failed, continuing",
			zap.String("order_id", ev.OrderID), zap.Error(err))
	} else if !first {
		s.log.Info("redelivered callback, side effects already applied",
			zap.String("order_id", ev.OrderID),
			zap.String("transaction_id", ev.ProviderTransactionID),
			zap.String("status", ev.Status))
		return nil
	}

	switch ev.Status {
	case domain.StatusConfirmed, domain.StatusPaid:
		return s.handlePaid(ctx, ev)
	case domain.StatusPending:
		if err := s.accounts.UpdateStatus(ctx, ev.OrderID, accountdomain.StatusPending); err != nil {
			return fmt.Errorf("mark pending: %w", err)
		}
		return nil
	case domain.StatusCanceled, domain.StatusExpired:
		if err := s.accounts.UpdateStatus(ctx, ev.OrderID, accountdomain.StatusUnfulfilled); err != nil {
			return fmt.Errorf("mark unfulfilled: %w", err)
		}
		return nil
	default:
		s.log.Warn("unknown callback status, no-op",
			zap.String("order_id", ev.OrderID),
			zap.String("raw_status", ev.RawStatus))
		return nil
	}
}

func (s *Service) handlePaid(ctx context.Context, ev *domain.Event) error {
	entityType, ownerID := ev.EntityType, ev.OwnerID
	if entityType == "" || ownerID == "" {
		// legacy flows encode the entitlement into the identifier
		if ref, ok := decodeOrderRef(ev.OrderID); ok {
			entityType, ownerID = ref.EntityType, ref.OwnerID
		}
	}

	if err := s.accounts.MarkPaid(ctx, ev.OrderID, entityType, ownerID); err != nil {
		s.log.Error("mark paid failed, continuing to dispatch",
			zap.String("order_id", ev.OrderID), zap.Error(err))
	} else if entityType != "" {
		s.log.Info("entitlement activated",
			zap.String("order_id", ev.OrderID),
			zap.String("entity_type", entityType),
			zap.String("owner_id", ownerID))
	}

	rec := s.recordFor(ctx, ev)
	if _, err := s.dispatcher.Dispatch(ctx, rec, confirmdomain.SourceWebhook); err != nil {
		return fmt.Errorf("dispatch confirmation: %w", err)
	}
	return nil
}

// recordFor prefers the stored account document; when nothing is stored the
// record is synthesized from the callback alone and marked unverified, which
// forces an admin-only backup notification downstream.
func (s *Service) recordFor(ctx context.Context, ev *domain.Event) *orderdomain.Record {
	stored, err := s.accounts.FindByOrderNumber(ctx, ev.OrderID)
	if err != nil {
		s.log.Warn("account lookup failed", zap.String("order_id", ev.OrderID), zap.Error(err))
	}
	if stored != nil {
		return stored.ToRecord()
	}
	return &orderdomain.Record{
		OrderNumber:            ev.OrderID,
		TotalAmount:            ev.Amount,
		PaymentMethod:          "card",
		IsVerifiedCustomerData: false,
	}
}

func mapStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "confirmed":
		return domain.StatusConfirmed
	case "paid":
		return domain.StatusPaid
	case "pending":
		return domain.StatusPending
	case "canceled", "cancelled":
		return domain.StatusCanceled
	case "expired":
		return domain.StatusExpired
	default:
		return domain.StatusUnknown
	}
}

func firstOf(fields map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(fields[k]); v != "" {
			return v
		}
	}
	return ""
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		raw, _ := json.Marshal(val)
		return string(raw)
	}
}
