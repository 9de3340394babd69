package service

import (
	"context"
	"errors"
	"net/url"
	"testing"

	accountdomain "github.com/luminacare/checkout/internal/account/domain"
	"github.com/luminacare/checkout/internal/config"
	confirmdomain "github.com/luminacare/checkout/internal/confirm/domain"
	"github.com/luminacare/checkout/internal/notification/domain"
	orderdomain "github.com/luminacare/checkout/internal/order/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEvents struct {
	seen  map[string]bool
	calls int
}

func (f *fakeEvents) Insert(_ context.Context, ev *domain.EventRecord) (bool, error) {
	f.calls++
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	key := ev.ProviderTransactionID + "|" + ev.Status
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

type fakeAccounts struct {
	stored     *accountdomain.AccountOrder
	statuses   map[string]string
	paidEntity string
	paidOwner  string
	paidCalls  int
}

func (f *fakeAccounts) Upsert(context.Context, *accountdomain.AccountOrder) error { return nil }

func (f *fakeAccounts) FindByOrderNumber(_ context.Context, orderNumber string) (*accountdomain.AccountOrder, error) {
	if f.stored != nil && f.stored.OrderNumber == orderNumber {
		return f.stored, nil
	}
	return nil, nil
}

func (f *fakeAccounts) UpdateStatus(_ context.Context, orderNumber string, status string) error {
	if f.statuses == nil {
		f.statuses = map[string]string{}
	}
	f.statuses[orderNumber] = status
	return nil
}

func (f *fakeAccounts) MarkPaid(_ context.Context, orderNumber string, entityType string, ownerID string) error {
	f.paidCalls++
	f.paidEntity = entityType
	f.paidOwner = ownerID
	if f.statuses == nil {
		f.statuses = map[string]string{}
	}
	f.statuses[orderNumber] = accountdomain.StatusPaid
	return nil
}

type fakeDispatcher struct {
	records []*orderdomain.Record
	err     error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, rec *orderdomain.Record, _ string) (*confirmdomain.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.records = append(f.records, rec)
	return &confirmdomain.Summary{OrderNumber: rec.OrderNumber}, nil
}

func newTestService(events *fakeEvents, accounts *fakeAccounts, disp *fakeDispatcher) domain.Service {
	return NewService(Params{
		Cfg:        config.Config{},
		Log:        zap.NewNop(),
		Repo:       events,
		Accounts:   accounts,
		Dispatcher: disp,
	})
}

func TestNormalizeJSONBody(t *testing.T) {
	svc := newTestService(&fakeEvents{}, &fakeAccounts{}, &fakeDispatcher{})

	body := []byte(`{"paymentId":"TXN-9","orderId":"LC-1700000000000","status":"confirmed","amount":50}`)
	ev, err := svc.Normalize("application/json", body, nil)
	require.NoError(t, err)
	require.Equal(t, "TXN-9", ev.ProviderTransactionID)
	require.Equal(t, "LC-1700000000000", ev.OrderID)
	require.Equal(t, domain.StatusConfirmed, ev.Status)
	require.Equal(t, "50", ev.Amount)
}

func TestNormalizeFormBody(t *testing.T) {
	svc := newTestService(&fakeEvents{}, &fakeAccounts{}, &fakeDispatcher{})

	body := []byte("paymentId=TXN-9&orderId=LC-1700000000000&status=PAID")
	ev, err := svc.Normalize("application/x-www-form-urlencoded", body, nil)
	require.NoError(t, err)
	require.Equal(t, "TXN-9", ev.ProviderTransactionID)
	require.Equal(t, domain.StatusPaid, ev.Status)
	require.Equal(t, "PAID", ev.RawStatus)
}

func TestNormalizeQueryOverridesBody(t *testing.T) {
	svc := newTestService(&fakeEvents{}, &fakeAccounts{}, &fakeDispatcher{})

	body := []byte(`{"paymentId":"TXN-9","orderId":"LC-1","status":"pending"}`)
	query := url.Values{"status": {"confirmed"}}
	ev, err := svc.Normalize("application/json", body, query)
	require.NoError(t, err)
	require.Equal(t, domain.StatusConfirmed, ev.Status)
}

func TestNormalizeMissingIdentifiers(t *testing.T) {
	svc := newTestService(&fakeEvents{}, &fakeAccounts{}, &fakeDispatcher{})

	_, err := svc.Normalize("application/json", []byte(`{"orderId":"LC-1"}`), nil)
	require.ErrorIs(t, err, domain.ErrMissingTransactionID)

	_, err = svc.Normalize("application/json", []byte(`{"paymentId":"TXN-9"}`), nil)
	require.ErrorIs(t, err, domain.ErrMissingOrderID)
}

func TestProcessConfirmedDispatchesAndActivates(t *testing.T) {
	events := &fakeEvents{}
	accounts := &fakeAccounts{}
	disp := &fakeDispatcher{}
	svc := newTestService(events, accounts, disp)

	err := svc.Process(context.Background(), &domain.Event{
		ProviderTransactionID: "TXN-9",
		OrderID:               "emblem-user42-1700000000000",
		Status:                domain.StatusConfirmed,
		Amount:                "50.00",
		Raw:                   []byte(`{}`),
	})
	require.NoError(t, err)
	require.Equal(t, 1, accounts.paidCalls)
	require.Equal(t, "emblem", accounts.paidEntity)
	require.Equal(t, "user42", accounts.paidOwner)
	require.Len(t, disp.records, 1)
	// nothing stored: synthesized record must stay unverified
	require.False(t, disp.records[0].IsVerifiedCustomerData)
}

func TestProcessPrefersExplicitEntityFields(t *testing.T) {
	accounts := &fakeAccounts{}
	svc := newTestService(&fakeEvents{}, accounts, &fakeDispatcher{})

	err := svc.Process(context.Background(), &domain.Event{
		ProviderTransactionID: "TXN-9",
		OrderID:               "gift-card-user42-1700000000000",
		Status:                domain.StatusPaid,
		EntityType:            "emblem",
		OwnerID:               "user7",
		Raw:                   []byte(`{}`),
	})
	require.NoError(t, err)
	require.Equal(t, "emblem", accounts.paidEntity)
	require.Equal(t, "user7", accounts.paidOwner)
}

func TestProcessUsesStoredRecord(t *testing.T) {
	accounts := &fakeAccounts{stored: &accountdomain.AccountOrder{
		OrderNumber:   "LC-1700000000000",
		CustomerName:  "Ana Popescu",
		CustomerEmail: "ana@gmail.com",
		Verified:      true,
	}}
	disp := &fakeDispatcher{}
	svc := newTestService(&fakeEvents{}, accounts, disp)

	err := svc.Process(context.Background(), &domain.Event{
		ProviderTransactionID: "TXN-9",
		OrderID:               "LC-1700000000000",
		Status:                domain.StatusPaid,
		Raw:                   []byte(`{}`),
	})
	require.NoError(t, err)
	require.Len(t, disp.records, 1)
	require.Equal(t, "Ana Popescu", disp.records[0].CustomerName)
	require.True(t, disp.records[0].IsVerifiedCustomerData)
}

func TestProcessRedeliveryIsNoOp(t *testing.T) {
	events := &fakeEvents{}
	disp := &fakeDispatcher{}
	svc := newTestService(events, &fakeAccounts{}, disp)

	ev := &domain.Event{
		ProviderTransactionID: "TXN-9",
		OrderID:               "LC-1700000000000",
		Status:                domain.StatusConfirmed,
		Raw:                   []byte(`{}`),
	}
	require.NoError(t, svc.Process(context.Background(), ev))
	require.NoError(t, svc.Process(context.Background(), ev))
	require.Equal(t, 2, events.calls)
	require.Len(t, disp.records, 1)
}

func TestProcessCanceledMarksUnfulfilled(t *testing.T) {
	accounts := &fakeAccounts{}
	svc := newTestService(&fakeEvents{}, accounts, &fakeDispatcher{})

	err := svc.Process(context.Background(), &domain.Event{
		ProviderTransactionID: "TXN-9",
		OrderID:               "LC-1",
		Status:                domain.StatusCanceled,
		Raw:                   []byte(`{}`),
	})
	require.NoError(t, err)
	require.Equal(t, accountdomain.StatusUnfulfilled, accounts.statuses["LC-1"])
}

func TestProcessUnknownStatusIsNoOp(t *testing.T) {
	accounts := &fakeAccounts{}
	disp := &fakeDispatcher{}
	svc := newTestService(&fakeEvents{}, accounts, disp)

	err := svc.Process(context.Background(), &domain.Event{
		ProviderTransactionID: "TXN-9",
		OrderID:               "LC-1",
		Status:                domain.StatusUnknown,
		RawStatus:             "weird",
		Raw:                   []byte(`{}`),
	})
	require.NoError(t, err)
	require.Empty(t, accounts.statuses)
	require.Empty(t, disp.records)
}

func TestProcessDispatchErrorSurfacesForLogging(t *testing.T) {
	svc := newTestService(&fakeEvents{}, &fakeAccounts{}, &fakeDispatcher{err: errors.New("boom")})

	err := svc.Process(context.Background(), &domain.Event{
		ProviderTransactionID: "TXN-9",
		OrderID:               "LC-1",
		Status:                domain.StatusPaid,
		Raw:                   []byte(`{}`),
	})
	require.Error(t, err)
}
